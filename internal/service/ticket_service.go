package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

const (
	maxTitleLength        = 200
	maxTicketNumberTries  = 5
	defaultTicketPageSize = 20
	maxTicketPageSize     = 100
)

// TicketService covers ticket creation, reads and comments.
type TicketService struct {
	core
	sequence TicketSequence
}

// TicketCreateInput describes ticket creation payload. The actor's organization
// fills its own side; the counterpart is taken from the input.
type TicketCreateInput struct {
	Title             string
	Description       string
	Priority          domain.TicketPriority
	RobotID           string
	ServiceProviderID string
	CustomerID        string
	DueDate           *time.Time
}

// TicketListFilter describes listing filters. Results are always scoped to the
// actor's organization.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssignedTo *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// StageView is a stage together with its derived schedule span.
type StageView struct {
	domain.Stage
	Span *domain.GanttSpan
}

// TicketDetail is the full read view of a ticket.
type TicketDetail struct {
	Ticket   domain.Ticket
	Stages   []StageView
	Comments []domain.Comment
	Rating   *domain.Rating
	Timeline []domain.TimelineEvent
}

// NewTicketService constructs the service.
func NewTicketService(deps Dependencies) *TicketService {
	return &TicketService{core: newCore(deps), sequence: deps.Sequence}
}

// CreateTicket opens a ticket between the actor's organization and the counterpart.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpCreateTicket); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if err := validateText("title", title, true, maxTitleLength); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.RobotID) == "" {
		return nil, apperrors.NewValidationError("robot_id is required", map[string]any{"field": "robot_id"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		RobotID:     strings.TrimSpace(input.RobotID),
		CreatedBy:   actor.UserID,
		DueDate:     input.DueDate,
	}

	counterpartKind := domain.OrganizationCustomer
	counterpartID := input.CustomerID
	if auth.HasCapability(actor.Role, domain.CapabilityService) {
		ticket.ServiceProviderID = actor.OrganizationID
		ticket.CustomerID = input.CustomerID
	} else {
		counterpartKind = domain.OrganizationServiceProvider
		counterpartID = input.ServiceProviderID
		ticket.CustomerID = actor.OrganizationID
		ticket.ServiceProviderID = input.ServiceProviderID
	}
	if err := s.requireOrganization(ctx, counterpartID, counterpartKind); err != nil {
		return nil, err
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.insertWithNumber(ctx, ticket); err != nil {
			return err
		}
		if ticket.Description != "" {
			seed := &domain.Stage{
				TicketID:    ticket.ID,
				StageType:   domain.StageAbnormalDescription,
				Content:     ticket.Description,
				Attachments: []domain.Attachment{},
				CreatedBy:   actor.UserID,
			}
			if err := s.stages.Upsert(ctx, seed); err != nil {
				return err
			}
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineTicketCreated,
			fmt.Sprintf("Ticket %s created", ticket.TicketNumber),
			map[string]any{"priority": ticket.Priority, "robot_id": ticket.RobotID})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("create_ticket")
	s.publish(ctx, actor, ticket, events.EventTicketCreated, events.TicketCreatedPayload{
		Title:    ticket.Title,
		Priority: ticket.Priority,
		RobotID:  ticket.RobotID,
	})
	return ticket, nil
}

func (s *TicketService) requireOrganization(ctx context.Context, id string, kind domain.OrganizationKind) error {
	field := "customer_id"
	if kind == domain.OrganizationServiceProvider {
		field = "service_provider_id"
	}
	if strings.TrimSpace(id) == "" {
		return apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	org, err := s.organizations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("organization", map[string]any{field: id})
		}
		return apperrors.MapError(err)
	}
	if org.Kind != kind {
		return apperrors.NewValidationError(field+" must reference a "+string(kind), map[string]any{field: id})
	}
	return nil
}

// insertWithNumber assigns the next RC-YYYYMMDD-NNNN number, retrying when a
// concurrent writer took the same number.
func (s *TicketService) insertWithNumber(ctx context.Context, ticket *domain.Ticket) error {
	day := s.now()
	for attempt := 0; attempt < maxTicketNumberTries; attempt++ {
		seq, err := s.sequence.NextTicketSequence(ctx, day)
		if err != nil {
			return fmt.Errorf("next ticket sequence: %w", err)
		}
		ticket.TicketNumber = FormatTicketNumber(day, seq)
		err = s.tickets.Create(ctx, ticket)
		if errors.Is(err, repository.ErrDuplicate) {
			s.logger.Warn("ticket number taken, retrying", zap.String("ticket_number", ticket.TicketNumber))
			continue
		}
		return err
	}
	return apperrors.NewConflict("could not allocate a ticket number", nil)
}

// FormatTicketNumber renders the human readable ticket number.
func FormatTicketNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("RC-%s-%04d", day.UTC().Format("20060102"), seq)
}

// ListTickets returns tickets where the actor's organization is a party.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpViewTicket); err != nil {
		return nil, err
	}
	for _, status := range filter.Statuses {
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": status})
		}
	}
	for _, priority := range filter.Priorities {
		if !priority.Valid() {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": priority})
		}
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTicketPageSize
	}
	if limit > maxTicketPageSize {
		limit = maxTicketPageSize
	}
	org := actor.OrganizationID
	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		OrganizationID: &org,
		AssignedTo:     filter.AssignedTo,
		Statuses:       filter.Statuses,
		Priorities:     filter.Priorities,
		SearchTerm:     filter.SearchTerm,
		Limit:          limit,
		Offset:         filter.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicket returns the ticket with its ordered stages, derived spans, comments,
// rating and timeline.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	if err := auth.Authorize(actor, auth.OpViewTicket); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	stages, err := s.stages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	timeline, err := s.timeline.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	rating, err := s.ratings.GetByTicket(ctx, ticket.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	domain.SortStages(stages)
	spans := domain.ComputeGanttSpans(*ticket, stages)
	spanByType := make(map[domain.StageType]domain.GanttSpan, len(spans))
	for _, span := range spans {
		spanByType[span.StageType] = span
	}
	views := make([]StageView, 0, len(stages))
	for _, st := range stages {
		view := StageView{Stage: st}
		if span, ok := spanByType[st.StageType]; ok {
			span := span
			view.Span = &span
		}
		views = append(views, view)
	}

	return &TicketDetail{
		Ticket:   *ticket,
		Stages:   views,
		Comments: comments,
		Rating:   rating,
		Timeline: timeline,
	}, nil
}

// AddComment appends a comment from either party of the ticket.
func (s *TicketService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string) (*domain.Comment, error) {
	if err := auth.Authorize(actor, auth.OpComment); err != nil {
		return nil, err
	}
	if err := validateText("content", content, true, domain.MaxCommentLength); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{TicketID: ticket.ID, Content: content, CreatedBy: actor.UserID}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.comments.Create(ctx, comment); err != nil {
			return err
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineCommentAdded,
			"Comment added", map[string]any{"comment_id": comment.ID})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("add_comment")
	s.publish(ctx, actor, ticket, events.EventCommentAdded, events.CommentAddedPayload{
		CommentID:   comment.ID,
		BodyPreview: stringPreview(content, 120),
	})
	return comment, nil
}

// ListTimeline returns the audit trail of a ticket in insertion order.
func (s *TicketService) ListTimeline(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TimelineEvent, error) {
	if err := auth.Authorize(actor, auth.OpViewTicket); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	timeline, err := s.timeline.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return timeline, nil
}
