package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/observability"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

// TicketSequence hands out per-day ticket number sequences.
type TicketSequence interface {
	NextTicketSequence(ctx context.Context, day time.Time) (int64, error)
}

// Dependencies bundles the collaborators shared by the ticket and workflow services.
type Dependencies struct {
	TicketRepo       repository.TicketRepository
	StageRepo        repository.StageRepository
	CommentRepo      repository.CommentRepository
	RatingRepo       repository.RatingRepository
	TimelineRepo     repository.TimelineRepository
	UserRepo         repository.UserRepository
	OrganizationRepo repository.OrganizationRepository
	Transactor       repository.Transactor
	Sequence         TicketSequence
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Workflow         config.WorkflowConfig
	Clock            func() time.Time
}

// core carries the repositories and helpers every ticket operation needs.
type core struct {
	tickets       repository.TicketRepository
	stages        repository.StageRepository
	comments      repository.CommentRepository
	ratings       repository.RatingRepository
	timeline      repository.TimelineRepository
	users         repository.UserRepository
	organizations repository.OrganizationRepository
	tx            repository.Transactor
	dispatcher    events.Dispatcher
	metrics       *observability.Metrics
	logger        *zap.Logger
	now           func() time.Time
}

func newCore(deps Dependencies) core {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return core{
		tickets:       deps.TicketRepo,
		stages:        deps.StageRepo,
		comments:      deps.CommentRepo,
		ratings:       deps.RatingRepo,
		timeline:      deps.TimelineRepo,
		users:         deps.UserRepo,
		organizations: deps.OrganizationRepo,
		tx:            deps.Transactor,
		dispatcher:    deps.Dispatcher,
		metrics:       deps.Metrics,
		logger:        logger,
		now:           now,
	}
}

// loadTicket resolves a ticket visible to the actor. Tickets of other
// organizations are reported as missing.
func (c *core) loadTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := c.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !ticket.VisibleTo(actor.OrganizationID) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func requireProviderSide(actor domain.Actor, ticket *domain.Ticket) error {
	if actor.OrganizationID != ticket.ServiceProviderID {
		return apperrors.NewForbidden("actor does not belong to the ticket's service provider")
	}
	return nil
}

func requireCustomerSide(actor domain.Actor, ticket *domain.Ticket) error {
	if actor.OrganizationID != ticket.CustomerID {
		return apperrors.NewForbidden("actor does not belong to the ticket's customer")
	}
	return nil
}

func (c *core) appendTimeline(ctx context.Context, actor domain.Actor, ticketID string, kind domain.TimelineKind, summary string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	return c.timeline.Append(ctx, &domain.TimelineEvent{
		TicketID: ticketID,
		Kind:     kind,
		ActorID:  actor.UserID,
		Summary:  summary,
		Payload:  payload,
	})
}

// publish emits an event for a committed transition. Delivery problems are
// logged by the dispatcher and never returned.
func (c *core) publish(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, eventType events.EventType, payload any) {
	if c.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:           uuid.NewString(),
		Type:         eventType,
		TicketID:     ticket.ID,
		TicketNumber: ticket.TicketNumber,
		CustomerID:   ticket.CustomerID,
		ProviderID:   ticket.ServiceProviderID,
		Actor:        events.ActorFrom(actor),
		Timestamp:    c.now(),
		Payload:      payload,
	}
	if err := c.dispatcher.Publish(ctx, event); err != nil {
		c.logger.Warn("publish event failed",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func validateText(field, value string, required bool, max int) error {
	length := utf8.RuneCountInString(value)
	if required && strings.TrimSpace(value) == "" {
		return apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	if length > max {
		return apperrors.NewValidationError(field+" is too long", map[string]any{"field": field, "max": max, "length": length})
	}
	return nil
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
