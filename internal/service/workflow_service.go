package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

// WorkflowService owns the role gated transitions of a ticket and its stages.
type WorkflowService struct {
	core
	rules []StageRule
}

// StageInput is the payload of a stage write.
type StageInput struct {
	Content      string
	Attachments  []domain.Attachment
	ExpectedDate *time.Time
}

// NewWorkflowService constructs the service. Extra rules run after the ones
// enabled by the workflow configuration.
func NewWorkflowService(deps Dependencies, extra ...StageRule) *WorkflowService {
	rules := append(stageRulesFor(deps.Workflow.StrictStageOrder), extra...)
	return &WorkflowService{core: newCore(deps), rules: rules}
}

// SaveStage creates the stage record on first write and updates it in place
// afterwards. The ticket status is never changed here.
func (s *WorkflowService) SaveStage(ctx context.Context, actor domain.Actor, ticketID string, stageType domain.StageType, input StageInput) (*domain.Stage, error) {
	if !stageType.Valid() {
		return nil, apperrors.NewValidationError("invalid stage type", map[string]any{"stage_type": stageType})
	}
	if err := auth.Authorize(actor, auth.StageWriteOperation(stageType)); err != nil {
		return nil, err
	}
	if err := validateText("content", input.Content, stageType.RequiresContent(), domain.MaxStageContentLength); err != nil {
		return nil, err
	}
	if err := validateAttachments(input.Attachments); err != nil {
		return nil, err
	}

	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if stageType == domain.StageCustomerConfirmation {
		if err := requireCustomerSide(actor, ticket); err != nil {
			return nil, err
		}
	} else if err := requireProviderSide(actor, ticket); err != nil {
		return nil, err
	}

	if len(s.rules) > 0 {
		existing, err := s.stages.ListByTicket(ctx, ticket.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, rule := range s.rules {
			if err := rule.Check(ticket, stageType, existing); err != nil {
				return nil, err
			}
		}
	}

	stage := &domain.Stage{
		TicketID:     ticket.ID,
		StageType:    stageType,
		Content:      input.Content,
		Attachments:  input.Attachments,
		ExpectedDate: input.ExpectedDate,
		CreatedBy:    actor.UserID,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if stageType == domain.StageCustomerConfirmation {
			if err := s.ensureNotConfirmed(ctx, ticket.ID); err != nil {
				return err
			}
		}
		if err := s.stages.Upsert(ctx, stage); err != nil {
			return err
		}
		if stageType == domain.StageAbnormalDescription {
			if err := s.tickets.UpdateDescription(ctx, ticket.ID, input.Content); err != nil {
				return err
			}
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineStageSaved,
			fmt.Sprintf("Stage %s saved", stageType),
			map[string]any{"stage_type": stageType, "status": stage.Status})
	})
	if errors.Is(err, repository.ErrAlreadyCompleted) {
		// Only the confirmation stage refuses updates once completed.
		return nil, apperrors.NewAlreadyConfirmed("ticket already confirmed by customer", map[string]any{"ticket_id": ticket.ID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("save_stage")
	s.publish(ctx, actor, ticket, events.EventStageSaved, events.StageSavedPayload{
		StageType: stage.StageType,
		Status:    stage.Status,
	})
	return stage, nil
}

func (s *WorkflowService) ensureNotConfirmed(ctx context.Context, ticketID string) error {
	_, err := s.ratings.GetByTicket(ctx, ticketID)
	switch {
	case err == nil:
		return apperrors.NewAlreadyConfirmed("ticket already confirmed by customer", map[string]any{"ticket_id": ticketID})
	case errors.Is(err, pgx.ErrNoRows):
		return nil
	default:
		return err
	}
}

// AssignEngineer sets the assignee. An open ticket moves to in_progress in the
// same write; any other status is kept.
func (s *WorkflowService) AssignEngineer(ctx context.Context, actor domain.Actor, ticketID, engineerID string) (*domain.Ticket, error) {
	if err := auth.Authorize(actor, auth.OpAssignEngineer); err != nil {
		return nil, err
	}
	if strings.TrimSpace(engineerID) == "" {
		return nil, apperrors.NewValidationError("engineer_id is required", map[string]any{"field": "engineer_id"})
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireProviderSide(actor, ticket); err != nil {
		return nil, err
	}

	engineer, err := s.users.GetByID(ctx, engineerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("engineer", map[string]any{"engineer_id": engineerID})
		}
		return nil, apperrors.MapError(err)
	}
	if engineer.OrganizationID != ticket.ServiceProviderID {
		return nil, apperrors.NewNotFound("engineer", map[string]any{"engineer_id": engineerID})
	}
	if engineer.Role != domain.RoleServiceEngineer {
		return nil, apperrors.NewValidationError("user is not a service engineer", map[string]any{"engineer_id": engineerID})
	}
	if !engineer.Active {
		return nil, apperrors.NewValidationError("engineer is inactive", map[string]any{"engineer_id": engineerID})
	}

	var updated *domain.Ticket
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.tickets.Assign(ctx, ticket.ID, engineer.ID)
		if err != nil {
			return err
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineEngineerAssigned,
			fmt.Sprintf("Assigned to %s", engineer.Name),
			map[string]any{"engineer_id": engineer.ID, "status": updated.Status})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("assign_engineer")
	s.publish(ctx, actor, updated, events.EventEngineerAssigned, events.EngineerAssignedPayload{
		EngineerID: engineer.ID,
		OldStatus:  ticket.Status,
		NewStatus:  updated.Status,
	})
	return updated, nil
}

// CompleteSummary writes the summary content and marks the stage completed in a
// single conditional write. An empty summaryContent keeps the saved content.
func (s *WorkflowService) CompleteSummary(ctx context.Context, actor domain.Actor, ticketID, summaryContent string) (*domain.Stage, error) {
	if err := auth.Authorize(actor, auth.OpCompleteSummary); err != nil {
		return nil, err
	}
	if err := validateText("summary_content", summaryContent, false, domain.MaxStageContentLength); err != nil {
		return nil, err
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireProviderSide(actor, ticket); err != nil {
		return nil, err
	}

	if strings.TrimSpace(summaryContent) == "" {
		current, err := s.stages.Get(ctx, ticket.ID, domain.StageSummary)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		if current.Completed() {
			return nil, alreadyCompleted(ticket.ID)
		}
		if current == nil || strings.TrimSpace(current.Content) == "" {
			return nil, apperrors.NewValidationError("summary content is required", map[string]any{"field": "summary_content"})
		}
		summaryContent = ""
	}

	stage := &domain.Stage{
		TicketID:  ticket.ID,
		StageType: domain.StageSummary,
		Content:   summaryContent,
		CreatedBy: actor.UserID,
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.stages.Complete(ctx, stage); err != nil {
			return err
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineStageCompleted,
			"Summary completed", map[string]any{"stage_type": domain.StageSummary})
	})
	if errors.Is(err, repository.ErrAlreadyCompleted) {
		return nil, alreadyCompleted(ticket.ID)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("complete_summary")
	completedAt := s.now()
	if stage.CompletedAt != nil {
		completedAt = *stage.CompletedAt
	}
	s.publish(ctx, actor, ticket, events.EventSummaryCompleted, events.SummaryCompletedPayload{
		CompletedAt: completedAt,
		Preview:     stringPreview(stage.Content, 120),
	})
	return stage, nil
}

func alreadyCompleted(ticketID string) error {
	return apperrors.NewAlreadyCompleted("summary already completed", map[string]any{"ticket_id": ticketID})
}

// ConfirmByCustomer records the customer's rating, completes the confirmation
// stage and resolves the ticket in one transaction.
func (s *WorkflowService) ConfirmByCustomer(ctx context.Context, actor domain.Actor, ticketID string, score int, comment *string) (*domain.Rating, error) {
	if err := auth.Authorize(actor, auth.OpConfirmByCustomer); err != nil {
		return nil, err
	}
	if score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return nil, apperrors.NewValidationError("score must be between 1 and 5", map[string]any{"score": score})
	}
	if comment != nil {
		if err := validateText("comment", *comment, false, domain.MaxCommentLength); err != nil {
			return nil, err
		}
	}
	ticket, err := s.loadTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if err := requireCustomerSide(actor, ticket); err != nil {
		return nil, err
	}

	rating := &domain.Rating{TicketID: ticket.ID, Score: score, Comment: comment, CreatedBy: actor.UserID}
	var resolved *domain.Ticket
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ratings.Create(ctx, rating); err != nil {
			return err
		}
		confirmation := &domain.Stage{
			TicketID:  ticket.ID,
			StageType: domain.StageCustomerConfirmation,
			CreatedBy: actor.UserID,
		}
		saved, err := s.stages.Get(ctx, ticket.ID, domain.StageCustomerConfirmation)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if saved == nil || strings.TrimSpace(saved.Content) == "" {
			confirmation.Content = confirmationContent(score, comment)
		}
		if err := s.stages.Complete(ctx, confirmation); err != nil {
			return err
		}
		resolved, err = s.tickets.MarkResolved(ctx, ticket.ID)
		if err != nil {
			return err
		}
		return s.appendTimeline(ctx, actor, ticket.ID, domain.TimelineCustomerConfirmed,
			fmt.Sprintf("Customer confirmed with score %d", score),
			map[string]any{"score": score})
	})
	if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrAlreadyCompleted) {
		return nil, apperrors.NewAlreadyConfirmed("ticket already confirmed by customer", map[string]any{"ticket_id": ticket.ID})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTransition("confirm_by_customer")
	s.publish(ctx, actor, resolved, events.EventCustomerConfirmed, events.CustomerConfirmedPayload{Score: score})
	return rating, nil
}

func confirmationContent(score int, comment *string) string {
	text := fmt.Sprintf("Rated %d/5", score)
	if comment != nil && strings.TrimSpace(*comment) != "" {
		text += ": " + strings.TrimSpace(*comment)
	}
	return text
}

func validateAttachments(attachments []domain.Attachment) error {
	for i, a := range attachments {
		if strings.TrimSpace(a.StorageKey) == "" || strings.TrimSpace(a.FileName) == "" {
			return apperrors.NewValidationError("attachments need a storage key and file name", map[string]any{"index": i})
		}
		if a.SizeBytes < 0 {
			return apperrors.NewValidationError("attachment size must not be negative", map[string]any{"index": i})
		}
	}
	return nil
}
