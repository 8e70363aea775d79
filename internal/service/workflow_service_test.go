package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "expected %s, got %v", code, err)
}

func TestSaveStageAuthorization(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	for _, stageType := range domain.StageTypes {
		input := StageInput{Content: "notes for " + string(stageType)}
		if stageType == domain.StageCustomerConfirmation {
			for _, actor := range []domain.Actor{f.serviceAdmin, f.serviceEngineer} {
				_, err := f.workflow.SaveStage(ctx, actor, ticket.ID, stageType, input)
				assertCode(t, err, apperrors.CodeForbidden)
			}
			_, err := f.workflow.SaveStage(ctx, f.endEngineer, ticket.ID, stageType, input)
			assert.NoError(t, err)
			continue
		}
		for _, actor := range []domain.Actor{f.endAdmin, f.endEngineer} {
			_, err := f.workflow.SaveStage(ctx, actor, ticket.ID, stageType, input)
			assertCode(t, err, apperrors.CodeForbidden)
		}
		_, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, stageType, input)
		assert.NoError(t, err, stageType)
	}
}

func TestSaveStageCreatesThenUpdatesInPlace(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)
	expected := fixedNow.AddDate(0, 0, 3)

	first, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageAbnormalAnalysis, StageInput{
		Content:      "Seal worn",
		ExpectedDate: &expected,
		Attachments:  []domain.Attachment{{StorageKey: "s3://bucket/photo.jpg", FileName: "photo.jpg", SizeBytes: 1024}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusInProgress, first.Status)

	second, err := f.workflow.SaveStage(ctx, f.serviceAdmin, ticket.ID, domain.StageAbnormalAnalysis, StageInput{Content: "Seal and valve worn"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Seal and valve worn", second.Content)
	assert.Equal(t, domain.StageStatusInProgress, second.Status)

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status, "stage edits never change ticket status")
}

func TestSaveAbnormalDescriptionSyncsTicket(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageAbnormalDescription, StageInput{Content: "Pressure drop on axis 4"})
	require.NoError(t, err)

	stored, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pressure drop on axis 4", stored.Description)
}

func TestSaveStageValidation(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageOnSiteSolution, StageInput{Content: "   "})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageType("warranty"), StageInput{Content: "x"})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageRequiredParts, StageInput{
		Attachments: []domain.Attachment{{StorageKey: "parts.xlsx", FileName: "parts.xlsx"}},
	})
	assert.NoError(t, err, "parts list may be attachments only")

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageRequiredParts, StageInput{
		Attachments: []domain.Attachment{{FileName: "missing-key.pdf"}},
	})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestSaveStageOutsideTenancyIsNotFound(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.SaveStage(ctx, f.outsider, ticket.ID, domain.StageCustomerConfirmation, StageInput{Content: "hi"})
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.workflow.SaveStage(ctx, f.foreignEng.Actor(), ticket.ID, domain.StageSummary, StageInput{Content: "hi"})
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, "missing", domain.StageSummary, StageInput{Content: "hi"})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestSaveConfirmationStageAfterRatingIsRejected(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 4, nil)
	require.NoError(t, err)

	_, err = f.workflow.SaveStage(ctx, f.endAdmin, ticket.ID, domain.StageCustomerConfirmation, StageInput{Content: "changed my mind"})
	assertCode(t, err, apperrors.CodeAlreadyConfirmed)
}

// staleRatings never sees a rating, as if the read happened before a
// concurrent confirmation committed.
type staleRatings struct {
	repository.RatingRepository
}

func (staleRatings) GetByTicket(context.Context, string) (*domain.Rating, error) {
	return nil, pgx.ErrNoRows
}

func TestSaveConfirmationStageRacingConfirmationIsRejected(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 5, nil)
	require.NoError(t, err)

	deps := f.deps
	deps.RatingRepo = staleRatings{RatingRepository: f.store.Ratings()}
	late := NewWorkflowService(deps)

	_, err = late.SaveStage(ctx, f.endEngineer, ticket.ID, domain.StageCustomerConfirmation, StageInput{Content: "overwrite"})
	assertCode(t, err, apperrors.CodeAlreadyConfirmed)

	stored, err := f.store.Stages().Get(ctx, ticket.ID, domain.StageCustomerConfirmation)
	require.NoError(t, err)
	assert.Equal(t, "Rated 5/5", stored.Content)
	assert.True(t, stored.Completed())
}

func TestStrictStageOrder(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{StrictStageOrder: true})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageOnSiteSolution, StageInput{Content: "Replaced valve"})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageAbnormalAnalysis, StageInput{Content: "Valve"})
	require.NoError(t, err, "description stage was seeded at creation")
	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageRequiredParts, StageInput{})
	require.NoError(t, err)
	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageOnSiteSolution, StageInput{Content: "Replaced valve"})
	assert.NoError(t, err)
}

func TestPermissiveStageOrderByDefault(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ticket := f.openTicket(t)
	_, err := f.workflow.SaveStage(context.Background(), f.serviceEngineer, ticket.ID, domain.StageSummary, StageInput{Content: "Done"})
	assert.NoError(t, err)
}

func TestAssignEngineer(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)
	second := f.user(t, "Ian Second", domain.RoleServiceEngineer, f.provider.ID)

	updated, err := f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, f.engineer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, f.engineer.ID, *updated.AssignedTo)

	reassigned, err := f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, reassigned.Status)
	assert.Equal(t, second.ID, *reassigned.AssignedTo)

	msg, ok := f.notifier.last("engineer_assigned")
	require.True(t, ok)
	assert.Equal(t, f.customer.ID, msg.OrganizationID)
}

func TestAssignEngineerErrors(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.AssignEngineer(ctx, f.endAdmin, ticket.ID, f.engineer.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, "ghost")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, f.foreignEng.ID)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, f.providerAdmin.ID)
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.AssignEngineer(ctx, f.serviceAdmin, "missing", f.engineer.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestCompleteSummaryOnce(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	stage, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "Replaced motor")
	require.NoError(t, err)
	assert.True(t, stage.Completed())
	require.NotNil(t, stage.CompletedAt)

	_, err = f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "Replaced motor again")
	assertCode(t, err, apperrors.CodeAlreadyCompleted)

	_, err = f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "")
	assertCode(t, err, apperrors.CodeAlreadyCompleted)

	stored, err := f.store.Stages().Get(ctx, ticket.ID, domain.StageSummary)
	require.NoError(t, err)
	assert.Equal(t, "Replaced motor", stored.Content)

	msg, ok := f.notifier.last("summary_completed")
	require.True(t, ok)
	assert.Equal(t, f.customer.ID, msg.OrganizationID)
	assert.Equal(t, ticket.TicketNumber, msg.TicketNumber)
}

func TestCompleteSummaryConcurrentExactlyOnce(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	const callers = 12
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "Replaced motor")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperrors.HasCode(err, apperrors.CodeAlreadyCompleted):
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, rejected)

	completions := 0
	timeline, err := f.store.Timeline().ListByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	for _, ev := range timeline {
		if ev.Kind == domain.TimelineStageCompleted {
			completions++
		}
	}
	assert.Equal(t, 1, completions)
}

func TestCompleteSummaryUsesSavedContent(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	_, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "")
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageSummary, StageInput{Content: "Saved draft"})
	require.NoError(t, err)

	stage, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "  ")
	require.NoError(t, err)
	assert.Equal(t, "Saved draft", stage.Content)
}

func TestCompleteSummarySurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)
	f.notifier.err = errors.New("redis unavailable")

	stage, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "Replaced motor")
	require.NoError(t, err)
	assert.True(t, stage.Completed())
	assert.Contains(t, f.notifier.kinds(), "summary_completed", "delivery was attempted")

	stored, err := f.store.Stages().Get(ctx, ticket.ID, domain.StageSummary)
	require.NoError(t, err)
	assert.True(t, stored.Completed())
}

func TestCompleteSummaryForbiddenForCustomer(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ticket := f.openTicket(t)
	_, err := f.workflow.CompleteSummary(context.Background(), f.endAdmin, ticket.ID, "Looks fixed")
	assertCode(t, err, apperrors.CodeForbidden)
}

func TestConfirmByCustomerOnce(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)
	remark := "Great"

	rating, err := f.workflow.ConfirmByCustomer(ctx, f.endEngineer, ticket.ID, 5, &remark)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Score)

	_, err = f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 1, nil)
	assertCode(t, err, apperrors.CodeAlreadyConfirmed)

	stored, err := f.store.Ratings().GetByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Score)

	got, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)

	confirmation, err := f.store.Stages().Get(ctx, ticket.ID, domain.StageCustomerConfirmation)
	require.NoError(t, err)
	assert.True(t, confirmation.Completed())
	assert.Equal(t, "Rated 5/5: Great", confirmation.Content)
}

func TestConfirmByCustomerConcurrent(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	const callers = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for i := 0; i < callers; i++ {
		score := i%5 + 1
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, score, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if apperrors.HasCode(err, apperrors.CodeAlreadyConfirmed) {
				rejected++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, rejected)

	got, err := f.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
}

func TestConfirmByCustomerValidation(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	for _, score := range []int{0, 6, -1} {
		_, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, score, nil)
		assertCode(t, err, apperrors.CodeValidation)
	}

	long := strings.Repeat("a", domain.MaxCommentLength+1)
	_, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 3, &long)
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.workflow.ConfirmByCustomer(ctx, f.serviceAdmin, ticket.ID, 5, nil)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.workflow.ConfirmByCustomer(ctx, f.outsider, ticket.ID, 5, nil)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.store.Ratings().GetByTicket(ctx, ticket.ID)
	assert.Error(t, err, "no rating persisted by rejected calls")
}

func TestEndToEndMaintenanceFlow(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()

	ticket := f.openTicket(t)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, "RC-20250301-0001", ticket.TicketNumber)

	assigned, err := f.workflow.AssignEngineer(ctx, f.serviceAdmin, ticket.ID, f.engineer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, assigned.Status)

	summary, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageSummary, StageInput{Content: "Replaced motor"})
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusInProgress, summary.Status)

	completed, err := f.workflow.CompleteSummary(ctx, f.serviceEngineer, ticket.ID, "Replaced motor")
	require.NoError(t, err)
	assert.Equal(t, domain.StageStatusCompleted, completed.Status)
	assert.Contains(t, f.notifier.kinds(), "summary_completed")

	remark := "Great"
	rating, err := f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 5, &remark)
	require.NoError(t, err)
	assert.Equal(t, 5, rating.Score)

	detail, err := f.tickets.GetTicket(ctx, f.endAdmin, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, detail.Ticket.Status)
	require.NotNil(t, detail.Rating)
	assert.Equal(t, 5, detail.Rating.Score)
	var confirmation *StageView
	for i := range detail.Stages {
		if detail.Stages[i].StageType == domain.StageCustomerConfirmation {
			confirmation = &detail.Stages[i]
		}
	}
	require.NotNil(t, confirmation)
	assert.True(t, confirmation.Completed())

	_, err = f.workflow.ConfirmByCustomer(ctx, f.endAdmin, ticket.ID, 4, nil)
	assertCode(t, err, apperrors.CodeAlreadyConfirmed)

	kinds := make([]domain.TimelineKind, 0, len(detail.Timeline))
	for _, ev := range detail.Timeline {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []domain.TimelineKind{
		domain.TimelineTicketCreated,
		domain.TimelineEngineerAssigned,
		domain.TimelineStageSaved,
		domain.TimelineStageCompleted,
		domain.TimelineCustomerConfirmed,
	}, kinds)
}

func TestGetTicketDerivesSpansPerRead(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageOnSiteSolution, StageInput{Content: "Visit", ExpectedDate: &past})
	require.NoError(t, err)
	_, err = f.workflow.SaveStage(ctx, f.serviceEngineer, ticket.ID, domain.StageAbnormalAnalysis, StageInput{Content: "Check"})
	require.NoError(t, err)

	first, err := f.tickets.GetTicket(ctx, f.serviceEngineer, ticket.ID)
	require.NoError(t, err)
	second, err := f.tickets.GetTicket(ctx, f.serviceEngineer, ticket.ID)
	require.NoError(t, err)

	require.Len(t, first.Stages, 3)
	assert.Equal(t, domain.StageAbnormalDescription, first.Stages[0].StageType)
	assert.Equal(t, domain.StageAbnormalAnalysis, first.Stages[1].StageType)
	assert.Nil(t, first.Stages[1].Span)

	onSite := first.Stages[2]
	require.NotNil(t, onSite.Span)
	assert.False(t, onSite.Span.End.Before(onSite.Span.Start))
	assert.Equal(t, onSite.Span.Start.AddDate(0, 0, 1), onSite.Span.End)
	assert.Equal(t, first.Stages[2].Span, second.Stages[2].Span)
}
