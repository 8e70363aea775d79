package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/domain"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

func TestCreateTicketFromCustomerSide(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()

	first := f.openTicket(t)
	assert.Equal(t, f.customer.ID, first.CustomerID)
	assert.Equal(t, f.provider.ID, first.ServiceProviderID)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.Equal(t, "RC-20250301-0001", first.TicketNumber)

	second := f.openTicket(t)
	assert.Equal(t, "RC-20250301-0002", second.TicketNumber)

	seeded, err := f.store.Stages().Get(ctx, first.ID, domain.StageAbnormalDescription)
	require.NoError(t, err)
	assert.Equal(t, first.Description, seeded.Content)

	msg, ok := f.notifier.last("ticket_created")
	require.True(t, ok)
	assert.Equal(t, f.provider.ID, msg.OrganizationID)
}

func TestCreateTicketFromProviderSide(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ticket, err := f.tickets.CreateTicket(context.Background(), f.serviceAdmin, TicketCreateInput{
		Title:      "Scheduled inspection",
		RobotID:    "UR10-7",
		CustomerID: f.customer.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, f.provider.ID, ticket.ServiceProviderID)
	assert.Equal(t, f.customer.ID, ticket.CustomerID)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)

	_, err = f.store.Stages().Get(context.Background(), ticket.ID, domain.StageAbnormalDescription)
	assert.Error(t, err, "no description, no seeded stage")
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()

	tests := []struct {
		name  string
		input TicketCreateInput
		code  string
	}{
		{"missing title", TicketCreateInput{RobotID: "R1", ServiceProviderID: f.provider.ID}, apperrors.CodeValidation},
		{"missing robot", TicketCreateInput{Title: "t", ServiceProviderID: f.provider.ID}, apperrors.CodeValidation},
		{"bad priority", TicketCreateInput{Title: "t", RobotID: "R1", Priority: "critical", ServiceProviderID: f.provider.ID}, apperrors.CodeValidation},
		{"missing counterpart", TicketCreateInput{Title: "t", RobotID: "R1"}, apperrors.CodeValidation},
		{"unknown counterpart", TicketCreateInput{Title: "t", RobotID: "R1", ServiceProviderID: "nope"}, apperrors.CodeNotFound},
		{"counterpart of wrong kind", TicketCreateInput{Title: "t", RobotID: "R1", ServiceProviderID: f.otherCustomer.ID}, apperrors.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tickets.CreateTicket(ctx, f.endAdmin, tt.input)
			assertCode(t, err, tt.code)
		})
	}
}

func TestListTicketsIsTenantScoped(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	mine := f.openTicket(t)
	_, err := f.tickets.CreateTicket(ctx, f.outsider, TicketCreateInput{
		Title: "Conveyor jam", RobotID: "C-1", ServiceProviderID: f.otherProvider.ID,
	})
	require.NoError(t, err)

	list, err := f.tickets.ListTickets(ctx, f.endEngineer, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, err = f.tickets.ListTickets(ctx, f.serviceAdmin, TicketListFilter{Statuses: []domain.TicketStatus{domain.TicketStatusInProgress}})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.tickets.ListTickets(ctx, f.serviceAdmin, TicketListFilter{Statuses: []domain.TicketStatus{"archived"}})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestGetTicketOutsideTenancy(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ticket := f.openTicket(t)

	_, err := f.tickets.GetTicket(context.Background(), f.outsider, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.tickets.ListTimeline(context.Background(), f.outsider, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestAddCommentBounds(t *testing.T) {
	f := newFixture(t, config.WorkflowConfig{})
	ctx := context.Background()
	ticket := f.openTicket(t)

	exact := strings.Repeat("é", domain.MaxCommentLength)
	comment, err := f.tickets.AddComment(ctx, f.endEngineer, ticket.ID, exact)
	require.NoError(t, err)
	assert.Equal(t, exact, comment.Content)

	_, err = f.tickets.AddComment(ctx, f.serviceEngineer, ticket.ID, exact+"x")
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.AddComment(ctx, f.serviceEngineer, ticket.ID, "")
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.tickets.AddComment(ctx, f.outsider, ticket.ID, "hello")
	assertCode(t, err, apperrors.CodeNotFound)

	timeline, err := f.tickets.ListTimeline(ctx, f.serviceEngineer, ticket.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.TimelineCommentAdded, timeline[1].Kind)
	assert.Equal(t, comment.ID, timeline[1].Payload["comment_id"])

	msg, ok := f.notifier.last("comment_added")
	require.True(t, ok)
	assert.Equal(t, f.provider.ID, msg.OrganizationID, "customer comments notify the provider")
}

func TestFormatTicketNumber(t *testing.T) {
	assert.Equal(t, "RC-20250301-0042", FormatTicketNumber(fixedNow, 42))
	assert.Equal(t, "RC-20250301-12345", FormatTicketNumber(fixedNow, 12345))
}
