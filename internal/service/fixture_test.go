package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/notification"
	"github.com/robotcare/maintenance-service/internal/observability"
	"github.com/robotcare/maintenance-service/internal/repository/memstore"
)

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
	return n.err
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Kind)
	}
	return out
}

func (n *recordingNotifier) last(kind string) (notification.Message, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.messages) - 1; i >= 0; i-- {
		if n.messages[i].Kind == kind {
			return n.messages[i], true
		}
	}
	return notification.Message{}, false
}

type fixture struct {
	store     *memstore.Store
	deps      Dependencies
	tickets   *TicketService
	workflow  *WorkflowService
	engineers *EngineerService
	auth      *AuthService
	notifier  *recordingNotifier
	metrics   *observability.Metrics

	provider      *domain.Organization
	otherProvider *domain.Organization
	customer      *domain.Organization
	otherCustomer *domain.Organization

	serviceAdmin    domain.Actor
	serviceEngineer domain.Actor
	endAdmin        domain.Actor
	endEngineer     domain.Actor
	outsider        domain.Actor

	engineer      *domain.User
	foreignEng    *domain.User
	providerAdmin *domain.User
}

func newFixture(t *testing.T, workflow config.WorkflowConfig) *fixture {
	t.Helper()
	store := memstore.New()
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := &recordingNotifier{}
	NewNotificationService(dispatcher, notifier, logger).RegisterHandlers()
	metrics := observability.NewMetrics()

	deps := Dependencies{
		TicketRepo:       store.Tickets(),
		StageRepo:        store.Stages(),
		CommentRepo:      store.Comments(),
		RatingRepo:       store.Ratings(),
		TimelineRepo:     store.Timeline(),
		UserRepo:         store.Users(),
		OrganizationRepo: store.Organizations(),
		Transactor:       store,
		Sequence:         store,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Workflow:         workflow,
		Clock:            func() time.Time { return fixedNow },
	}

	f := &fixture{
		store:     store,
		deps:      deps,
		tickets:   NewTicketService(deps),
		workflow:  NewWorkflowService(deps),
		engineers: NewEngineerService(deps),
		auth: NewAuthService(config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 5, BcryptCost: 4},
			AuthDependencies{UserRepo: store.Users(), OrganizationRepo: store.Organizations()}),
		notifier: notifier,
		metrics:  metrics,
	}

	f.provider = f.org(t, "Acme Robotics Service", domain.OrganizationServiceProvider)
	f.otherProvider = f.org(t, "Other Service", domain.OrganizationServiceProvider)
	f.customer = f.org(t, "Widget Factory", domain.OrganizationCustomer)
	f.otherCustomer = f.org(t, "Gadget Plant", domain.OrganizationCustomer)

	f.providerAdmin = f.user(t, "Sam Admin", domain.RoleServiceAdmin, f.provider.ID)
	f.engineer = f.user(t, "Eve Engineer", domain.RoleServiceEngineer, f.provider.ID)
	f.foreignEng = f.user(t, "Fay Foreign", domain.RoleServiceEngineer, f.otherProvider.ID)
	f.serviceAdmin = f.providerAdmin.Actor()
	f.serviceEngineer = f.engineer.Actor()
	f.endAdmin = f.user(t, "Cam Customer", domain.RoleEndAdmin, f.customer.ID).Actor()
	f.endEngineer = f.user(t, "Ed Floor", domain.RoleEndEngineer, f.customer.ID).Actor()
	f.outsider = f.user(t, "Oz Outsider", domain.RoleEndAdmin, f.otherCustomer.ID).Actor()

	return f
}

func (f *fixture) org(t *testing.T, name string, kind domain.OrganizationKind) *domain.Organization {
	t.Helper()
	org := &domain.Organization{Name: name, Kind: kind}
	require.NoError(t, f.store.Organizations().Create(context.Background(), org))
	return org
}

func (f *fixture) user(t *testing.T, name string, role domain.Role, orgID string) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:           name,
		Email:          name + "@example.com",
		Role:           role,
		OrganizationID: orgID,
		Active:         true,
	}
	require.NoError(t, f.store.Users().Create(context.Background(), user))
	return user
}

// openTicket creates a ticket reported by the customer against the provider.
func (f *fixture) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), f.endAdmin, TicketCreateInput{
		Title:             "Gripper drops parts",
		Description:       "Gripper loses pressure after 20 minutes",
		Priority:          domain.TicketPriorityHigh,
		RobotID:           "KR-210-0042",
		ServiceProviderID: f.provider.ID,
	})
	require.NoError(t, err)
	return ticket
}
