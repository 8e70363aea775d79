package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/robotcare/maintenance-service/internal/api/http"
	"github.com/robotcare/maintenance-service/internal/api/http/handlers"
	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/config"
	"github.com/robotcare/maintenance-service/internal/events"
	"github.com/robotcare/maintenance-service/internal/notification"
	"github.com/robotcare/maintenance-service/internal/observability"
	"github.com/robotcare/maintenance-service/internal/persistence"
	"github.com/robotcare/maintenance-service/internal/repository"
	"github.com/robotcare/maintenance-service/internal/repository/memstore"
	"github.com/robotcare/maintenance-service/internal/service"
	"github.com/robotcare/maintenance-service/internal/worker"
)

// repositories is the storage backend chosen at startup.
type repositories struct {
	tickets       repository.TicketRepository
	stages        repository.StageRepository
	comments      repository.CommentRepository
	ratings       repository.RatingRepository
	timeline      repository.TimelineRepository
	users         repository.UserRepository
	organizations repository.OrganizationRepository
	transactor    repository.Transactor
	sequence      service.TicketSequence
}

// App holds the wired service graph.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Postgres  *persistence.Postgres
	Redis     *persistence.Redis
	Auth      *service.AuthService
	Tickets   *service.TicketService
	Workflow  *service.WorkflowService
	Engineers *service.EngineerService
	Fiber     *fiber.App

	notifications *worker.NotificationWorker
}

// Options tweak the graph for tests and tooling.
type Options struct {
	// Clock overrides the service clock.
	Clock func() time.Time
	// Notifier overrides the notifier selected from configuration.
	Notifier notification.Notifier
	// StageRules are appended after the configured rules.
	StageRules []service.StageRule
}

// New connects the backing stores and builds the services and HTTP app.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	repos := selectRepositories(pg, redis, opts.Clock, logger)
	metrics := observability.NewMetrics()

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifier := opts.Notifier
	if notifier == nil {
		if redis.Enabled() {
			notifier = notification.NewRedisNotifier(redis, cfg.Notification.Channel)
		} else {
			notifier = notification.NewLogNotifier(logger)
		}
	}
	notifications := worker.NewNotificationWorker(notifier, logger, cfg.Notification.QueueSize)
	notifications.Start(cfg.Notification.Workers)
	service.NewNotificationService(dispatcher, notifications, logger).RegisterHandlers()

	deps := service.Dependencies{
		TicketRepo:       repos.tickets,
		StageRepo:        repos.stages,
		CommentRepo:      repos.comments,
		RatingRepo:       repos.ratings,
		TimelineRepo:     repos.timeline,
		UserRepo:         repos.users,
		OrganizationRepo: repos.organizations,
		Transactor:       repos.transactor,
		Sequence:         repos.sequence,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
		Workflow:         cfg.Workflow,
		Clock:            opts.Clock,
	}

	tokens := auth.NewTokenManager(cfg.Auth)
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  metrics,
		Postgres: pg,
		Redis:    redis,
		Auth: service.NewAuthService(cfg.Auth, service.AuthDependencies{
			UserRepo:         repos.users,
			OrganizationRepo: repos.organizations,
			TokenManager:     tokens,
		}),
		Tickets:   service.NewTicketService(deps),
		Workflow:  service.NewWorkflowService(deps, opts.StageRules...),
		Engineers: service.NewEngineerService(deps),

		notifications: notifications,
	}

	a.Fiber = fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(a.Fiber, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(a.Fiber, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(a.Auth, repos.users),
		Tickets:        handlers.NewTicketsHandler(a.Tickets),
		Workflow:       handlers.NewWorkflowHandler(a.Workflow),
		Engineers:      handlers.NewEngineersHandler(a.Engineers),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, repos.users),
		Metrics:        metrics,
	})
	return a, nil
}

// selectRepositories uses Postgres when a pool exists and the in-memory
// store otherwise. Redis, when enabled, hands out ticket sequences and the
// store's own sequence covers for it while it is unreachable.
func selectRepositories(pg *persistence.Postgres, redis *persistence.Redis, clock func() time.Time, logger *zap.Logger) repositories {
	var repos repositories
	if pg.Enabled() {
		pool := pg.PoolHandle()
		repos = repositories{
			tickets:       repository.NewTicketRepository(pool),
			stages:        repository.NewStageRepository(pool),
			comments:      repository.NewCommentRepository(pool),
			ratings:       repository.NewRatingRepository(pool),
			timeline:      repository.NewTimelineRepository(pool),
			users:         repository.NewUserRepository(pool),
			organizations: repository.NewOrganizationRepository(pool),
			transactor:    repository.NewTransactor(pool),
			sequence:      repository.NewTicketSequence(pool),
		}
	} else {
		store := memstore.New()
		if clock != nil {
			store.SetClock(clock)
		}
		repos = repositories{
			tickets:       store.Tickets(),
			stages:        store.Stages(),
			comments:      store.Comments(),
			ratings:       store.Ratings(),
			timeline:      store.Timeline(),
			users:         store.Users(),
			organizations: store.Organizations(),
			transactor:    store,
			sequence:      store,
		}
	}
	if redis.Enabled() {
		repos.sequence = service.NewFallbackSequence(redis, repos.sequence, logger)
	}
	return repos
}

// Close drains pending notifications and releases the backing connections.
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.notifications.Stop(ctx); err != nil {
		a.Logger.Warn("notification queue not drained", zap.Error(err))
	}
	a.Redis.Close()
	a.Postgres.Close()
}
