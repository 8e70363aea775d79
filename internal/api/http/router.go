package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/api/http/handlers"
	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Engineers      *handlers.EngineersHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Users.Login)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Users.Me)

	tickets := protected.Group("/tickets")
	tickets.Get("/", auth.RequireOperation(auth.OpViewTicket), cfg.Tickets.ListTickets)
	tickets.Post("/", auth.RequireOperation(auth.OpCreateTicket), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", auth.RequireOperation(auth.OpViewTicket), cfg.Tickets.GetTicket)
	tickets.Get("/:id/timeline", auth.RequireOperation(auth.OpViewTicket), cfg.Tickets.ListTimeline)
	tickets.Post("/:id/comments", auth.RequireOperation(auth.OpComment), cfg.Tickets.AddComment)

	// Stage writes are gated per stage type inside the workflow.
	tickets.Put("/:id/stages/:stageType", cfg.Workflow.SaveStage)
	tickets.Post("/:id/assign", auth.RequireOperation(auth.OpAssignEngineer), cfg.Workflow.AssignEngineer)
	tickets.Post("/:id/summary/complete", auth.RequireOperation(auth.OpCompleteSummary), cfg.Workflow.CompleteSummary)
	tickets.Post("/:id/confirm", auth.RequireOperation(auth.OpConfirmByCustomer), cfg.Workflow.ConfirmByCustomer)

	protected.Get("/engineers", auth.RequireOperation(auth.OpListEngineers), cfg.Engineers.ListEngineers)
}
