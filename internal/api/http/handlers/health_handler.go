package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/persistence"
)

const readinessTimeout = 2 * time.Second

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	startedAt   time.Time
	postgres    *persistence.Postgres
	redis       *persistence.Redis
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		startedAt:   time.Now(),
		postgres:    postgres,
		redis:       redis,
	}
}

type dependencyCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms,omitempty"`
	Error     string `json:"error,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         "alive",
		"service":        h.serviceName,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Ready reports readiness. Disabled backends do not fail the probe; the
// in-memory store serves in place of Postgres.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	pg := check(ctx, h.postgres.Enabled(), h.postgres.Ping)
	if h.postgres.Enabled() {
		pg.Details = h.postgres.Stats()
	} else {
		pg.Details = fiber.Map{"store": "memory"}
	}
	deps := fiber.Map{
		"postgres": pg,
		"redis":    check(ctx, h.redis.Enabled(), h.redis.Ping),
	}

	if pg.Status == "down" || deps["redis"].(dependencyCheck).Status == "down" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    "DEPENDENCY_UNAVAILABLE",
				"message": "one or more dependencies unavailable",
				"details": deps,
			},
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": deps})
}

func check(ctx context.Context, enabled bool, ping func(context.Context) error) dependencyCheck {
	if !enabled {
		return dependencyCheck{Status: "disabled"}
	}
	start := time.Now()
	err := ping(ctx)
	result := dependencyCheck{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		result.Status = "down"
		result.Error = err.Error()
	}
	return result
}
