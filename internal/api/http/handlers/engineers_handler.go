package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/api/dto"
	"github.com/robotcare/maintenance-service/internal/service"
)

// EngineersHandler lists engineers with their workload.
type EngineersHandler struct {
	engineers *service.EngineerService
}

// NewEngineersHandler constructs handler.
func NewEngineersHandler(engineers *service.EngineerService) *EngineersHandler {
	return &EngineersHandler{engineers: engineers}
}

// ListEngineers GET /engineers.
func (h *EngineersHandler) ListEngineers(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	engineers, err := h.engineers.ListEngineers(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.EngineerResponse, 0, len(engineers))
	for _, e := range engineers {
		items = append(items, dto.EngineerResponse{
			ID:            e.User.ID,
			Name:          e.User.Name,
			Email:         e.User.Email,
			CurrentStatus: e.CurrentStatus,
			TicketStats: dto.TicketStatsResponse{
				Total:      e.TicketStats.Total,
				Open:       e.TicketStats.Open,
				InProgress: e.TicketStats.InProgress,
				Pending:    e.TicketStats.Pending,
				Resolved:   e.TicketStats.Resolved,
				Closed:     e.TicketStats.Closed,
			},
		})
	}
	return c.JSON(fiber.Map{"data": items})
}
