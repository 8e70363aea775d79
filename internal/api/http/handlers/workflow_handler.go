package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/api/dto"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/service"
)

// WorkflowHandler exposes the stage and confirmation transitions.
type WorkflowHandler struct {
	workflow *service.WorkflowService
}

// NewWorkflowHandler constructs handler.
func NewWorkflowHandler(workflow *service.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflow: workflow}
}

// SaveStage PUT /tickets/:id/stages/:stageType.
func (h *WorkflowHandler) SaveStage(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.SaveStageRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	attachments := make([]domain.Attachment, 0, len(req.Attachments))
	for _, att := range req.Attachments {
		attachments = append(attachments, domain.Attachment{
			StorageKey: att.StorageKey,
			FileName:   att.FileName,
			MimeType:   att.MimeType,
			SizeBytes:  att.SizeBytes,
			URL:        att.URL,
		})
	}
	stage, err := h.workflow.SaveStage(c.UserContext(), actor, c.Params("id"), domain.StageType(c.Params("stageType")), service.StageInput{
		Content:      req.Content,
		Attachments:  attachments,
		ExpectedDate: req.ExpectedDate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stageResponse(stage)})
}

// AssignEngineer POST /tickets/:id/assign.
func (h *WorkflowHandler) AssignEngineer(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignEngineerRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	ticket, err := h.workflow.AssignEngineer(c.UserContext(), actor, c.Params("id"), req.EngineerID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CompleteSummary POST /tickets/:id/summary/complete.
func (h *WorkflowHandler) CompleteSummary(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CompleteSummaryRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	stage, err := h.workflow.CompleteSummary(c.UserContext(), actor, c.Params("id"), req.SummaryContent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stageResponse(stage)})
}

// ConfirmByCustomer POST /tickets/:id/confirm.
func (h *WorkflowHandler) ConfirmByCustomer(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.ConfirmRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	rating, err := h.workflow.ConfirmByCustomer(c.UserContext(), actor, c.Params("id"), req.Score, req.Comment)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.RatingResponse{
		Score:     rating.Score,
		Comment:   rating.Comment,
		CreatedBy: rating.CreatedBy,
		CreatedAt: rating.CreatedAt,
	}})
}
