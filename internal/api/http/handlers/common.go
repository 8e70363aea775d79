package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/robotcare/maintenance-service/internal/api/dto"
	"github.com/robotcare/maintenance-service/internal/auth"
	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/service"
	apperrors "github.com/robotcare/maintenance-service/pkg/util"
)

func actorFrom(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

// bindJSON parses and validates the request body.
func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return apperrors.ValidateStruct(out)
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	val := c.Query(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return defaultVal
	}
	return parsed
}

func splitQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:                ticket.ID,
		TicketNumber:      ticket.TicketNumber,
		Title:             ticket.Title,
		Status:            ticket.Status,
		Priority:          ticket.Priority,
		CustomerID:        ticket.CustomerID,
		ServiceProviderID: ticket.ServiceProviderID,
		RobotID:           ticket.RobotID,
		AssignedTo:        ticket.AssignedTo,
		DueDate:           ticket.DueDate,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	stages := make([]dto.StageResponse, 0, len(detail.Stages))
	for _, view := range detail.Stages {
		resp := stageResponse(&view.Stage)
		if view.Span != nil {
			resp.Gantt = &dto.GanttResponse{StartDate: view.Span.Start, EndDate: view.Span.End}
		}
		stages = append(stages, resp)
	}
	comments := make([]dto.CommentResponse, 0, len(detail.Comments))
	for i := range detail.Comments {
		comments = append(comments, commentResponse(&detail.Comments[i]))
	}
	var rating *dto.RatingResponse
	if detail.Rating != nil {
		rating = &dto.RatingResponse{
			Score:     detail.Rating.Score,
			Comment:   detail.Rating.Comment,
			CreatedBy: detail.Rating.CreatedBy,
			CreatedAt: detail.Rating.CreatedAt,
		}
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(&detail.Ticket),
		Description:   detail.Ticket.Description,
		CreatedBy:     detail.Ticket.CreatedBy,
		Stages:        stages,
		Comments:      comments,
		Rating:        rating,
		Timeline:      timelineResponses(detail.Timeline),
	}
}

func stageResponse(stage *domain.Stage) dto.StageResponse {
	attachments := stage.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return dto.StageResponse{
		ID:           stage.ID,
		StageType:    stage.StageType,
		Content:      stage.Content,
		Attachments:  attachments,
		ExpectedDate: stage.ExpectedDate,
		Status:       stage.Status,
		CreatedBy:    stage.CreatedBy,
		CreatedAt:    stage.CreatedAt,
		UpdatedAt:    stage.UpdatedAt,
		CompletedAt:  stage.CompletedAt,
	}
}

func commentResponse(comment *domain.Comment) dto.CommentResponse {
	return dto.CommentResponse{
		ID:        comment.ID,
		Content:   comment.Content,
		CreatedBy: comment.CreatedBy,
		CreatedAt: comment.CreatedAt,
	}
}

func timelineResponses(entries []domain.TimelineEvent) []dto.TimelineResponse {
	resp := make([]dto.TimelineResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TimelineResponse{
			ID:        entry.ID,
			Kind:      entry.Kind,
			ActorID:   entry.ActorID,
			Summary:   entry.Summary,
			Payload:   entry.Payload,
			CreatedAt: entry.CreatedAt,
		})
	}
	return resp
}
