package dto

import (
	"time"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// AttachmentPayload references a blob in the file store.
type AttachmentPayload struct {
	StorageKey string `json:"storage_key" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes" validate:"gte=0"`
	URL        string `json:"url" validate:"omitempty,url"`
}

// SaveStageRequest payload. Content requirements depend on the stage type and
// are checked by the workflow.
type SaveStageRequest struct {
	Content      string              `json:"content" validate:"max=10000"`
	Attachments  []AttachmentPayload `json:"attachments" validate:"dive"`
	ExpectedDate *time.Time          `json:"expected_date"`
}

// AssignEngineerRequest payload.
type AssignEngineerRequest struct {
	EngineerID string `json:"engineer_id" validate:"required"`
}

// CompleteSummaryRequest payload. Empty content completes the saved summary.
type CompleteSummaryRequest struct {
	SummaryContent string `json:"summary_content" validate:"max=10000"`
}

// ConfirmRequest payload.
type ConfirmRequest struct {
	Score   int     `json:"score" validate:"gte=1,lte=5"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

// StageResponse is a stage with its derived schedule span.
type StageResponse struct {
	ID           string              `json:"id"`
	StageType    domain.StageType    `json:"stage_type"`
	Content      string              `json:"content"`
	Attachments  []domain.Attachment `json:"attachments"`
	ExpectedDate *time.Time          `json:"expected_date"`
	Status       domain.StageStatus  `json:"status"`
	CreatedBy    string              `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	CompletedAt  *time.Time          `json:"completed_at"`
	Gantt        *GanttResponse      `json:"gantt,omitempty"`
}

// GanttResponse is the derived start and end of a stage.
type GanttResponse struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// EngineerResponse is the engineer workload projection.
type EngineerResponse struct {
	ID            string                `json:"id"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	CurrentStatus domain.EngineerStatus `json:"current_status"`
	TicketStats   TicketStatsResponse   `json:"ticket_stats"`
}

// TicketStatsResponse aggregates assigned tickets by status.
type TicketStatsResponse struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
	Resolved   int `json:"resolved"`
	Closed     int `json:"closed"`
}
