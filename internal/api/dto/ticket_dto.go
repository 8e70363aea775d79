package dto

import (
	"time"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// CreateTicketRequest payload. Customers name the service provider; providers
// name the customer.
type CreateTicketRequest struct {
	Title             string                `json:"title" validate:"required,max=200"`
	Description       string                `json:"description" validate:"max=10000"`
	Priority          domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	RobotID           string                `json:"robot_id" validate:"required,max=100"`
	ServiceProviderID string                `json:"service_provider_id"`
	CustomerID        string                `json:"customer_id"`
	DueDate           *time.Time            `json:"due_date"`
}

// TicketSummary response.
type TicketSummary struct {
	ID                string                `json:"id"`
	TicketNumber      string                `json:"ticket_number"`
	Title             string                `json:"title"`
	Status            domain.TicketStatus   `json:"status"`
	Priority          domain.TicketPriority `json:"priority"`
	CustomerID        string                `json:"customer_id"`
	ServiceProviderID string                `json:"service_provider_id"`
	RobotID           string                `json:"robot_id"`
	AssignedTo        *string               `json:"assigned_to"`
	DueDate           *time.Time            `json:"due_date"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides the full ticket view.
type TicketDetailResponse struct {
	TicketSummary
	Description string             `json:"description"`
	CreatedBy   string             `json:"created_by"`
	Stages      []StageResponse    `json:"stages"`
	Comments    []CommentResponse  `json:"comments"`
	Rating      *RatingResponse    `json:"rating"`
	Timeline    []TimelineResponse `json:"timeline"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,max=500"`
}

// CommentResponse represents one comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingResponse represents the customer's rating.
type RatingResponse struct {
	Score     int       `json:"score"`
	Comment   *string   `json:"comment"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TimelineResponse is one audit entry.
type TimelineResponse struct {
	ID        string              `json:"id"`
	Kind      domain.TimelineKind `json:"kind"`
	ActorID   string              `json:"actor_id"`
	Summary   string              `json:"summary"`
	Payload   map[string]any      `json:"payload"`
	CreatedAt time.Time           `json:"created_at"`
}
