package events

import (
	"time"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated     EventType = "ticket_created"
	EventStageSaved        EventType = "stage_saved"
	EventSummaryCompleted  EventType = "summary_completed"
	EventEngineerAssigned  EventType = "engineer_assigned"
	EventCommentAdded      EventType = "comment_added"
	EventCustomerConfirmed EventType = "customer_confirmed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID         string      `json:"user_id"`
	Role           domain.Role `json:"role"`
	OrganizationID string      `json:"organization_id"`
}

// ActorFrom copies the identity of a domain actor.
func ActorFrom(a domain.Actor) Actor {
	return Actor{UserID: a.UserID, Role: a.Role, OrganizationID: a.OrganizationID}
}

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID           string    `json:"id"`
	Type         EventType `json:"type"`
	TicketID     string    `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	CustomerID   string    `json:"customer_id"`
	ProviderID   string    `json:"service_provider_id"`
	Actor        Actor     `json:"actor"`
	Timestamp    time.Time `json:"timestamp"`
	Payload      any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Priority domain.TicketPriority `json:"priority"`
	RobotID  string                `json:"robot_id"`
}

// StageSavedPayload payload.
type StageSavedPayload struct {
	StageType domain.StageType   `json:"stage_type"`
	Status    domain.StageStatus `json:"status"`
}

// SummaryCompletedPayload payload.
type SummaryCompletedPayload struct {
	CompletedAt time.Time `json:"completed_at"`
	Preview     string    `json:"preview"`
}

// EngineerAssignedPayload payload.
type EngineerAssignedPayload struct {
	EngineerID string              `json:"engineer_id"`
	OldStatus  domain.TicketStatus `json:"old_status"`
	NewStatus  domain.TicketStatus `json:"new_status"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}

// CustomerConfirmedPayload payload.
type CustomerConfirmedPayload struct {
	Score int `json:"score"`
}
