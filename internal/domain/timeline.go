package domain

import "time"

// TimelineKind captures which mutation produced a timeline entry.
type TimelineKind string

const (
	TimelineTicketCreated     TimelineKind = "ticket_created"
	TimelineStageSaved        TimelineKind = "stage_saved"
	TimelineStageCompleted    TimelineKind = "stage_completed"
	TimelineEngineerAssigned  TimelineKind = "engineer_assigned"
	TimelineCommentAdded      TimelineKind = "comment_added"
	TimelineCustomerConfirmed TimelineKind = "customer_confirmed"
)

// TimelineEvent is an immutable audit entry derived from a ticket mutation.
type TimelineEvent struct {
	ID        string
	TicketID  string
	Kind      TimelineKind
	ActorID   string
	Summary   string
	Payload   map[string]any
	CreatedAt time.Time
}
