package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is a reported robot issue and its resolution lifecycle.
//
// Status is protected: it only changes through the workflow operations
// (assignment and customer confirmation), never through a generic update.
type Ticket struct {
	ID                string
	TicketNumber      string
	Title             string
	Description       string
	Status            TicketStatus
	Priority          TicketPriority
	CustomerID        string
	RobotID           string
	ServiceProviderID string
	AssignedTo        *string
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	DueDate           *time.Time
}

// VisibleTo reports whether the organization is one of the two parties of the ticket.
func (t *Ticket) VisibleTo(organizationID string) bool {
	if t == nil || organizationID == "" {
		return false
	}
	return t.CustomerID == organizationID || t.ServiceProviderID == organizationID
}
