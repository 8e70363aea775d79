package domain

import "time"

// OrganizationKind differentiates the two tenant types.
type OrganizationKind string

const (
	OrganizationServiceProvider OrganizationKind = "service_provider"
	OrganizationCustomer        OrganizationKind = "customer"
)

// Organization is a tenant: a service provider or an end customer.
type Organization struct {
	ID        string
	Name      string
	Kind      OrganizationKind
	CreatedAt time.Time
}

// User is a member of an organization.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	OrganizationID string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Actor returns the identity used to authorize the user's operations.
func (u *User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role, OrganizationID: u.OrganizationID}
}

// EngineerStatus is the derived workload indicator of an engineer.
type EngineerStatus string

const (
	EngineerIdle    EngineerStatus = "idle"
	EngineerWorking EngineerStatus = "working"
	EngineerBusy    EngineerStatus = "busy"
)

// TicketStats aggregates ticket counts per status for one assignee.
type TicketStats struct {
	Total      int
	Open       int
	InProgress int
	Pending    int
	Resolved   int
	Closed     int
}

// Active returns the number of tickets still requiring work.
func (s TicketStats) Active() int {
	return s.Open + s.InProgress
}

// Add counts one ticket with the given status.
func (s *TicketStats) Add(status TicketStatus) {
	s.Total++
	switch status {
	case TicketStatusOpen:
		s.Open++
	case TicketStatusInProgress:
		s.InProgress++
	case TicketStatusPending:
		s.Pending++
	case TicketStatusResolved:
		s.Resolved++
	case TicketStatusClosed:
		s.Closed++
	}
}

// Engineer is a read projection over users and their assigned tickets.
type Engineer struct {
	User          User
	CurrentStatus EngineerStatus
	TicketStats   TicketStats
}
