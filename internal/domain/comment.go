package domain

import "time"

// MaxCommentLength bounds comment and rating remark length, counted in characters.
const MaxCommentLength = 500

// Comment is an append-only remark on a ticket.
type Comment struct {
	ID        string
	TicketID  string
	Content   string
	CreatedBy string
	CreatedAt time.Time
}

// Rating is the customer's confirmation score. At most one exists per ticket.
type Rating struct {
	ID        string
	TicketID  string
	Score     int
	Comment   *string
	CreatedBy string
	CreatedAt time.Time
}

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)
