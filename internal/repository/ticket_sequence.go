package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketSequence derives the next per-day ticket number from stored tickets.
// It is used when Redis is unavailable; collisions surface as ErrDuplicate on insert.
type TicketSequence struct {
	pool *pgxpool.Pool
}

// NewTicketSequence builds the Postgres backed sequence.
func NewTicketSequence(pool *pgxpool.Pool) *TicketSequence {
	return &TicketSequence{pool: pool}
}

// NextTicketSequence returns one more than the highest sequence issued for the day.
func (s *TicketSequence) NextTicketSequence(ctx context.Context, day time.Time) (int64, error) {
	const query = `
        SELECT COALESCE(MAX(SUBSTRING(ticket_number FROM 13)::bigint), 0) + 1
        FROM tickets WHERE ticket_number LIKE $1`
	var next int64
	prefix := "RC-" + day.UTC().Format("20060102") + "-%"
	if err := conn(ctx, s.pool).QueryRow(ctx, query, prefix).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}
