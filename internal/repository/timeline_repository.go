package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// TimelineRepository stores append-only audit entries.
type TimelineRepository interface {
	Append(ctx context.Context, event *domain.TimelineEvent) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error)
}

type timelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository builds repository.
func NewTimelineRepository(pool *pgxpool.Pool) TimelineRepository {
	return &timelineRepository{pool: pool}
}

func (r *timelineRepository) Append(ctx context.Context, event *domain.TimelineEvent) error {
	const query = `
        INSERT INTO ticket_timeline (ticket_id, kind, actor_id, summary, payload)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	payload := event.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	return conn(ctx, r.pool).QueryRow(ctx, query,
		event.TicketID,
		event.Kind,
		event.ActorID,
		event.Summary,
		payload,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *timelineRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	const query = `
        SELECT id, ticket_id, kind, actor_id, summary, payload, created_at
        FROM ticket_timeline WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.Kind,
			&event.ActorID,
			&event.Summary,
			&event.Payload,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
