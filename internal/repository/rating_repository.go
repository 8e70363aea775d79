package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// RatingRepository stores the single customer rating of a ticket.
type RatingRepository interface {
	// Create returns ErrDuplicate when the ticket already has a rating.
	Create(ctx context.Context, rating *domain.Rating) error
	GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error)
}

type ratingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository builds repository.
func NewRatingRepository(pool *pgxpool.Pool) RatingRepository {
	return &ratingRepository{pool: pool}
}

func (r *ratingRepository) Create(ctx context.Context, rating *domain.Rating) error {
	const query = `
        INSERT INTO ticket_ratings (ticket_id, score, comment, created_by)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		rating.TicketID,
		rating.Score,
		rating.Comment,
		rating.CreatedBy,
	).Scan(&rating.ID, &rating.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ratingRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.Rating, error) {
	const query = `
        SELECT id, ticket_id, score, comment, created_by, created_at
        FROM ticket_ratings WHERE ticket_id=$1`
	var rating domain.Rating
	if err := conn(ctx, r.pool).QueryRow(ctx, query, ticketID).Scan(
		&rating.ID,
		&rating.TicketID,
		&rating.Score,
		&rating.Comment,
		&rating.CreatedBy,
		&rating.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &rating, nil
}
