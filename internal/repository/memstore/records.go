package memstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
)

type commentRepo struct {
	s *Store
}

func (r *commentRepo) Create(ctx context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if comment.ID == "" {
		comment.ID = newID()
	}
	comment.CreatedAt = r.s.now()
	ticketID, id := comment.TicketID, comment.ID
	r.s.comments[ticketID] = append(r.s.comments[ticketID], *comment)
	onRollback(ctx, func() {
		r.s.comments[ticketID] = removeByID(r.s.comments[ticketID], id, func(c domain.Comment) string { return c.ID })
	})
	return nil
}

func (r *commentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]domain.Comment(nil), r.s.comments[ticketID]...), nil
}

type ratingRepo struct {
	s *Store
}

func (r *ratingRepo) Create(ctx context.Context, rating *domain.Rating) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.ratings[rating.TicketID]; exists {
		return repository.ErrDuplicate
	}
	if rating.ID == "" {
		rating.ID = newID()
	}
	rating.CreatedAt = r.s.now()
	stored := *rating
	stored.Comment = copyString(rating.Comment)
	r.s.ratings[rating.TicketID] = stored
	ticketID := rating.TicketID
	onRollback(ctx, func() { delete(r.s.ratings, ticketID) })
	return nil
}

func (r *ratingRepo) GetByTicket(_ context.Context, ticketID string) (*domain.Rating, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rating, ok := r.s.ratings[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	rating.Comment = copyString(rating.Comment)
	return &rating, nil
}

type timelineRepo struct {
	s *Store
}

func (r *timelineRepo) Append(ctx context.Context, event *domain.TimelineEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if event.ID == "" {
		event.ID = newID()
	}
	event.CreatedAt = r.s.now()
	ticketID, id := event.TicketID, event.ID
	r.s.timeline[ticketID] = append(r.s.timeline[ticketID], *event)
	onRollback(ctx, func() {
		r.s.timeline[ticketID] = removeByID(r.s.timeline[ticketID], id, func(e domain.TimelineEvent) string { return e.ID })
	})
	return nil
}

func (r *timelineRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TimelineEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return append([]domain.TimelineEvent(nil), r.s.timeline[ticketID]...), nil
}

func removeByID[T any](items []T, id string, idOf func(T) string) []T {
	out := items[:0]
	for _, item := range items {
		if idOf(item) != id {
			out = append(out, item)
		}
	}
	return out
}
