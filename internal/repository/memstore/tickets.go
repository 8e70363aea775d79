package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/repository"
)

type ticketRepo struct {
	s *Store
}

func cloneTicket(t domain.Ticket) *domain.Ticket {
	t.AssignedTo = copyString(t.AssignedTo)
	t.DueDate = copyTime(t.DueDate)
	return &t
}

func (r *ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.tickets {
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrDuplicate
		}
	}
	if ticket.ID == "" {
		ticket.ID = newID()
	}
	now := r.s.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.s.tickets[ticket.ID] = *cloneTicket(*ticket)
	id := ticket.ID
	onRollback(ctx, func() { delete(r.s.tickets, id) })
	return nil
}

func (r *ticketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ticket, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

// update applies fn to the stored ticket and records the previous value for rollback.
func (r *ticketRepo) update(ctx context.Context, id string, fn func(t *domain.Ticket)) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	next := cloneTicket(prev)
	fn(next)
	next.UpdatedAt = r.s.now()
	r.s.tickets[id] = *next
	onRollback(ctx, func() { r.s.tickets[id] = prev })
	return cloneTicket(*next), nil
}

func (r *ticketRepo) Assign(ctx context.Context, id, engineerID string) (*domain.Ticket, error) {
	return r.update(ctx, id, func(t *domain.Ticket) {
		t.AssignedTo = &engineerID
		if t.Status == domain.TicketStatusOpen {
			t.Status = domain.TicketStatusInProgress
		}
	})
}

func (r *ticketRepo) UpdateDescription(ctx context.Context, id, description string) error {
	_, err := r.update(ctx, id, func(t *domain.Ticket) {
		t.Description = description
	})
	return err
}

func (r *ticketRepo) MarkResolved(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.update(ctx, id, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusResolved
	})
}

func (r *ticketRepo) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var search string
	if filter.SearchTerm != nil {
		search = strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
	}

	var matched []domain.Ticket
	for _, t := range r.s.tickets {
		if filter.OrganizationID != nil && !t.VisibleTo(*filter.OrganizationID) {
			continue
		}
		if filter.AssignedTo != nil && (t.AssignedTo == nil || *t.AssignedTo != *filter.AssignedTo) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, t.Priority) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.TicketNumber), search) {
			continue
		}
		matched = append(matched, *cloneTicket(t))
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].TicketNumber > matched[j].TicketNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *ticketRepo) StatsByAssignee(_ context.Context, serviceProviderID string) (map[string]domain.TicketStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := make(map[string]domain.TicketStats)
	for _, t := range r.s.tickets {
		if t.ServiceProviderID != serviceProviderID || t.AssignedTo == nil {
			continue
		}
		s := stats[*t.AssignedTo]
		s.Add(t.Status)
		stats[*t.AssignedTo] = s
	}
	return stats, nil
}

func containsStatus(list []domain.TicketStatus, v domain.TicketStatus) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, v domain.TicketPriority) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
