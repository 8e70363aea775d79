package memstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/robotcare/maintenance-service/internal/domain"
)

type organizationRepo struct {
	s *Store
}

func (r *organizationRepo) Create(ctx context.Context, org *domain.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if org.ID == "" {
		org.ID = newID()
	}
	org.CreatedAt = r.s.now()
	r.s.organizations[org.ID] = *org
	id := org.ID
	onRollback(ctx, func() { delete(r.s.organizations, id) })
	return nil
}

func (r *organizationRepo) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	org, ok := r.s.organizations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &org, nil
}
