package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// OrganizationRepository manages tenants.
type OrganizationRepository interface {
	Create(ctx context.Context, org *domain.Organization) error
	GetByID(ctx context.Context, id string) (*domain.Organization, error)
}

type organizationRepository struct {
	pool *pgxpool.Pool
}

// NewOrganizationRepository builds repository.
func NewOrganizationRepository(pool *pgxpool.Pool) OrganizationRepository {
	return &organizationRepository{pool: pool}
}

func (r *organizationRepository) Create(ctx context.Context, org *domain.Organization) error {
	const query = `
        INSERT INTO organizations (name, kind)
        VALUES ($1,$2)
        RETURNING id, created_at`
	return conn(ctx, r.pool).QueryRow(ctx, query, org.Name, org.Kind).Scan(&org.ID, &org.CreatedAt)
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	const query = `SELECT id, name, kind, created_at FROM organizations WHERE id=$1`
	var org domain.Organization
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&org.ID, &org.Name, &org.Kind, &org.CreatedAt); err != nil {
		return nil, err
	}
	return &org, nil
}
