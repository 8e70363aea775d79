package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// StageRepository persists ticket stages keyed by (ticket_id, stage_type).
type StageRepository interface {
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Stage, error)
	Get(ctx context.Context, ticketID string, stageType domain.StageType) (*domain.Stage, error)
	// Upsert creates the stage as in_progress or updates content, attachments and
	// expected date in place. Status is left untouched on update. A completed
	// customer_confirmation stage is frozen: Upsert returns ErrAlreadyCompleted.
	Upsert(ctx context.Context, stage *domain.Stage) error
	// Complete writes content (empty keeps the stored content) and marks the stage
	// completed in one conditional write. It returns ErrAlreadyCompleted when the
	// stage was completed before.
	Complete(ctx context.Context, stage *domain.Stage) error
}

type stageRepository struct {
	pool *pgxpool.Pool
}

// NewStageRepository builds repository.
func NewStageRepository(pool *pgxpool.Pool) StageRepository {
	return &stageRepository{pool: pool}
}

const stageColumns = `id, ticket_id, stage_type, content, attachments, expected_date, status,
               created_by, created_at, updated_at, completed_at`

func (r *stageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM ticket_stages WHERE ticket_id=$1`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Stage
	for rows.Next() {
		stage, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *stage)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	domain.SortStages(result)
	return result, nil
}

func (r *stageRepository) Get(ctx context.Context, ticketID string, stageType domain.StageType) (*domain.Stage, error) {
	query := `SELECT ` + stageColumns + ` FROM ticket_stages WHERE ticket_id=$1 AND stage_type=$2`
	return scanStage(conn(ctx, r.pool).QueryRow(ctx, query, ticketID, stageType))
}

func (r *stageRepository) Upsert(ctx context.Context, stage *domain.Stage) error {
	query := `
        INSERT INTO ticket_stages (ticket_id, stage_type, content, attachments, expected_date, status, created_by)
        VALUES ($1,$2,$3,$4,$5,'in_progress',$6)
        ON CONFLICT (ticket_id, stage_type) DO UPDATE SET
            content=EXCLUDED.content,
            attachments=EXCLUDED.attachments,
            expected_date=EXCLUDED.expected_date,
            updated_at=NOW()
        WHERE ticket_stages.stage_type <> 'customer_confirmation' OR ticket_stages.status <> 'completed'
        RETURNING ` + stageColumns
	saved, err := scanStage(conn(ctx, r.pool).QueryRow(ctx, query,
		stage.TicketID,
		stage.StageType,
		stage.Content,
		attachmentsOrEmpty(stage.Attachments),
		stage.ExpectedDate,
		stage.CreatedBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyCompleted
	}
	if err != nil {
		return err
	}
	*stage = *saved
	return nil
}

func (r *stageRepository) Complete(ctx context.Context, stage *domain.Stage) error {
	query := `
        INSERT INTO ticket_stages (ticket_id, stage_type, content, attachments, status, created_by, completed_at)
        VALUES ($1,$2,$3,'[]'::jsonb,'completed',$4,NOW())
        ON CONFLICT (ticket_id, stage_type) DO UPDATE SET
            content = CASE WHEN EXCLUDED.content = '' THEN ticket_stages.content ELSE EXCLUDED.content END,
            status='completed',
            completed_at=EXCLUDED.completed_at,
            updated_at=NOW()
        WHERE ticket_stages.status <> 'completed'
        RETURNING ` + stageColumns
	saved, err := scanStage(conn(ctx, r.pool).QueryRow(ctx, query,
		stage.TicketID,
		stage.StageType,
		stage.Content,
		stage.CreatedBy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlreadyCompleted
	}
	if err != nil {
		return err
	}
	*stage = *saved
	return nil
}

func scanStage(row pgx.Row) (*domain.Stage, error) {
	var stage domain.Stage
	if err := row.Scan(
		&stage.ID,
		&stage.TicketID,
		&stage.StageType,
		&stage.Content,
		&stage.Attachments,
		&stage.ExpectedDate,
		&stage.Status,
		&stage.CreatedBy,
		&stage.CreatedAt,
		&stage.UpdatedAt,
		&stage.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &stage, nil
}

func attachmentsOrEmpty(attachments []domain.Attachment) []domain.Attachment {
	if attachments == nil {
		return []domain.Attachment{}
	}
	return attachments
}
