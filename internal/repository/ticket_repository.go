package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/robotcare/maintenance-service/internal/domain"
)

// TicketFilter captures listing parameters. OrganizationID matches either party.
type TicketFilter struct {
	OrganizationID *string
	AssignedTo     *string
	Statuses       []domain.TicketStatus
	Priorities     []domain.TicketPriority
	SearchTerm     *string
	Limit          int
	Offset         int
}

// TicketRepository encapsulates ticket persistence.
//
// There is deliberately no generic Update: status only moves through Assign and MarkResolved.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Assign(ctx context.Context, id, engineerID string) (*domain.Ticket, error)
	UpdateDescription(ctx context.Context, id, description string) error
	MarkResolved(ctx context.Context, id string) (*domain.Ticket, error)
	StatsByAssignee(ctx context.Context, serviceProviderID string) (map[string]domain.TicketStats, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, title, description, status, priority, customer_id, robot_id,
               service_provider_id, assigned_to, created_by, created_at, updated_at, due_date`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_number, title, description, status, priority, customer_id, robot_id,
            service_provider_id, assigned_to, created_by, due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err := withSavepoint(ctx, r.pool, func(db DBTX) error {
		return db.QueryRow(ctx, query,
			ticket.TicketNumber,
			ticket.Title,
			ticket.Description,
			ticket.Status,
			ticket.Priority,
			ticket.CustomerID,
			ticket.RobotID,
			ticket.ServiceProviderID,
			ticket.AssignedTo,
			ticket.CreatedBy,
			ticket.DueDate,
		).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

// Assign sets the engineer and moves an open ticket to in_progress in one statement,
// so concurrent assignments cannot observe a stale status.
func (r *ticketRepository) Assign(ctx context.Context, id, engineerID string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET assigned_to=$1,
            status = CASE WHEN status = 'open' THEN 'in_progress' ELSE status END,
            updated_at=NOW()
        WHERE id=$2
        RETURNING ` + ticketColumns
	return scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, engineerID, id))
}

func (r *ticketRepository) UpdateDescription(ctx context.Context, id, description string) error {
	const query = `UPDATE tickets SET description=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, description, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) MarkResolved(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET status='resolved', updated_at=NOW()
        WHERE id=$1
        RETURNING ` + ticketColumns
	return scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		clauses = append(clauses, fmt.Sprintf("(customer_id=$%d OR service_provider_id=$%d)", len(args), len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(ticket_number) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) StatsByAssignee(ctx context.Context, serviceProviderID string) (map[string]domain.TicketStats, error) {
	const query = `
        SELECT assigned_to, status, COUNT(*)
        FROM tickets
        WHERE service_provider_id=$1 AND assigned_to IS NOT NULL
        GROUP BY assigned_to, status`
	rows, err := conn(ctx, r.pool).Query(ctx, query, serviceProviderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]domain.TicketStats)
	for rows.Next() {
		var (
			assignee string
			status   domain.TicketStatus
			count    int
		)
		if err := rows.Scan(&assignee, &status, &count); err != nil {
			return nil, err
		}
		s := stats[assignee]
		for i := 0; i < count; i++ {
			s.Add(status)
		}
		stats[assignee] = s
	}
	return stats, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CustomerID,
		&ticket.RobotID,
		&ticket.ServiceProviderID,
		&ticket.AssignedTo,
		&ticket.CreatedBy,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.DueDate,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
