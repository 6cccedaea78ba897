package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/evanildobarros/isotek-qms/database"
	"github.com/evanildobarros/isotek-qms/domains/assignments/be/service"
)

const assignmentColumns = `id, auditor_id, tenant_id, start_date, end_date, status, agreed_amount, notes, created_by, created_at, updated_at, completed_at`

// PostgresRepository persists assignments in the platform schema. The status
// column is only ever written through the conditional update in
// CompareAndSwapStatus, which is what makes concurrent completions safe.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository applies the table DDL and returns a repository bound to pool.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		panic("assignments repository requires pool")
	}
	if _, err := pool.Exec(ctx, sqlassets.AuditAssignmentsSQL); err != nil {
		return nil, fmt.Errorf("ensure audit_assignments table: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_assignments (`+assignmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.AuditorID, a.TenantID, a.StartDate, a.EndDate, string(a.Status),
		a.AgreedAmount, a.Notes, a.CreatedBy, a.CreatedAt, a.UpdatedAt, a.CompletedAt,
	)
	if err != nil {
		return service.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Assignment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assignmentColumns+` FROM audit_assignments WHERE id = $1`, id)
	return scanAssignment(row)
}

func (r *PostgresRepository) Update(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE audit_assignments
		SET end_date = $2, agreed_amount = $3, notes = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+assignmentColumns,
		a.ID, a.EndDate, a.AgreedAmount, a.Notes, a.UpdatedAt,
	)
	return scanAssignment(row)
}

func (r *PostgresRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, expected, target service.Status, at time.Time) (service.Assignment, error) {
	var completedAt *time.Time
	if target == service.StatusCompleted {
		completedAt = &at
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE audit_assignments
		SET status = $3, updated_at = $4, completed_at = COALESCE($5, completed_at)
		WHERE id = $1 AND status = $2
		RETURNING `+assignmentColumns,
		id, string(expected), string(target), at, completedAt,
	)

	a, err := scanAssignment(row)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, service.ErrNotFound) {
		return service.Assignment{}, err
	}

	// No row matched: either the assignment is unknown or the status moved
	// underneath us. Disambiguate with a plain read.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return service.Assignment{}, getErr
	}
	return service.Assignment{}, service.ErrStatusConflict
}

func (r *PostgresRepository) ListByAuditor(ctx context.Context, auditorID string) ([]service.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+` FROM audit_assignments
		WHERE auditor_id = $1 ORDER BY created_at`, auditorID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by auditor: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]service.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+` FROM audit_assignments
		WHERE tenant_id = $1 ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list assignments by tenant: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (service.Assignment, error) {
	var (
		a      service.Assignment
		status string
	)
	err := row.Scan(
		&a.ID, &a.AuditorID, &a.TenantID, &a.StartDate, &a.EndDate, &status,
		&a.AgreedAmount, &a.Notes, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &a.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Assignment{}, service.ErrNotFound
		}
		return service.Assignment{}, fmt.Errorf("scan assignment: %w", err)
	}

	parsed, err := service.ParseStatus(status)
	if err != nil {
		return service.Assignment{}, err
	}
	a.Status = parsed
	return a, nil
}

func collectAssignments(rows pgx.Rows) ([]service.Assignment, error) {
	items := make([]service.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return items, nil
}
