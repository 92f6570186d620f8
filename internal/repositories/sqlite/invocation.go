package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"apigw-local/internal/models"
	"apigw-local/internal/repositories"

	"github.com/sirupsen/logrus"
)

const invocationColumns = `id, request_id, function_name, method, path, status_code, outcome,
	principal_id, error_message, duration_ms, created_at`

// InvocationRepository implements repositories.InvocationRepository for SQLite
type InvocationRepository struct {
	db     *sql.DB
	logger *logrus.Logger
	retry  *RetryConfig
}

// NewInvocationRepository creates a new SQLite invocation repository
func NewInvocationRepository(db *sql.DB, logger *logrus.Logger) repositories.InvocationRepository {
	if logger == nil {
		logger = logrus.New()
	}
	return &InvocationRepository{
		db:     db,
		logger: logger,
		retry:  DefaultRetryConfig(),
	}
}

// Create stores a new invocation
func (r *InvocationRepository) Create(ctx context.Context, inv *models.Invocation) error {
	if err := inv.Validate(); err != nil {
		return repositories.Invalid(inv.ID, err)
	}

	query := `INSERT INTO invocations (` + invocationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	err := withRetry(ctx, r.retry, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, query,
			inv.ID,
			inv.RequestID,
			inv.Function,
			inv.Method,
			inv.Path,
			inv.StatusCode,
			inv.Outcome,
			inv.PrincipalID,
			inv.Error,
			inv.DurationMS,
			inv.CreatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return repositories.Duplicate(inv.ID)
		}
		return repositories.NewStoreError("create", inv.ID, err)
	}

	return nil
}

// GetByID retrieves an invocation by ID
func (r *InvocationRepository) GetByID(ctx context.Context, id string) (*models.Invocation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, repositories.NewStoreError("get_by_id", id, repositories.ErrInvalidID)
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+invocationColumns+` FROM invocations WHERE id = ?`, id)
	inv, err := scanInvocation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NotFound(id)
		}
		return nil, repositories.NewStoreError("get_by_id", id, err)
	}
	return inv, nil
}

// List retrieves invocations matching the filter, newest first
func (r *InvocationRepository) List(ctx context.Context, filter models.InvocationFilter) ([]*models.Invocation, error) {
	where, args := buildWhereClause(filter)
	query := `SELECT ` + invocationColumns + ` FROM invocations` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, repositories.NewStoreError("list", "", err)
	}
	defer rows.Close()

	var invocations []*models.Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, repositories.NewStoreError("list", "", err)
		}
		invocations = append(invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewStoreError("list", "", err)
	}

	r.logger.WithFields(logrus.Fields{
		"rows":     len(invocations),
		"duration": time.Since(start),
	}).Debug("Listed invocations")

	return invocations, nil
}

// Count returns the number of invocations matching the filter
func (r *InvocationRepository) Count(ctx context.Context, filter models.InvocationFilter) (int64, error) {
	where, args := buildWhereClause(filter)

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invocations`+where, args...).Scan(&count); err != nil {
		return 0, repositories.NewStoreError("count", "", err)
	}
	return count, nil
}

// Purge deletes invocations created before the cutoff
func (r *InvocationRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	var removed int64
	err := withRetry(ctx, r.retry, func(ctx context.Context) error {
		result, err := r.db.ExecContext(ctx, `DELETE FROM invocations WHERE created_at < ?`, before.UTC())
		if err != nil {
			return err
		}
		removed, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return 0, repositories.NewStoreError("purge", "", err)
	}
	return removed, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(row scanner) (*models.Invocation, error) {
	inv := &models.Invocation{}
	err := row.Scan(
		&inv.ID,
		&inv.RequestID,
		&inv.Function,
		&inv.Method,
		&inv.Path,
		&inv.StatusCode,
		&inv.Outcome,
		&inv.PrincipalID,
		&inv.Error,
		&inv.DurationMS,
		&inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func buildWhereClause(filter models.InvocationFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Function != "" {
		conditions = append(conditions, "function_name = ?")
		args = append(args, filter.Function)
	}
	if filter.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, filter.Outcome)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
