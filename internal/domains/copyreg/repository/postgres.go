package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/pkg/database"
)

// postgresRepository implements RepositoryInterface
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL copy registry repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{
		pool: pool,
	}
}

const copyColumns = `id, book_id, status, condition, is_archived, created_at, updated_at`

func scanCopy(row pgx.Row, c *model.Copy) error {
	return row.Scan(
		&c.ID,
		&c.BookID,
		&c.Status,
		&c.Condition,
		&c.IsArchived,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}

// Create implements RepositoryInterface.Create
func (r *postgresRepository) Create(ctx context.Context, copy *model.Copy) error {
	query := `
		INSERT INTO copies (
			id, book_id, status, condition, is_archived, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	err := database.WithRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, query,
			copy.ID,
			copy.BookID,
			copy.Status,
			copy.Condition,
			copy.IsArchived,
			copy.CreatedAt,
			copy.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return model.ErrBookNotFound
		}
		return fmt.Errorf("failed to insert copy: %w", err)
	}

	return nil
}

// GetByID implements RepositoryInterface.GetByID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE id = $1`

	var copy model.Copy
	err := database.WithRetry(ctx, func() error {
		return scanCopy(r.pool.QueryRow(ctx, query, id), &copy)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewCopyNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get copy by id: %w", err)
	}

	return &copy, nil
}

// List implements RepositoryInterface.List
func (r *postgresRepository) List(ctx context.Context, filter model.ListCopiesRequest) ([]model.Copy, int, error) {
	queryBuilder := `SELECT ` + copyColumns + ` FROM copies WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM copies WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.BookID != nil {
		clause := fmt.Sprintf(" AND book_id = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.BookID)
		argCount++
	}

	if filter.Status != nil {
		clause := fmt.Sprintf(" AND status = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.Status)
		argCount++
	}

	if !filter.IncludeArchived {
		queryBuilder += " AND is_archived = FALSE"
		countQuery += " AND is_archived = FALSE"
	}

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count copies: %w", err)
	}

	queryBuilder += " ORDER BY created_at DESC, id ASC"
	offset := (filter.Page - 1) * filter.Limit
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list copies: %w", err)
	}
	defer rows.Close()

	copies := make([]model.Copy, 0, filter.Limit)
	for rows.Next() {
		var c model.Copy
		if err := scanCopy(rows, &c); err != nil {
			return nil, 0, fmt.Errorf("failed to scan copy row: %w", err)
		}
		copies = append(copies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating copy rows: %w", err)
	}

	return copies, totalCount, nil
}

// ListByBook implements RepositoryInterface.ListByBook
func (r *postgresRepository) ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.Copy, error) {
	query := `SELECT ` + copyColumns + ` FROM copies WHERE book_id = $1 AND is_archived = FALSE ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query copies by book: %w", err)
	}
	defer rows.Close()

	copies := make([]model.Copy, 0, 8)
	for rows.Next() {
		var c model.Copy
		if err := scanCopy(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan copy: %w", err)
		}
		copies = append(copies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating copy rows: %w", err)
	}

	return copies, nil
}

// CountAvailableByBook implements RepositoryInterface.CountAvailableByBook
func (r *postgresRepository) CountAvailableByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM copies
		WHERE book_id = $1 AND status = $2 AND is_archived = FALSE
	`

	var count int
	err := database.WithRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, bookID, model.StatusAvailable).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count available copies: %w", err)
	}

	return count, nil
}

// UpdateStatusIf implements RepositoryInterface.UpdateStatusIf.
// The WHERE clause on the current status is the compare-and-swap that makes
// a grant atomic: of two concurrent approvals, exactly one matches the row.
func (r *postgresRepository) UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.CopyStatus) error {
	query := `
		UPDATE copies
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND is_archived = FALSE
	`

	var result pgconn.CommandTag
	err := database.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.Exec(ctx, query, id, from, to)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to update copy status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish missing copy from a lost race.
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM copies WHERE id = $1)`
		if checkErr := r.pool.QueryRow(ctx, checkQuery, id).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check copy existence: %w", checkErr)
		}

		if !exists {
			return model.NewCopyNotFoundError(id)
		}

		return fmt.Errorf("%w: expected %s", model.ErrStatusConflict, from)
	}

	return nil
}

// SetCondition implements RepositoryInterface.SetCondition
func (r *postgresRepository) SetCondition(ctx context.Context, id uuid.UUID, condition string) error {
	query := `UPDATE copies SET condition = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, condition)
	if err != nil {
		return fmt.Errorf("failed to set copy condition: %w", err)
	}

	if result.RowsAffected() == 0 {
		return model.NewCopyNotFoundError(id)
	}

	return nil
}

// Archive implements RepositoryInterface.Archive. Copies that are on loan or
// held for a reservation cannot be archived.
func (r *postgresRepository) Archive(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE copies
		SET is_archived = TRUE, updated_at = NOW()
		WHERE id = $1 AND status NOT IN ($2, $3)
	`

	result, err := r.pool.Exec(ctx, query, id, model.StatusBorrowed, model.StatusReserved)
	if err != nil {
		return fmt.Errorf("failed to archive copy: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM copies WHERE id = $1)`
		if checkErr := r.pool.QueryRow(ctx, checkQuery, id).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check copy existence: %w", checkErr)
		}

		if !exists {
			return model.NewCopyNotFoundError(id)
		}

		return model.ErrCopyBorrowed
	}

	return nil
}
