package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"circulation-backend/internal/domains/borrow/model"
	"circulation-backend/pkg/database"
)

// postgresRepository implements RepositoryInterface
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL borrow record repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{
		pool: pool,
	}
}

const borrowColumns = `
	id, reader_id, copy_id, librarian_id, reader_class, status,
	borrow_date, due_date, return_date, renewal_count, notes,
	created_at, updated_at`

func scanBorrow(row pgx.Row, b *model.BorrowRecord) error {
	return row.Scan(
		&b.ID,
		&b.ReaderID,
		&b.CopyID,
		&b.LibrarianID,
		&b.ReaderClass,
		&b.Status,
		&b.BorrowDate,
		&b.DueDate,
		&b.ReturnDate,
		&b.RenewalCount,
		&b.Notes,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

const insertBorrowQuery = `
	INSERT INTO borrow_records (
		id, reader_id, copy_id, librarian_id, reader_class, status,
		borrow_date, due_date, return_date, renewal_count, notes,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)
`

func insertBorrowArgs(record *model.BorrowRecord) []interface{} {
	return []interface{}{
		record.ID,
		record.ReaderID,
		record.CopyID,
		record.LibrarianID,
		record.ReaderClass,
		record.Status,
		record.BorrowDate,
		record.DueDate,
		record.ReturnDate,
		record.RenewalCount,
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	}
}

func classifyInsertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
		return fmt.Errorf("%w: copy or reader does not exist", model.ErrRecordNotFound)
	}
	return fmt.Errorf("failed to insert borrow record: %w", err)
}

// Create implements RepositoryInterface.Create
func (r *postgresRepository) Create(ctx context.Context, record *model.BorrowRecord) error {
	err := database.WithRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, insertBorrowQuery, insertBorrowArgs(record)...)
		return err
	})
	if err != nil {
		return classifyInsertError(err)
	}
	return nil
}

// InsertTx implements RepositoryInterface.InsertTx. No retry: the caller owns
// the transaction and decides what a failure means for it.
func (r *postgresRepository) InsertTx(ctx context.Context, tx pgx.Tx, record *model.BorrowRecord) error {
	if _, err := tx.Exec(ctx, insertBorrowQuery, insertBorrowArgs(record)...); err != nil {
		return classifyInsertError(err)
	}
	return nil
}

// GetByID implements RepositoryInterface.GetByID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.BorrowRecord, error) {
	query := `SELECT` + borrowColumns + ` FROM borrow_records WHERE id = $1`

	var record model.BorrowRecord
	err := database.WithRetry(ctx, func() error {
		return scanBorrow(r.pool.QueryRow(ctx, query, id), &record)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewRecordNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get borrow record: %w", err)
	}

	return &record, nil
}

// List implements RepositoryInterface.List
func (r *postgresRepository) List(ctx context.Context, filter model.ListBorrowsRequest) ([]model.BorrowRecord, int, error) {
	queryBuilder := `SELECT` + borrowColumns + ` FROM borrow_records WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM borrow_records WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.ReaderID != nil {
		clause := fmt.Sprintf(" AND reader_id = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.ReaderID)
		argCount++
	}

	if filter.CopyID != nil {
		clause := fmt.Sprintf(" AND copy_id = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.CopyID)
		argCount++
	}

	if filter.Status != nil {
		clause := fmt.Sprintf(" AND status = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.OverdueOnly {
		clause := fmt.Sprintf(" AND status = '%s'", model.StatusOverdue)
		queryBuilder += clause
		countQuery += clause
	}

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count borrow records: %w", err)
	}

	queryBuilder += " ORDER BY created_at DESC, id ASC"
	offset := (filter.Page - 1) * filter.Limit
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list borrow records: %w", err)
	}
	defer rows.Close()

	records := make([]model.BorrowRecord, 0, filter.Limit)
	for rows.Next() {
		var b model.BorrowRecord
		if err := scanBorrow(rows, &b); err != nil {
			return nil, 0, fmt.Errorf("failed to scan borrow record row: %w", err)
		}
		records = append(records, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating borrow record rows: %w", err)
	}

	return records, totalCount, nil
}

// CountActiveByReader implements RepositoryInterface.CountActiveByReader
func (r *postgresRepository) CountActiveByReader(ctx context.Context, readerID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM borrow_records
		WHERE reader_id = $1 AND status = ANY($2)
	`

	var count int
	err := database.WithRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, readerID, activeStatusStrings()).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active loans: %w", err)
	}

	return count, nil
}

// GetActiveByCopy implements RepositoryInterface.GetActiveByCopy
func (r *postgresRepository) GetActiveByCopy(ctx context.Context, copyID uuid.UUID) (*model.BorrowRecord, error) {
	query := `SELECT` + borrowColumns + `
		FROM borrow_records
		WHERE copy_id = $1 AND status = ANY($2)
		LIMIT 1`

	var record model.BorrowRecord
	err := scanBorrow(r.pool.QueryRow(ctx, query, copyID, activeStatusStrings()), &record)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active loan for copy %s", model.ErrRecordNotFound, copyID)
		}
		return nil, fmt.Errorf("failed to get active loan for copy: %w", err)
	}

	return &record, nil
}

// ApprovePending implements RepositoryInterface.ApprovePending
func (r *postgresRepository) ApprovePending(ctx context.Context, id uuid.UUID, borrowDate, dueDate time.Time) error {
	query := `
		UPDATE borrow_records
		SET status = $2, borrow_date = $3, due_date = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	return r.conditionalUpdate(ctx, id, model.StatusBorrowed, query,
		id, model.StatusBorrowed, borrowDate, dueDate, model.StatusPendingApproval)
}

// RejectPending implements RepositoryInterface.RejectPending
func (r *postgresRepository) RejectPending(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE borrow_records
		SET status = $2, notes = TRIM(notes || E'\n' || $3), updated_at = NOW()
		WHERE id = $1 AND status = $4
	`

	return r.conditionalUpdate(ctx, id, model.StatusRejected, query,
		id, model.StatusRejected, "rejected: "+reason, model.StatusPendingApproval)
}

// MarkReturned implements RepositoryInterface.MarkReturned. Because returned
// is only reachable from the active statuses, a record the sweeper already
// moved to overdue still matches, while a double return does not.
func (r *postgresRepository) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time, notes string) error {
	query := `
		UPDATE borrow_records
		SET status = $2, return_date = $3, notes = TRIM(notes || E'\n' || $4), updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
	`

	return r.conditionalUpdate(ctx, id, model.StatusReturned, query,
		id, model.StatusReturned, returnDate, notes, activeStatusStrings())
}

// Renew implements RepositoryInterface.Renew
func (r *postgresRepository) Renew(ctx context.Context, id uuid.UUID, newDueDate time.Time, librarianID uuid.UUID, maxRenewals int) error {
	query := `
		UPDATE borrow_records
		SET status = $2, due_date = $3, renewal_count = renewal_count + 1,
		    librarian_id = $4, updated_at = NOW()
		WHERE id = $1
		  AND status = ANY($5)
		  AND renewal_count < $6
	`

	renewable := []string{string(model.StatusBorrowed), string(model.StatusOverdue)}
	return r.conditionalUpdate(ctx, id, model.StatusRenewed, query,
		id, model.StatusRenewed, newDueDate, librarianID, renewable, maxRenewals)
}

// MarkOverdueDue implements RepositoryInterface.MarkOverdueDue. The WHERE
/// clause makes the sweep idempotent: already-overdue and already-returned
// records never match.
func (r *postgresRepository) MarkOverdueDue(ctx context.Context, now time.Time, limit int) ([]model.BorrowRecord, error) {
	query := `
		UPDATE borrow_records
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM borrow_records
			WHERE status = ANY($2) AND due_date < $3
			ORDER BY due_date ASC
			LIMIT $4
		)
		RETURNING` + borrowColumns + `
	`

	sweepable := []string{string(model.StatusBorrowed), string(model.StatusRenewed)}

	rows, err := r.pool.Query(ctx, query, model.StatusOverdue, sweepable, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep overdue records: %w", err)
	}
	defer rows.Close()

	records := make([]model.BorrowRecord, 0)
	for rows.Next() {
		var b model.BorrowRecord
		if err := scanBorrow(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan swept record: %w", err)
		}
		records = append(records, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swept records: %w", err)
	}

	return records, nil
}

// ListDueWithin implements RepositoryInterface.ListDueWithin
func (r *postgresRepository) ListDueWithin(ctx context.Context, from, to time.Time, limit int) ([]model.BorrowRecord, error) {
	query := `SELECT` + borrowColumns + `
		FROM borrow_records
		WHERE status = ANY($1) AND due_date > $2 AND due_date <= $3
		ORDER BY due_date ASC
		LIMIT $4`

	active := []string{string(model.StatusBorrowed), string(model.StatusRenewed)}

	rows, err := r.pool.Query(ctx, query, active, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due-soon records: %w", err)
	}
	defer rows.Close()

	records := make([]model.BorrowRecord, 0)
	for rows.Next() {
		var b model.BorrowRecord
		if err := scanBorrow(rows, &b); err != nil {
			return nil, fmt.Errorf("failed to scan due-soon record: %w", err)
		}
		records = append(records, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due-soon records: %w", err)
	}

	return records, nil
}

// DeletePending implements RepositoryInterface.DeletePending
func (r *postgresRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM borrow_records WHERE id = $1 AND status = $2`

	result, err := r.pool.Exec(ctx, query, id, model.StatusPendingApproval)
	if err != nil {
		return fmt.Errorf("failed to delete pending borrow record: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		checkQuery := `SELECT EXISTS(SELECT 1 FROM borrow_records WHERE id = $1)`
		if checkErr := r.pool.QueryRow(ctx, checkQuery, id).Scan(&exists); checkErr != nil {
			return fmt.Errorf("failed to check borrow record existence: %w", checkErr)
		}

		if !exists {
			return model.NewRecordNotFoundError(id)
		}

		return model.ErrRecordNotDeletable
	}

	return nil
}

// conditionalUpdate runs a status-guarded update and turns a zero-row result
// into the precise error: not found, or an illegal transition from the
// record's actual current state.
func (r *postgresRepository) conditionalUpdate(ctx context.Context, id uuid.UUID, target model.Status, query string, args ...interface{}) error {
	var result pgconn.CommandTag
	err := database.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.Exec(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to update borrow record: %w", err)
	}

	if result.RowsAffected() == 0 {
		current, getErr := r.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		return model.NewInvalidTransitionError(current.Status, target)
	}

	return nil
}

func activeStatusStrings() []string {
	out := make([]string, 0, len(model.ActiveStatuses))
	for _, s := range model.ActiveStatuses {
		out = append(out, string(s))
	}
	return out
}
