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

	"circulation-backend/internal/domains/reservation/model"
	"circulation-backend/pkg/database"
)

// postgresRepository implements RepositoryInterface
type postgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL reservation repository
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &postgresRepository{
		pool: pool,
	}
}

const reservationColumns = `
	id, reader_id, book_id, physical_copy_id, status, priority,
	reservation_date, expiry_date, fulfillment_date, fulfilled_by,
	cancelled_date, cancelled_by, cancellation_reason, reader_class,
	created_at, updated_at`

// queueOrder is the service order of a book's pending queue. id breaks the
// (priority, reservation_date) tie deterministically.
const queueOrder = ` ORDER BY priority ASC, reservation_date ASC, id ASC`

func scanReservation(row pgx.Row, res *model.Reservation) error {
	return row.Scan(
		&res.ID,
		&res.ReaderID,
		&res.BookID,
		&res.PhysicalCopyID,
		&res.Status,
		&res.Priority,
		&res.ReservationDate,
		&res.ExpiryDate,
		&res.FulfillmentDate,
		&res.FulfilledBy,
		&res.CancelledDate,
		&res.CancelledBy,
		&res.CancellationReason,
		&res.ReaderClass,
		&res.CreatedAt,
		&res.UpdatedAt,
	)
}

// Create implements RepositoryInterface.Create
func (r *postgresRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	query := `
		INSERT INTO reservations (
			id, reader_id, book_id, physical_copy_id, status, priority,
			reservation_date, expiry_date, fulfillment_date, fulfilled_by,
			cancelled_date, cancelled_by, cancellation_reason, reader_class,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	err := database.WithRetry(ctx, func() error {
		_, err := r.pool.Exec(ctx, query,
			reservation.ID,
			reservation.ReaderID,
			reservation.BookID,
			reservation.PhysicalCopyID,
			reservation.Status,
			reservation.Priority,
			reservation.ReservationDate,
			reservation.ExpiryDate,
			reservation.FulfillmentDate,
			reservation.FulfilledBy,
			reservation.CancelledDate,
			reservation.CancelledBy,
			reservation.CancellationReason,
			reservation.ReaderClass,
			reservation.CreatedAt,
			reservation.UpdatedAt,
		)
		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505": // unique_violation on the partial pending index
				return model.ErrDuplicateReservation
			case "23503": // foreign_key_violation
				return fmt.Errorf("%w: book or reader does not exist", model.ErrReservationNotFound)
			}
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	return nil
}

// GetByID implements RepositoryInterface.GetByID
func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + ` FROM reservations WHERE id = $1`

	var reservation model.Reservation
	err := database.WithRetry(ctx, func() error {
		return scanReservation(r.pool.QueryRow(ctx, query, id), &reservation)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.NewReservationNotFoundError(id)
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return &reservation, nil
}

// List implements RepositoryInterface.List
func (r *postgresRepository) List(ctx context.Context, filter model.ListReservationsRequest) ([]model.Reservation, int, error) {
	queryBuilder := `SELECT` + reservationColumns + ` FROM reservations WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM reservations WHERE 1=1`

	args := []interface{}{}
	argCount := 1

	if filter.ReaderID != nil {
		clause := fmt.Sprintf(" AND reader_id = $%d", argCount)
		queryBuilder += clause
		countQuery += clause
		args = append(args, *filter.ReaderID)
		argCount++
	}

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

	var totalCount int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	queryBuilder += queueOrder
	offset := (filter.Page - 1) * filter.Limit
	queryBuilder += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, offset)

	rows, err := r.pool.Query(ctx, queryBuilder, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]model.Reservation, 0, filter.Limit)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, 0, fmt.Errorf("failed to scan reservation row: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reservation rows: %w", err)
	}

	return reservations, totalCount, nil
}

// NextPending implements RepositoryInterface.NextPending
func (r *postgresRepository) NextPending(ctx context.Context, bookID uuid.UUID) (*model.Reservation, error) {
	query := `SELECT` + reservationColumns + `
		FROM reservations
		WHERE book_id = $1 AND status = $2` + queueOrder + `
		LIMIT 1`

	var reservation model.Reservation
	err := database.WithRetry(ctx, func() error {
		return scanReservation(r.pool.QueryRow(ctx, query, bookID, model.StatusPending), &reservation)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no pending reservation for book %s", model.ErrReservationNotFound, bookID)
		}
		return nil, fmt.Errorf("failed to get next pending reservation: %w", err)
	}

	return &reservation, nil
}

// CountPendingByBook implements RepositoryInterface.CountPendingByBook
func (r *postgresRepository) CountPendingByBook(ctx context.Context, bookID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM reservations WHERE book_id = $1 AND status = $2`

	var count int
	err := database.WithRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, bookID, model.StatusPending).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending reservations: %w", err)
	}

	return count, nil
}

// CountPendingAhead implements RepositoryInterface.CountPendingAhead
func (r *postgresRepository) CountPendingAhead(ctx context.Context, reservation *model.Reservation) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE book_id = $1
		  AND status = $2
		  AND (priority, reservation_date, id) < ($3, $4, $5)
	`

	var count int
	err := database.WithRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query,
			reservation.BookID,
			model.StatusPending,
			reservation.Priority,
			reservation.ReservationDate,
			reservation.ID,
		).Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count reservations ahead: %w", err)
	}

	return count, nil
}

// HasPendingByReader implements RepositoryInterface.HasPendingByReader
func (r *postgresRepository) HasPendingByReader(ctx context.Context, readerID, bookID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE reader_id = $1 AND book_id = $2 AND status = $3
		)
	`

	var exists bool
	err := database.WithRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, readerID, bookID, model.StatusPending).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check pending reservation: %w", err)
	}

	return exists, nil
}

// FulfillPending implements RepositoryInterface.FulfillPending. The guarded
// update and the attach callback run in one transaction, so a fulfilled
// reservation without its loan record cannot be observed.
func (r *postgresRepository) FulfillPending(ctx context.Context, id, copyID, librarianID uuid.UUID, now time.Time, attach func(pgx.Tx) error) error {
	query := `
		UPDATE reservations
		SET status = $2, physical_copy_id = $3, fulfillment_date = $4,
		    fulfilled_by = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`

	return database.WithTransaction(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query,
			id, model.StatusFulfilled, copyID, now, librarianID, model.StatusPending)
		if err != nil {
			return fmt.Errorf("failed to fulfill reservation: %w", err)
		}

		if result.RowsAffected() == 0 {
			var current model.Reservation
			scanErr := scanReservation(tx.QueryRow(ctx,
				`SELECT`+reservationColumns+` FROM reservations WHERE id = $1`, id), &current)
			if scanErr != nil {
				if errors.Is(scanErr, pgx.ErrNoRows) {
					return model.NewReservationNotFoundError(id)
				}
				return fmt.Errorf("failed to get reservation: %w", scanErr)
			}
			return model.NewInvalidTransitionError(current.Status, model.StatusFulfilled)
		}

		if attach != nil {
			return attach(tx)
		}
		return nil
	})
}

// CancelPending implements RepositoryInterface.CancelPending
func (r *postgresRepository) CancelPending(ctx context.Context, id, cancelledBy uuid.UUID, reason string, now time.Time) error {
	query := `
		UPDATE reservations
		SET status = $2, cancelled_date = $3, cancelled_by = $4,
		    cancellation_reason = $5, updated_at = NOW()
		WHERE id = $1 AND status = $6
	`

	return r.conditionalUpdate(ctx, id, model.StatusCancelled, query,
		id, model.StatusCancelled, now, cancelledBy, reason, model.StatusPending)
}

// ExpireIf implements RepositoryInterface.ExpireIf
func (r *postgresRepository) ExpireIf(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE reservations
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3 AND expiry_date <= $4
	`

	return r.conditionalUpdate(ctx, id, model.StatusExpired, query,
		id, model.StatusExpired, model.StatusPending, now)
}

// ExpirePendingDue implements RepositoryInterface.ExpirePendingDue
func (r *postgresRepository) ExpirePendingDue(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	query := `
		UPDATE reservations
		SET status = $1, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM reservations
			WHERE status = $2 AND expiry_date <= $3
			ORDER BY expiry_date ASC
			LIMIT $4
		)
		RETURNING` + reservationColumns + `
	`

	rows, err := r.pool.Query(ctx, query, model.StatusExpired, model.StatusPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, fmt.Errorf("failed to scan swept reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating swept reservations: %w", err)
	}

	return reservations, nil
}

// conditionalUpdate runs a status-guarded update and turns a zero-row result
// into the precise error: not found, or an illegal transition from the
// reservation's actual current state.
func (r *postgresRepository) conditionalUpdate(ctx context.Context, id uuid.UUID, target model.Status, query string, args ...interface{}) error {
	var result pgconn.CommandTag
	err := database.WithRetry(ctx, func() error {
		var execErr error
		result, execErr = r.pool.Exec(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
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
