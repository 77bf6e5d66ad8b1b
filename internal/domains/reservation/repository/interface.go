package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"circulation-backend/internal/domains/reservation/model"
)

// RepositoryInterface is the data access contract for reservations.
type RepositoryInterface interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reservation, error)
	List(ctx context.Context, filter model.ListReservationsRequest) ([]model.Reservation, int, error)

	// NextPending returns the head of the book's queue: lowest priority
	// value first, earliest reservation date breaking ties. Returns
	// model.ErrReservationNotFound when the queue is empty.
	NextPending(ctx context.Context, bookID uuid.UUID) (*model.Reservation, error)

	// CountPendingByBook returns the pending queue length for a title.
	CountPendingByBook(ctx context.Context, bookID uuid.UUID) (int, error)

	// CountPendingAhead returns how many pending reservations for the same
	// book would be served before this one.
	CountPendingAhead(ctx context.Context, reservation *model.Reservation) (int, error)

	// HasPendingByReader reports whether the reader already holds a pending
	// reservation for the book.
	HasPendingByReader(ctx context.Context, readerID, bookID uuid.UUID) (bool, error)

	// FulfillPending transitions pending → fulfilled, binding the physical
	// copy. Zero rows surfaces the precise transition error. attach, when
	// non-nil, runs in the same transaction as the update; fulfillment uses
	// it to insert the loan record atomically with the reservation change.
	FulfillPending(ctx context.Context, id, copyID, librarianID uuid.UUID, now time.Time, attach func(pgx.Tx) error) error

	// CancelPending transitions pending → cancelled.
	CancelPending(ctx context.Context, id, cancelledBy uuid.UUID, reason string, now time.Time) error

	// ExpireIf transitions pending → expired for a single reservation whose
	// expiry date has passed. Used when lapse is detected at fulfillment
	// time, ahead of the sweeper.
	ExpireIf(ctx context.Context, id uuid.UUID, now time.Time) error

	// ExpirePendingDue sweeps lapsed pending reservations to expired and
	// returns those it moved. Already-terminal rows never match, so repeat
	// runs are no-ops.
	ExpirePendingDue(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
}
