package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"circulation-backend/internal/domains/borrow/model"
)

// RepositoryInterface is the data access contract for borrow records. The
// state-changing methods are conditional updates keyed on the expected
// current status, so a record that moved concurrently is never overwritten:
// callers get model.ErrInvalidTransition instead.
type RepositoryInterface interface {
	Create(ctx context.Context, record *model.BorrowRecord) error

	// InsertTx writes a record inside the caller's transaction. Reservation
	// fulfillment uses it so the reservation update and its loan record
	// commit or roll back together.
	InsertTx(ctx context.Context, tx pgx.Tx, record *model.BorrowRecord) error

	GetByID(ctx context.Context, id uuid.UUID) (*model.BorrowRecord, error)
	List(ctx context.Context, filter model.ListBorrowsRequest) ([]model.BorrowRecord, int, error)

	// CountActiveByReader counts records holding a copy for this reader.
	CountActiveByReader(ctx context.Context, readerID uuid.UUID) (int, error)

	// GetActiveByCopy returns the single active record for a copy, or
	// model.ErrRecordNotFound when the copy is not on loan.
	GetActiveByCopy(ctx context.Context, copyID uuid.UUID) (*model.BorrowRecord, error)

	// ApprovePending transitions pending_approval → borrowed, stamping the
	// borrow and due dates.
	ApprovePending(ctx context.Context, id uuid.UUID, borrowDate, dueDate time.Time) error

	// RejectPending transitions pending_approval → rejected.
	RejectPending(ctx context.Context, id uuid.UUID, reason string) error

	// MarkReturned transitions borrowed/renewed/overdue → returned.
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time, notes string) error

	// Renew extends the due date and bumps the renewal count from
	// borrowed/overdue → renewed. The cap is enforced by the WHERE clause so
	// concurrent renewals cannot exceed it.
	Renew(ctx context.Context, id uuid.UUID, newDueDate time.Time, librarianID uuid.UUID, maxRenewals int) error

	// MarkOverdueDue reclassifies borrowed/renewed records whose due date has
	// passed, returning the records it transitioned. Running it twice with no
	// intervening writes returns nothing the second time.
	MarkOverdueDue(ctx context.Context, now time.Time, limit int) ([]model.BorrowRecord, error)

	// ListDueWithin returns active loans due in (from, to] for reminders.
	ListDueWithin(ctx context.Context, from, to time.Time, limit int) ([]model.BorrowRecord, error)

	// DeletePending removes a record still in pending_approval; anything
	// later is append-only audit trail.
	DeletePending(ctx context.Context, id uuid.UUID) error
}
