package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/borrow/model"
)

// ServiceInterface owns the borrow record lifecycle:
// request → approval → lending → return/renewal.
type ServiceInterface interface {
	RequestBorrow(ctx context.Context, req model.RequestBorrowRequest) (*model.BorrowResponse, error)
	Approve(ctx context.Context, recordID uuid.UUID) (*model.BorrowResponse, error)
	Reject(ctx context.Context, recordID uuid.UUID, req model.RejectRequest) (*model.BorrowResponse, error)
	ReturnCopy(ctx context.Context, recordID uuid.UUID, req model.ReturnRequest) (*model.BorrowResponse, error)
	Renew(ctx context.Context, recordID uuid.UUID, req model.RenewRequest) (*model.BorrowResponse, error)

	GetBorrow(ctx context.Context, recordID uuid.UUID) (*model.BorrowResponse, error)
	ListBorrows(ctx context.Context, req model.ListBorrowsRequest) (*model.ListBorrowsResponse, error)
	DeletePending(ctx context.Context, recordID uuid.UUID) error

	// SweepOverdue reclassifies due loans as overdue and emits
	// OverdueDetected events. Pure function of now; running it twice with no
	// intervening writes is a no-op the second time.
	SweepOverdue(ctx context.Context, now time.Time, limit int) (int, error)

	// RemindDueSoon emits reminder events for loans due within window.
	RemindDueSoon(ctx context.Context, now time.Time, window time.Duration, limit int) (int, error)
}

// EventEmitter is the outbound boundary: the engine states facts, external
// consumers (fine ledger, notification system) act on them.
type EventEmitter interface {
	LoanApproved(ctx context.Context, payload model.LoanApprovedPayload) error
	OverdueDetected(ctx context.Context, payload model.OverdueDetectedPayload) error
	DueSoonReminder(ctx context.Context, payload model.LoanApprovedPayload) error
}

// ReturnListener is notified when a return puts a copy of a title back in
// supply, so the reservation machine can offer it to its queue. Wired after
// construction to keep the borrow and reservation domains acyclic.
type ReturnListener interface {
	OnCopyAvailable(ctx context.Context, bookID, copyID uuid.UUID)
}
