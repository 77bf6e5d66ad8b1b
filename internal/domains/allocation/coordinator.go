package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	copyModel "circulation-backend/internal/domains/copyreg/model"
	copyRepo "circulation-backend/internal/domains/copyreg/repository"
	"circulation-backend/pkg/logger"
)

// GrantToken proves a copy was granted to a requester. It is consumed by the
// circulation state machine when it commits the borrow record.
type GrantToken struct {
	CopyID      uuid.UUID
	BookID      uuid.UUID
	RequesterID uuid.UUID
	GrantedAt   time.Time
}

// Coordinator arbitrates concurrent grants of copies. Two layers of defense:
// a per-book admission lock serializing approvals of the same title, and the
// registry's conditional status update ("borrowed only if currently
// available") as the atomic commit point. The lock keeps losers from doing
// wasted work; the conditional update is what makes double-grant impossible.
type Coordinator struct {
	locks   Locker
	copies  copyRepo.RepositoryInterface
	lockTTL time.Duration
}

func NewCoordinator(locks Locker, copies copyRepo.RepositoryInterface) *Coordinator {
	return &Coordinator{
		locks:   locks,
		copies:  copies,
		lockTTL: 5 * time.Second,
	}
}

func bookLockKey(bookID uuid.UUID) string {
	return fmt.Sprintf("allocation:book:%s", bookID)
}

// WithBookLock runs fn while holding the book's admission lock. Exposed so
// callers composing multi-step operations (reservation fulfillment) can keep
// the lock across their whole transaction.
func (c *Coordinator) WithBookLock(ctx context.Context, bookID uuid.UUID, fn func(ctx context.Context) error) error {
	lock, err := c.locks.Obtain(ctx, bookLockKey(bookID), c.lockTTL)
	if err != nil {
		if err == ErrLockNotObtained {
			return fmt.Errorf("%w: book %s admission lock busy", ErrAlreadyAllocated, bookID)
		}
		return fmt.Errorf("obtain book lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			logger.Error("failed to release book lock", releaseErr)
		}
	}()

	return fn(ctx)
}

// Grant atomically claims copyID for requesterID: the copy transitions
// available → borrowed only if available is still its current status. A held
// copy (reserved) is refused here; it belongs to the reservation queue head
// and only GrantHeld may claim it. A lost race surfaces ErrAlreadyAllocated.
func (c *Coordinator) Grant(ctx context.Context, bookID, copyID, requesterID uuid.UUID) (*GrantToken, error) {
	return c.grant(ctx, bookID, copyID, requesterID, copyModel.StatusAvailable)
}

// GrantHeld claims a copy previously parked by Hold (reserved → borrowed).
// Only reservation fulfillment uses it; a walk-in approval never reaches a
// held copy.
func (c *Coordinator) GrantHeld(ctx context.Context, bookID, copyID, requesterID uuid.UUID) (*GrantToken, error) {
	return c.grant(ctx, bookID, copyID, requesterID, copyModel.StatusReserved)
}

func (c *Coordinator) grant(ctx context.Context, bookID, copyID, requesterID uuid.UUID, from copyModel.CopyStatus) (*GrantToken, error) {
	cp, err := c.copies.GetByID(ctx, copyID)
	if err != nil {
		return nil, err
	}

	if cp.BookID != bookID {
		return nil, fmt.Errorf("%w: copy=%s book=%s", ErrCopyMismatch, copyID, bookID)
	}
	if cp.IsArchived {
		return nil, copyModel.ErrCopyArchived
	}

	if cp.Status != from {
		return nil, fmt.Errorf("%w: copy %s is %s", copyModel.ErrCopyUnavailable, copyID, cp.Status)
	}

	if err := c.copies.UpdateStatusIf(ctx, copyID, from, copyModel.StatusBorrowed); err != nil {
		if copyModel.IsConflictError(err) {
			return nil, fmt.Errorf("%w: copy %s", ErrAlreadyAllocated, copyID)
		}
		return nil, err
	}

	return &GrantToken{
		CopyID:      copyID,
		BookID:      bookID,
		RequesterID: requesterID,
		GrantedAt:   time.Now(),
	}, nil
}

// Revoke undoes a grant whose surrounding transaction failed to commit.
func (c *Coordinator) Revoke(ctx context.Context, token *GrantToken) error {
	err := c.copies.UpdateStatusIf(ctx, token.CopyID, copyModel.StatusBorrowed, copyModel.StatusAvailable)
	if err != nil {
		return fmt.Errorf("revoke grant for copy %s: %w", token.CopyID, err)
	}
	return nil
}

// Release is the return path: borrowed → available.
func (c *Coordinator) Release(ctx context.Context, copyID uuid.UUID) error {
	if err := c.copies.UpdateStatusIf(ctx, copyID, copyModel.StatusBorrowed, copyModel.StatusAvailable); err != nil {
		return err
	}
	return nil
}

// Hold parks an available copy for the head of a reservation queue
// (available → reserved) so walk-in borrow requests cannot claim it.
func (c *Coordinator) Hold(ctx context.Context, copyID uuid.UUID) error {
	return c.copies.UpdateStatusIf(ctx, copyID, copyModel.StatusAvailable, copyModel.StatusReserved)
}

// ReleaseHold frees a held copy back to general availability.
func (c *Coordinator) ReleaseHold(ctx context.Context, copyID uuid.UUID) error {
	return c.copies.UpdateStatusIf(ctx, copyID, copyModel.StatusReserved, copyModel.StatusAvailable)
}
