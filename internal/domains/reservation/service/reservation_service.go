package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"circulation-backend/internal/domains/allocation"
	borrowModel "circulation-backend/internal/domains/borrow/model"
	borrowRepo "circulation-backend/internal/domains/borrow/repository"
	copyModel "circulation-backend/internal/domains/copyreg/model"
	copyRepo "circulation-backend/internal/domains/copyreg/repository"
	"circulation-backend/internal/domains/policy"
	"circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/domains/reservation/repository"
	"circulation-backend/pkg/logger"
)

const defaultReaderClass = "standard"

type ReservationService struct {
	repo        repository.RepositoryInterface
	copies      copyRepo.RepositoryInterface
	coordinator *allocation.Coordinator
	policies    policy.Provider
	loans       borrowRepo.RepositoryInterface
	notify      NotificationEmitter
}

// NewService creates a new reservation service
func NewService(
	repo repository.RepositoryInterface,
	copies copyRepo.RepositoryInterface,
	coordinator *allocation.Coordinator,
	policies policy.Provider,
	loans borrowRepo.RepositoryInterface,
	notify NotificationEmitter,
) *ReservationService {
	return &ReservationService{
		repo:        repo,
		copies:      copies,
		coordinator: coordinator,
		policies:    policies,
		loans:       loans,
		notify:      notify,
	}
}

// RequestReservation implements ServiceInterface.RequestReservation.
// Reservations exist only when supply is exhausted: a title with an
// available copy rejects the claim with NoDemand so the reader borrows
// directly instead.
func (s *ReservationService) RequestReservation(ctx context.Context, req model.RequestReservationRequest) (*model.ReservationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	readerClass := req.ReaderClass
	if readerClass == "" {
		readerClass = defaultReaderClass
	}

	available, err := s.copies.CountAvailableByBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if available > 0 {
		return nil, fmt.Errorf("%w: book %s has %d available copies", model.ErrNoDemand, req.BookID, available)
	}

	hasPending, err := s.repo.HasPendingByReader(ctx, req.ReaderID, req.BookID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, model.ErrDuplicateReservation
	}

	pol, err := s.policies.GetPolicy(ctx, readerClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get reader policy: %w", err)
	}

	now := time.Now()
	reservation := model.Reservation{
		ID:              uuid.New(),
		ReaderID:        req.ReaderID,
		BookID:          req.BookID,
		Status:          model.StatusPending,
		Priority:        req.Priority,
		ReservationDate: now,
		ExpiryDate:      now.AddDate(0, 0, pol.ReservationExpiryDays),
		ReaderClass:     readerClass,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, &reservation); err != nil {
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	resp := reservation.ToResponse()
	return &resp, nil
}

// Fulfill implements ServiceInterface.Fulfill. Three gates in order: the
// claim must not have lapsed, the reservation must be the head of its book's
// queue, and the coordinator must grant the copy. The reservation update and
// its loan record commit in one transaction, under the book's admission lock.
func (s *ReservationService) Fulfill(ctx context.Context, reservationID uuid.UUID, req model.FulfillRequest) (*model.ReservationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status != model.StatusPending {
		return nil, model.NewInvalidTransitionError(reservation.Status, model.StatusFulfilled)
	}

	now := time.Now()
	if reservation.ExpiredAt(now) {
		// The sweeper has not caught this one yet; classify it now so the
		// queue head moves on.
		if expireErr := s.repo.ExpireIf(ctx, reservationID, now); expireErr != nil {
			logger.Warn("failed to expire lapsed reservation", map[string]interface{}{
				"reservation_id": reservationID.String(),
				"error":          expireErr.Error(),
			})
		}
		return nil, fmt.Errorf("%w: expired at %s", model.ErrReservationExpired, reservation.ExpiryDate.Format(time.RFC3339))
	}

	head, err := s.repo.NextPending(ctx, reservation.BookID)
	if err != nil {
		return nil, err
	}
	if head.ID != reservationID {
		return nil, fmt.Errorf("%w: reservation %s is ahead", model.ErrNotNextInLine, head.ID)
	}

	loan, err := s.buildLoan(ctx, reservation, req, now)
	if err != nil {
		return nil, err
	}

	cp, err := s.copies.GetByID(ctx, req.CopyID)
	if err != nil {
		return nil, err
	}

	err = s.coordinator.WithBookLock(ctx, reservation.BookID, func(ctx context.Context) error {
		// A copy held for this queue comes via the held path; an on-shelf
		// copy via the ordinary one. Either way the conditional update is
		// the commit point.
		grant := s.coordinator.Grant
		if cp.Status == copyModel.StatusReserved {
			grant = s.coordinator.GrantHeld
		}

		token, grantErr := grant(ctx, reservation.BookID, req.CopyID, reservation.ReaderID)
		if grantErr != nil {
			return grantErr
		}

		fulfillErr := s.repo.FulfillPending(ctx, reservationID, req.CopyID, req.LibrarianID, now, func(tx pgx.Tx) error {
			return s.loans.InsertTx(ctx, tx, loan)
		})
		if fulfillErr != nil {
			if revokeErr := s.coordinator.Revoke(ctx, token); revokeErr != nil {
				logger.Error("failed to revoke grant after fulfillment failure", revokeErr)
			}
			return fulfillErr
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if emitErr := s.notify.ReservationFulfilled(ctx, model.ReservationFulfilledPayload{
		ReservationID:  reservationID,
		ReaderID:       reservation.ReaderID,
		BookID:         reservation.BookID,
		CopyID:         req.CopyID,
		BorrowRecordID: loan.ID,
	}); emitErr != nil {
		logger.Error("failed to emit reservation fulfilled event", emitErr)
	}

	updated, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// buildLoan assembles the auto-approved borrow record a fulfillment commits
// alongside the reservation: created directly in borrowed, due date from the
// reader's policy.
func (s *ReservationService) buildLoan(ctx context.Context, reservation *model.Reservation, req model.FulfillRequest, now time.Time) (*borrowModel.BorrowRecord, error) {
	readerClass := reservation.ReaderClass
	if readerClass == "" {
		readerClass = defaultReaderClass
	}

	pol, err := s.policies.GetPolicy(ctx, readerClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get reader policy: %w", err)
	}

	due := now.AddDate(0, 0, pol.BorrowDurationDays)
	return &borrowModel.BorrowRecord{
		ID:          uuid.New(),
		ReaderID:    reservation.ReaderID,
		CopyID:      req.CopyID,
		LibrarianID: req.LibrarianID,
		ReaderClass: readerClass,
		Status:      borrowModel.StatusBorrowed,
		BorrowDate:  &now,
		DueDate:     &due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Cancel implements ServiceInterface.Cancel
func (s *ReservationService) Cancel(ctx context.Context, reservationID uuid.UUID, req model.CancelRequest) (*model.ReservationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CancelPending(ctx, reservationID, req.CancelledBy, req.Reason, time.Now()); err != nil {
		return nil, err
	}

	// A copy may have been held for this reader; pass it to the new queue
	// head or free it.
	s.rebalanceHolds(ctx, reservation.BookID)

	updated, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// GetReservation implements ServiceInterface.GetReservation
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*model.ReservationResponse, error) {
	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	resp := reservation.ToResponse()
	return &resp, nil
}

// ListReservations implements ServiceInterface.ListReservations
func (s *ReservationService) ListReservations(ctx context.Context, req model.ListReservationsRequest) (*model.ListReservationsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reservations, totalItems, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	totalPages := (totalItems + req.Limit - 1) / req.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ListReservationsResponse{
		Items:      model.ToResponseList(reservations),
		TotalItems: totalItems,
		TotalPages: totalPages,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

// QueuePosition implements ServiceInterface.QueuePosition
func (s *ReservationService) QueuePosition(ctx context.Context, reservationID uuid.UUID) (*model.QueuePositionResponse, error) {
	reservation, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	if reservation.Status != model.StatusPending {
		return nil, fmt.Errorf("%w: queue position requires a pending reservation, got %s", model.ErrInvalidTransition, reservation.Status)
	}

	ahead, err := s.repo.CountPendingAhead(ctx, reservation)
	if err != nil {
		return nil, err
	}

	queueLength, err := s.repo.CountPendingByBook(ctx, reservation.BookID)
	if err != nil {
		return nil, err
	}

	return &model.QueuePositionResponse{
		ReservationID: reservationID,
		BookID:        reservation.BookID,
		Position:      ahead + 1,
		QueueLength:   queueLength,
	}, nil
}

// SweepExpired implements ServiceInterface.SweepExpired
func (s *ReservationService) SweepExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	expired, err := s.repo.ExpirePendingDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	// Copies held for lapsed readers move to the new queue head or back to
	// the shelf. Once per distinct book.
	seen := make(map[uuid.UUID]struct{}, len(expired))
	for _, reservation := range expired {
		if _, done := seen[reservation.BookID]; done {
			continue
		}
		seen[reservation.BookID] = struct{}{}
		s.rebalanceHolds(ctx, reservation.BookID)
	}

	return len(expired), nil
}

// OnCopyAvailable implements the circulation machine's return listener: a
// returned copy is held for the book's queue head before a walk-in borrow
// request can claim it.
func (s *ReservationService) OnCopyAvailable(ctx context.Context, bookID, copyID uuid.UUID) {
	head, err := s.repo.NextPending(ctx, bookID)
	if err != nil {
		if model.IsNotFoundError(err) {
			return
		}
		logger.Error("failed to look up reservation queue on return", err, map[string]interface{}{
			"book_id": bookID.String(),
		})
		return
	}

	if err := s.coordinator.Hold(ctx, copyID); err != nil {
		// Lost to a concurrent borrow approval; the queue waits for the
		// next return.
		logger.Warn("could not hold returned copy for reservation", map[string]interface{}{
			"copy_id":        copyID.String(),
			"reservation_id": head.ID.String(),
			"error":          err.Error(),
		})
		return
	}

	if emitErr := s.notify.NextInLine(ctx, model.NextInLinePayload{
		ReservationID: head.ID,
		ReaderID:      head.ReaderID,
		BookID:        bookID,
		CopyID:        copyID,
		ExpiryDate:    head.ExpiryDate,
	}); emitErr != nil {
		logger.Error("failed to emit next-in-line event", emitErr)
	}
}

// rebalanceHolds reconciles held copies of a book with its pending queue:
// each held copy is offered to the current head, or released when the queue
// is empty.
func (s *ReservationService) rebalanceHolds(ctx context.Context, bookID uuid.UUID) {
	copies, err := s.copies.ListByBook(ctx, bookID)
	if err != nil {
		logger.Error("failed to list copies while rebalancing holds", err, map[string]interface{}{
			"book_id": bookID.String(),
		})
		return
	}

	for i := range copies {
		cp := &copies[i]
		if cp.Status != copyModel.StatusReserved || cp.IsArchived {
			continue
		}

		head, err := s.repo.NextPending(ctx, bookID)
		if err != nil {
			if !model.IsNotFoundError(err) {
				logger.Error("failed to look up reservation queue while rebalancing", err, map[string]interface{}{
					"book_id": bookID.String(),
				})
				return
			}

			if releaseErr := s.coordinator.ReleaseHold(ctx, cp.ID); releaseErr != nil {
				logger.Warn("could not release orphaned hold", map[string]interface{}{
					"copy_id": cp.ID.String(),
					"error":   releaseErr.Error(),
				})
			}
			continue
		}

		if emitErr := s.notify.NextInLine(ctx, model.NextInLinePayload{
			ReservationID: head.ID,
			ReaderID:      head.ReaderID,
			BookID:        bookID,
			CopyID:        cp.ID,
			ExpiryDate:    head.ExpiryDate,
		}); emitErr != nil {
			logger.Error("failed to emit next-in-line event", emitErr)
		}
	}
}
