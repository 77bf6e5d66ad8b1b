package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/allocation"
	"circulation-backend/internal/domains/borrow/model"
	"circulation-backend/internal/domains/borrow/repository"
	copyModel "circulation-backend/internal/domains/copyreg/model"
	copyRepo "circulation-backend/internal/domains/copyreg/repository"
	"circulation-backend/internal/domains/policy"
	"circulation-backend/pkg/logger"
)

const defaultReaderClass = "standard"

type BorrowService struct {
	repo        repository.RepositoryInterface
	copies      copyRepo.RepositoryInterface
	coordinator *allocation.Coordinator
	policies    policy.Provider
	events      EventEmitter

	// set via SetReturnListener after both services exist
	returnListener ReturnListener
}

// NewService creates a new circulation service
func NewService(
	repo repository.RepositoryInterface,
	copies copyRepo.RepositoryInterface,
	coordinator *allocation.Coordinator,
	policies policy.Provider,
	events EventEmitter,
) *BorrowService {
	return &BorrowService{
		repo:        repo,
		copies:      copies,
		coordinator: coordinator,
		policies:    policies,
		events:      events,
	}
}

// SetReturnListener wires the reservation machine's interest in returns.
func (s *BorrowService) SetReturnListener(l ReturnListener) {
	s.returnListener = l
}

// RequestBorrow implements ServiceInterface.RequestBorrow. Admission control
// only: the copy is checked but not claimed, so a pending request is a
// statement of intent that approval may still refuse.
func (s *BorrowService) RequestBorrow(ctx context.Context, req model.RequestBorrowRequest) (*model.BorrowResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	readerClass := req.ReaderClass
	if readerClass == "" {
		readerClass = defaultReaderClass
	}

	cp, err := s.copies.GetByID(ctx, req.CopyID)
	if err != nil {
		return nil, err
	}
	if !cp.Allocatable() {
		return nil, fmt.Errorf("%w: copy %s is %s", copyModel.ErrCopyUnavailable, cp.ID, cp.Status)
	}

	pol, err := s.policies.GetPolicy(ctx, readerClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get reader policy: %w", err)
	}

	active, err := s.repo.CountActiveByReader(ctx, req.ReaderID)
	if err != nil {
		return nil, err
	}
	if active >= pol.MaxBorrowLimit {
		return nil, model.NewBorrowLimitError(active, pol.MaxBorrowLimit)
	}

	now := time.Now()
	record := model.BorrowRecord{
		ID:          uuid.New(),
		ReaderID:    req.ReaderID,
		CopyID:      req.CopyID,
		LibrarianID: req.LibrarianID,
		ReaderClass: readerClass,
		Status:      model.StatusPendingApproval,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		return nil, fmt.Errorf("failed to create borrow request: %w", err)
	}

	resp := record.ToResponse()
	return &resp, nil
}

// Approve implements ServiceInterface.Approve. The book-scoped admission
// lock plus the registry's conditional update guarantee at most one of any
// number of concurrent approvals for the same copy commits; the rest get
// AlreadyAllocated.
func (s *BorrowService) Approve(ctx context.Context, recordID uuid.UUID) (*model.BorrowResponse, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.Status != model.StatusPendingApproval {
		return nil, model.NewInvalidTransitionError(record.Status, model.StatusBorrowed)
	}

	cp, err := s.copies.GetByID(ctx, record.CopyID)
	if err != nil {
		return nil, err
	}

	pol, err := s.policies.GetPolicy(ctx, record.ReaderClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get reader policy: %w", err)
	}

	err = s.coordinator.WithBookLock(ctx, cp.BookID, func(ctx context.Context) error {
		// One active record per copy. If the registry row drifted back to
		// available while a loan still holds the copy, the copy CAS alone
		// would not catch it.
		if active, activeErr := s.repo.GetActiveByCopy(ctx, record.CopyID); activeErr == nil {
			return fmt.Errorf("%w: copy %s held by record %s", allocation.ErrAlreadyAllocated, record.CopyID, active.ID)
		} else if !model.IsNotFoundError(activeErr) {
			return activeErr
		}

		token, grantErr := s.coordinator.Grant(ctx, cp.BookID, record.CopyID, record.ReaderID)
		if grantErr != nil {
			return grantErr
		}

		now := time.Now()
		due := now.AddDate(0, 0, pol.BorrowDurationDays)

		if approveErr := s.repo.ApprovePending(ctx, recordID, now, due); approveErr != nil {
			// The copy was claimed but the record could not follow; undo the
			// grant so the registry invariant holds.
			if revokeErr := s.coordinator.Revoke(ctx, token); revokeErr != nil {
				logger.Error("failed to revoke grant after approval failure", revokeErr)
			}
			return approveErr
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if emitErr := s.events.LoanApproved(ctx, model.LoanApprovedPayload{
		BorrowRecordID: updated.ID,
		ReaderID:       updated.ReaderID,
		CopyID:         updated.CopyID,
		DueDate:        *updated.DueDate,
	}); emitErr != nil {
		logger.Error("failed to emit loan approved event", emitErr)
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// Reject implements ServiceInterface.Reject
func (s *BorrowService) Reject(ctx context.Context, recordID uuid.UUID, req model.RejectRequest) (*model.BorrowResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.RejectPending(ctx, recordID, req.Reason); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// ReturnCopy implements ServiceInterface.ReturnCopy. The record moves first,
// then the copy: a concurrent sweep that already marked the record overdue
// does not block the return, and a double return fails on the record before
// touching the registry.
func (s *BorrowService) ReturnCopy(ctx context.Context, recordID uuid.UUID, req model.ReturnRequest) (*model.BorrowResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if !record.Status.IsActive() {
		return nil, model.NewInvalidTransitionError(record.Status, model.StatusReturned)
	}

	if err := s.repo.MarkReturned(ctx, recordID, time.Now(), req.Notes); err != nil {
		return nil, err
	}

	if err := s.coordinator.Release(ctx, record.CopyID); err != nil {
		// The copy may have been reported lost while on loan; the return
		// still stands, only the registry keeps its manual state.
		logger.Warn("copy not released on return", map[string]interface{}{
			"record_id": recordID.String(),
			"copy_id":   record.CopyID.String(),
			"error":     err.Error(),
		})
	} else if s.returnListener != nil {
		cp, copyErr := s.copies.GetByID(ctx, record.CopyID)
		if copyErr != nil {
			logger.Error("failed to load copy after return", copyErr)
		} else {
			s.returnListener.OnCopyAvailable(ctx, cp.BookID, cp.ID)
		}
	}

	updated, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// Renew implements ServiceInterface.Renew. The cap check here gives the
// precise error; the repository's guarded update enforces it again against
// concurrent renewals.
func (s *BorrowService) Renew(ctx context.Context, recordID uuid.UUID, req model.RenewRequest) (*model.BorrowResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	if record.Status != model.StatusBorrowed && record.Status != model.StatusOverdue {
		return nil, model.NewInvalidTransitionError(record.Status, model.StatusRenewed)
	}

	pol, err := s.policies.GetPolicy(ctx, record.ReaderClass)
	if err != nil {
		return nil, fmt.Errorf("failed to get reader policy: %w", err)
	}

	if record.RenewalCount >= pol.MaxRenewals {
		return nil, fmt.Errorf("%w: count=%d, cap=%d", model.ErrRenewalLimitReached, record.RenewalCount, pol.MaxRenewals)
	}

	newDue := record.DueDate.AddDate(0, 0, pol.BorrowDurationDays)

	if err := s.repo.Renew(ctx, recordID, newDue, req.LibrarianID, pol.MaxRenewals); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// GetBorrow implements ServiceInterface.GetBorrow
func (s *BorrowService) GetBorrow(ctx context.Context, recordID uuid.UUID) (*model.BorrowResponse, error) {
	record, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}

	resp := record.ToResponse()
	return &resp, nil
}

// ListBorrows implements ServiceInterface.ListBorrows
func (s *BorrowService) ListBorrows(ctx context.Context, req model.ListBorrowsRequest) (*model.ListBorrowsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	records, totalItems, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrow records: %w", err)
	}

	totalPages := (totalItems + req.Limit - 1) / req.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ListBorrowsResponse{
		Items:      model.ToResponseList(records),
		TotalItems: totalItems,
		TotalPages: totalPages,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

// DeletePending implements ServiceInterface.DeletePending
func (s *BorrowService) DeletePending(ctx context.Context, recordID uuid.UUID) error {
	return s.repo.DeletePending(ctx, recordID)
}

// SweepOverdue implements ServiceInterface.SweepOverdue
func (s *BorrowService) SweepOverdue(ctx context.Context, now time.Time, limit int) (int, error) {
	swept, err := s.repo.MarkOverdueDue(ctx, now, limit)
	if err != nil {
		return 0, err
	}

	for _, record := range swept {
		days := int(now.Sub(*record.DueDate).Hours() / 24)
		if days < 1 {
			days = 1
		}

		if emitErr := s.events.OverdueDetected(ctx, model.OverdueDetectedPayload{
			BorrowRecordID: record.ID,
			ReaderID:       record.ReaderID,
			CopyID:         record.CopyID,
			DueDate:        *record.DueDate,
			DaysOverdue:    days,
		}); emitErr != nil {
			// The state change committed; the fine ledger catches up from the
			// record itself if the event is lost.
			logger.Error("failed to emit overdue event", emitErr)
		}
	}

	return len(swept), nil
}

// RemindDueSoon implements ServiceInterface.RemindDueSoon
func (s *BorrowService) RemindDueSoon(ctx context.Context, now time.Time, window time.Duration, limit int) (int, error) {
	records, err := s.repo.ListDueWithin(ctx, now, now.Add(window), limit)
	if err != nil {
		return 0, err
	}

	for _, record := range records {
		if emitErr := s.events.DueSoonReminder(ctx, model.LoanApprovedPayload{
			BorrowRecordID: record.ID,
			ReaderID:       record.ReaderID,
			CopyID:         record.CopyID,
			DueDate:        *record.DueDate,
		}); emitErr != nil {
			logger.Error("failed to emit due-soon reminder", emitErr)
		}
	}

	return len(records), nil
}
