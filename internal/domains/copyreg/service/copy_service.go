package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/domains/copyreg/repository"
)

type CopyService struct {
	repo repository.RepositoryInterface
}

// NewService creates a new copy registry service
func NewService(repo repository.RepositoryInterface) ServiceInterface {
	return &CopyService{
		repo: repo,
	}
}

// RegisterCopy implements ServiceInterface.RegisterCopy
func (s *CopyService) RegisterCopy(ctx context.Context, req model.RegisterCopyRequest) (*model.CopyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	condition := req.Condition
	if condition == "" {
		condition = "good"
	}

	now := time.Now()
	copy := model.Copy{
		ID:         uuid.New(),
		BookID:     req.BookID,
		Status:     model.StatusAvailable,
		Condition:  condition,
		IsArchived: false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Create(ctx, &copy); err != nil {
		return nil, fmt.Errorf("failed to register copy: %w", err)
	}

	resp := copy.ToResponse()
	return &resp, nil
}

// GetCopy implements ServiceInterface.GetCopy
func (s *CopyService) GetCopy(ctx context.Context, id uuid.UUID) (*model.CopyResponse, error) {
	copy, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := copy.ToResponse()
	return &resp, nil
}

// ListCopies implements ServiceInterface.ListCopies
func (s *CopyService) ListCopies(ctx context.Context, req model.ListCopiesRequest) (*model.ListCopiesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Status != nil && !model.IsValidStatus(*req.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrInvalidStatusTransition, *req.Status)
	}

	copies, totalItems, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list copies: %w", err)
	}

	totalPages := (totalItems + req.Limit - 1) / req.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	return &model.ListCopiesResponse{
		Items:      model.ToResponseList(copies),
		TotalItems: totalItems,
		TotalPages: totalPages,
		Page:       req.Page,
		Limit:      req.Limit,
	}, nil
}

// UpdateCondition implements ServiceInterface.UpdateCondition.
// Transitions onto the allocation axis (borrowed/reserved) are rejected by
// DTO validation; here we enforce the state machine against the current row.
func (s *CopyService) UpdateCondition(ctx context.Context, id uuid.UUID, req model.UpdateConditionRequest) (*model.CopyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if current.IsArchived {
		return nil, model.ErrCopyArchived
	}

	target := model.CopyStatus(req.Status)
	if current.Status == model.StatusBorrowed {
		// A loss report on a borrowed copy is the only manual change allowed
		// while on loan; everything else waits for the return.
		if target != model.StatusLost {
			return nil, model.ErrCopyBorrowed
		}
	}

	if !model.CanTransition(current.Status, target) {
		return nil, model.NewInvalidTransitionError(current.Status, target)
	}

	if err := s.repo.UpdateStatusIf(ctx, id, current.Status, target); err != nil {
		return nil, err
	}

	if req.Condition != "" && req.Condition != current.Condition {
		if err := s.repo.SetCondition(ctx, id, req.Condition); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := updated.ToResponse()
	return &resp, nil
}

// ArchiveCopy implements ServiceInterface.ArchiveCopy
func (s *CopyService) ArchiveCopy(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Archive(ctx, id); err != nil {
		return err
	}
	return nil
}
