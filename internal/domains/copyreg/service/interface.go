package service

import (
	"context"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/copyreg/model"
)

// ServiceInterface is the copy registry business logic contract.
type ServiceInterface interface {
	RegisterCopy(ctx context.Context, req model.RegisterCopyRequest) (*model.CopyResponse, error)
	GetCopy(ctx context.Context, id uuid.UUID) (*model.CopyResponse, error)
	ListCopies(ctx context.Context, req model.ListCopiesRequest) (*model.ListCopiesResponse, error)

	// UpdateCondition moves a copy between manually-set states
	// (damaged, lost, maintenance, available). Allocation states are rejected.
	UpdateCondition(ctx context.Context, id uuid.UUID, req model.UpdateConditionRequest) (*model.CopyResponse, error)

	ArchiveCopy(ctx context.Context, id uuid.UUID) error
}
