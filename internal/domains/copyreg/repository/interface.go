package repository

import (
	"context"

	"github.com/google/uuid"

	"circulation-backend/internal/domains/copyreg/model"
)

// RepositoryInterface is the data access contract for the copy registry.
type RepositoryInterface interface {
	Create(ctx context.Context, copy *model.Copy) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Copy, error)
	List(ctx context.Context, filter model.ListCopiesRequest) ([]model.Copy, int, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]model.Copy, error)

	// CountAvailableByBook counts non-archived available copies of a title.
	CountAvailableByBook(ctx context.Context, bookID uuid.UUID) (int, error)

	// UpdateStatusIf transitions id from one status to another in a single
	// conditional update. Returns model.ErrStatusConflict when the copy exists
	// but its status is no longer `from`, meaning the caller lost the race.
	// This is the engine's only write path for the
	// available/borrowed/reserved axis.
	UpdateStatusIf(ctx context.Context, id uuid.UUID, from, to model.CopyStatus) error

	// SetCondition updates the free-form condition label.
	SetCondition(ctx context.Context, id uuid.UUID, condition string) error

	// Archive flags the copy archived; fails with model.ErrCopyBorrowed when
	// the copy is on loan or held for a reservation.
	Archive(ctx context.Context, id uuid.UUID) error
}
