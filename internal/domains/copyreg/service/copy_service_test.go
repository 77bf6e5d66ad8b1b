package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/domains/copyreg/service"
)

type memoryCopyRepo struct {
	mu     sync.Mutex
	copies map[uuid.UUID]*model.Copy
}

func newMemoryCopyRepo(copies ...*model.Copy) *memoryCopyRepo {
	r := &memoryCopyRepo{copies: make(map[uuid.UUID]*model.Copy)}
	for _, c := range copies {
		r.copies[c.ID] = c
	}
	return r
}

func (r *memoryCopyRepo) Create(_ context.Context, c *model.Copy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *c
	r.copies[c.ID] = &stored
	return nil
}

func (r *memoryCopyRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return nil, model.NewCopyNotFoundError(id)
	}
	out := *c
	return &out, nil
}

func (r *memoryCopyRepo) List(_ context.Context, filter model.ListCopiesRequest) ([]model.Copy, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Copy, 0)
	for _, c := range r.copies {
		if c.IsArchived && !filter.IncludeArchived {
			continue
		}
		if filter.BookID != nil && c.BookID != *filter.BookID {
			continue
		}
		if filter.Status != nil && string(c.Status) != *filter.Status {
			continue
		}
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *memoryCopyRepo) ListByBook(_ context.Context, bookID uuid.UUID) ([]model.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Copy, 0)
	for _, c := range r.copies {
		if c.BookID == bookID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r *memoryCopyRepo) CountAvailableByBook(_ context.Context, bookID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, c := range r.copies {
		if c.BookID == bookID && c.Status == model.StatusAvailable && !c.IsArchived {
			count++
		}
	}
	return count, nil
}

func (r *memoryCopyRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to model.CopyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return model.NewCopyNotFoundError(id)
	}
	if c.Status != from || c.IsArchived {
		return model.ErrStatusConflict
	}
	c.Status = to
	return nil
}

func (r *memoryCopyRepo) SetCondition(_ context.Context, id uuid.UUID, condition string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return model.NewCopyNotFoundError(id)
	}
	c.Condition = condition
	return nil
}

func (r *memoryCopyRepo) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return model.NewCopyNotFoundError(id)
	}
	if c.Status == model.StatusBorrowed || c.Status == model.StatusReserved {
		return model.ErrCopyBorrowed
	}
	c.IsArchived = true
	return nil
}

func copyWithStatus(status model.CopyStatus) *model.Copy {
	return &model.Copy{
		ID:        uuid.New(),
		BookID:    uuid.New(),
		Status:    status,
		Condition: "good",
	}
}

func TestRegisterCopyDefaultsToAvailableGood(t *testing.T) {
	repo := newMemoryCopyRepo()
	svc := service.NewService(repo)

	resp, err := svc.RegisterCopy(context.Background(), model.RegisterCopyRequest{BookID: uuid.New()})
	require.NoError(t, err)

	assert.Equal(t, model.StatusAvailable, resp.Status)
	assert.Equal(t, "good", resp.Condition)
	assert.False(t, resp.IsArchived)
}

func TestUpdateConditionMarksCopyDamaged(t *testing.T) {
	cp := copyWithStatus(model.StatusAvailable)
	svc := service.NewService(newMemoryCopyRepo(cp))

	resp, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status: string(model.StatusDamaged),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDamaged, resp.Status)
}

func TestUpdateConditionReplacesConditionLabel(t *testing.T) {
	cp := copyWithStatus(model.StatusAvailable)
	svc := service.NewService(newMemoryCopyRepo(cp))

	resp, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status:    string(model.StatusDamaged),
		Condition: "water damage on spine",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusDamaged, resp.Status)
	assert.Equal(t, "water damage on spine", resp.Condition)

	// Omitting the label keeps the stored one.
	resp, err = svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status: string(model.StatusMaintenance),
	})
	require.NoError(t, err)
	assert.Equal(t, "water damage on spine", resp.Condition)
}

func TestUpdateConditionRejectsManualAllocationStates(t *testing.T) {
	cp := copyWithStatus(model.StatusAvailable)
	svc := service.NewService(newMemoryCopyRepo(cp))

	for _, status := range []model.CopyStatus{model.StatusBorrowed, model.StatusReserved} {
		_, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
			Status: string(status),
		})
		assert.Error(t, err, "allocation axis must not be writable by hand: %s", status)
	}
}

func TestUpdateConditionOnBorrowedCopyOnlyAllowsLost(t *testing.T) {
	cp := copyWithStatus(model.StatusBorrowed)
	svc := service.NewService(newMemoryCopyRepo(cp))

	_, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status: string(model.StatusDamaged),
	})
	assert.ErrorIs(t, err, model.ErrCopyBorrowed)

	resp, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status: string(model.StatusLost),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusLost, resp.Status)
}

func TestUpdateConditionRejectsArchivedCopy(t *testing.T) {
	cp := copyWithStatus(model.StatusAvailable)
	cp.IsArchived = true
	svc := service.NewService(newMemoryCopyRepo(cp))

	_, err := svc.UpdateCondition(context.Background(), cp.ID, model.UpdateConditionRequest{
		Status: string(model.StatusMaintenance),
	})
	assert.ErrorIs(t, err, model.ErrCopyArchived)
}

func TestArchiveRefusedWhileOnLoan(t *testing.T) {
	cp := copyWithStatus(model.StatusBorrowed)
	repo := newMemoryCopyRepo(cp)
	svc := service.NewService(repo)

	err := svc.ArchiveCopy(context.Background(), cp.ID)
	assert.ErrorIs(t, err, model.ErrCopyBorrowed)

	// Back on the shelf, retirement goes through.
	require.NoError(t, repo.UpdateStatusIf(context.Background(), cp.ID, model.StatusBorrowed, model.StatusAvailable))
	require.NoError(t, svc.ArchiveCopy(context.Background(), cp.ID))

	archived, err := repo.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
}

func TestListCopiesExcludesArchivedByDefault(t *testing.T) {
	bookID := uuid.New()
	live := &model.Copy{ID: uuid.New(), BookID: bookID, Status: model.StatusAvailable}
	retired := &model.Copy{ID: uuid.New(), BookID: bookID, Status: model.StatusAvailable, IsArchived: true}
	svc := service.NewService(newMemoryCopyRepo(live, retired))

	resp, err := svc.ListCopies(context.Background(), model.ListCopiesRequest{BookID: &bookID, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, live.ID, resp.Items[0].ID)

	resp, err = svc.ListCopies(context.Background(), model.ListCopiesRequest{BookID: &bookID, IncludeArchived: true, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
}
