package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"circulation-backend/internal/config"
	"circulation-backend/internal/domains/allocation"
	borrowModel "circulation-backend/internal/domains/borrow/model"
	copyModel "circulation-backend/internal/domains/copyreg/model"
	"circulation-backend/internal/domains/policy"
	"circulation-backend/internal/domains/reservation/model"
	"circulation-backend/internal/domains/reservation/service"
)

// ===================================
// FAKES
// ===================================

// memoryReservationRepo mirrors the queue-ordering and conditional-update
// semantics of the postgres repository.
type memoryReservationRepo struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*model.Reservation
}

func newMemoryReservationRepo() *memoryReservationRepo {
	return &memoryReservationRepo{reservations: make(map[uuid.UUID]*model.Reservation)}
}

func (r *memoryReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reservations {
		if existing.ReaderID == res.ReaderID && existing.BookID == res.BookID && existing.Status == model.StatusPending {
			return model.ErrDuplicateReservation
		}
	}
	stored := *res
	r.reservations[res.ID] = &stored
	return nil
}

func (r *memoryReservationRepo) GetByID(_ context.Context, id uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, model.NewReservationNotFoundError(id)
	}
	out := *res
	return &out, nil
}

func (r *memoryReservationRepo) List(_ context.Context, filter model.ListReservationsRequest) ([]model.Reservation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, res := range r.reservations {
		if filter.BookID != nil && res.BookID != *filter.BookID {
			continue
		}
		if filter.Status != nil && string(res.Status) != *filter.Status {
			continue
		}
		out = append(out, *res)
	}
	return out, len(out), nil
}

// servedBefore is the pending-queue order: priority, then reservation date,
// then id.
func servedBefore(a, b *model.Reservation) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if !a.ReservationDate.Equal(b.ReservationDate) {
		return a.ReservationDate.Before(b.ReservationDate)
	}
	return a.ID.String() < b.ID.String()
}

func (r *memoryReservationRepo) NextPending(_ context.Context, bookID uuid.UUID) (*model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var head *model.Reservation
	for _, res := range r.reservations {
		if res.BookID != bookID || res.Status != model.StatusPending {
			continue
		}
		if head == nil || servedBefore(res, head) {
			head = res
		}
	}
	if head == nil {
		return nil, model.ErrReservationNotFound
	}
	out := *head
	return &out, nil
}

func (r *memoryReservationRepo) CountPendingByBook(_ context.Context, bookID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.BookID == bookID && res.Status == model.StatusPending {
			count++
		}
	}
	return count, nil
}

func (r *memoryReservationRepo) CountPendingAhead(_ context.Context, target *model.Reservation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.BookID == target.BookID && res.Status == model.StatusPending && servedBefore(res, target) {
			count++
		}
	}
	return count, nil
}

func (r *memoryReservationRepo) HasPendingByReader(_ context.Context, readerID, bookID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, res := range r.reservations {
		if res.ReaderID == readerID && res.BookID == bookID && res.Status == model.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryReservationRepo) FulfillPending(_ context.Context, id, copyID, librarianID uuid.UUID, now time.Time, attach func(pgx.Tx) error) error {
	err := r.transition(id, model.StatusFulfilled, func(res *model.Reservation) bool {
		if res.Status != model.StatusPending {
			return false
		}
		res.Status = model.StatusFulfilled
		res.PhysicalCopyID = &copyID
		res.FulfillmentDate = &now
		res.FulfilledBy = &librarianID
		return true
	})
	if err != nil {
		return err
	}
	if attach != nil {
		return attach(nil)
	}
	return nil
}

func (r *memoryReservationRepo) CancelPending(_ context.Context, id, cancelledBy uuid.UUID, reason string, now time.Time) error {
	return r.transition(id, model.StatusCancelled, func(res *model.Reservation) bool {
		if res.Status != model.StatusPending {
			return false
		}
		res.Status = model.StatusCancelled
		res.CancelledDate = &now
		res.CancelledBy = &cancelledBy
		res.CancellationReason = reason
		return true
	})
}

func (r *memoryReservationRepo) ExpireIf(_ context.Context, id uuid.UUID, now time.Time) error {
	return r.transition(id, model.StatusExpired, func(res *model.Reservation) bool {
		if res.Status != model.StatusPending || res.ExpiryDate.After(now) {
			return false
		}
		res.Status = model.StatusExpired
		return true
	})
}

func (r *memoryReservationRepo) ExpirePendingDue(_ context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, res := range r.reservations {
		if len(out) >= limit {
			break
		}
		if res.Status == model.StatusPending && !res.ExpiryDate.After(now) {
			res.Status = model.StatusExpired
			out = append(out, *res)
		}
	}
	return out, nil
}

func (r *memoryReservationRepo) transition(id uuid.UUID, target model.Status, apply func(*model.Reservation) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return model.NewReservationNotFoundError(id)
	}
	if !apply(res) {
		return model.NewInvalidTransitionError(res.Status, target)
	}
	return nil
}

// memoryCopyRepo is the in-memory copy registry backing the coordinator.
type memoryCopyRepo struct {
	mu     sync.Mutex
	copies map[uuid.UUID]*copyModel.Copy
}

func newMemoryCopyRepo(copies ...*copyModel.Copy) *memoryCopyRepo {
	r := &memoryCopyRepo{copies: make(map[uuid.UUID]*copyModel.Copy)}
	for _, c := range copies {
		r.copies[c.ID] = c
	}
	return r
}

func (r *memoryCopyRepo) Create(_ context.Context, c *copyModel.Copy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.copies[c.ID] = c
	return nil
}

func (r *memoryCopyRepo) GetByID(_ context.Context, id uuid.UUID) (*copyModel.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return nil, copyModel.NewCopyNotFoundError(id)
	}
	out := *c
	return &out, nil
}

func (r *memoryCopyRepo) List(_ context.Context, _ copyModel.ListCopiesRequest) ([]copyModel.Copy, int, error) {
	return nil, 0, nil
}

func (r *memoryCopyRepo) ListByBook(_ context.Context, bookID uuid.UUID) ([]copyModel.Copy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]copyModel.Copy, 0)
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
		if c.BookID == bookID && c.Status == copyModel.StatusAvailable && !c.IsArchived {
			count++
		}
	}
	return count, nil
}

func (r *memoryCopyRepo) UpdateStatusIf(_ context.Context, id uuid.UUID, from, to copyModel.CopyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return copyModel.NewCopyNotFoundError(id)
	}
	if c.Status != from || c.IsArchived {
		return copyModel.ErrStatusConflict
	}
	c.Status = to
	return nil
}

func (r *memoryCopyRepo) SetCondition(_ context.Context, id uuid.UUID, condition string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return copyModel.NewCopyNotFoundError(id)
	}
	c.Condition = condition
	return nil
}

func (r *memoryCopyRepo) Archive(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.copies[id]
	if !ok {
		return copyModel.NewCopyNotFoundError(id)
	}
	c.IsArchived = true
	return nil
}

// memoryLoanRepo records the loan rows a fulfillment inserts; the rest of the
// borrow repository contract is out of scope here.
type memoryLoanRepo struct {
	mu       sync.Mutex
	inserted []borrowModel.BorrowRecord
}

func (r *memoryLoanRepo) InsertTx(_ context.Context, _ pgx.Tx, record *borrowModel.BorrowRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted = append(r.inserted, *record)
	return nil
}

func (r *memoryLoanRepo) Create(context.Context, *borrowModel.BorrowRecord) error {
	panic("not used")
}
func (r *memoryLoanRepo) GetByID(context.Context, uuid.UUID) (*borrowModel.BorrowRecord, error) {
	panic("not used")
}
func (r *memoryLoanRepo) List(context.Context, borrowModel.ListBorrowsRequest) ([]borrowModel.BorrowRecord, int, error) {
	panic("not used")
}
func (r *memoryLoanRepo) CountActiveByReader(context.Context, uuid.UUID) (int, error) {
	panic("not used")
}
func (r *memoryLoanRepo) GetActiveByCopy(context.Context, uuid.UUID) (*borrowModel.BorrowRecord, error) {
	panic("not used")
}
func (r *memoryLoanRepo) ApprovePending(context.Context, uuid.UUID, time.Time, time.Time) error {
	panic("not used")
}
func (r *memoryLoanRepo) RejectPending(context.Context, uuid.UUID, string) error {
	panic("not used")
}
func (r *memoryLoanRepo) MarkReturned(context.Context, uuid.UUID, time.Time, string) error {
	panic("not used")
}
func (r *memoryLoanRepo) Renew(context.Context, uuid.UUID, time.Time, uuid.UUID, int) error {
	panic("not used")
}
func (r *memoryLoanRepo) MarkOverdueDue(context.Context, time.Time, int) ([]borrowModel.BorrowRecord, error) {
	panic("not used")
}
func (r *memoryLoanRepo) ListDueWithin(context.Context, time.Time, time.Time, int) ([]borrowModel.BorrowRecord, error) {
	panic("not used")
}
func (r *memoryLoanRepo) DeletePending(context.Context, uuid.UUID) error {
	panic("not used")
}

// recordingNotifier captures outbound reservation events.
type recordingNotifier struct {
	mu         sync.Mutex
	fulfilled  []model.ReservationFulfilledPayload
	nextInLine []model.NextInLinePayload
}

func (n *recordingNotifier) ReservationFulfilled(_ context.Context, p model.ReservationFulfilledPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fulfilled = append(n.fulfilled, p)
	return nil
}

func (n *recordingNotifier) NextInLine(_ context.Context, p model.NextInLinePayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextInLine = append(n.nextInLine, p)
	return nil
}

// ===================================
// FIXTURE
// ===================================

type fixture struct {
	svc    *service.ReservationService
	repo   *memoryReservationRepo
	copies *memoryCopyRepo
	loans  *memoryLoanRepo
	notify *recordingNotifier
}

func newFixture(copies ...*copyModel.Copy) *fixture {
	repo := newMemoryReservationRepo()
	copyRepo := newMemoryCopyRepo(copies...)
	coord := allocation.NewCoordinator(allocation.NewMemoryLocker(), copyRepo)
	policies := policy.NewStaticSource(config.PolicyConfig{
		DefaultMaxBorrowLimit:    5,
		DefaultBorrowDuration:    14,
		DefaultMaxRenewals:       2,
		DefaultReservationExpiry: 7,
	})
	loans := &memoryLoanRepo{}
	notify := &recordingNotifier{}

	svc := service.NewService(repo, copyRepo, coord, policies, loans, notify)
	return &fixture{svc: svc, repo: repo, copies: copyRepo, loans: loans, notify: notify}
}

func borrowedCopy(bookID uuid.UUID) *copyModel.Copy {
	return &copyModel.Copy{
		ID:     uuid.New(),
		BookID: bookID,
		Status: copyModel.StatusBorrowed,
	}
}

func reservationRequest(bookID uuid.UUID) model.RequestReservationRequest {
	return model.RequestReservationRequest{
		ReaderID: uuid.New(),
		BookID:   bookID,
		Priority: 5,
	}
}

// ===================================
// TESTS
// ===================================

func TestRequestReservationRejectedWhileSupplyExists(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(&copyModel.Copy{ID: uuid.New(), BookID: bookID, Status: copyModel.StatusAvailable})

	_, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	assert.ErrorIs(t, err, model.ErrNoDemand)
}

func TestRequestReservationWhenSupplyExhausted(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(borrowedCopy(bookID))

	before := time.Now()
	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, res.Status)
	assert.Nil(t, res.PhysicalCopyID, "no copy is bound until fulfillment")
	assert.WithinDuration(t, before.AddDate(0, 0, 7), res.ExpiryDate, time.Minute)
}

func TestRequestReservationRejectsDuplicatePending(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(borrowedCopy(bookID))

	req := reservationRequest(bookID)
	_, err := f.svc.RequestReservation(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.RequestReservation(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrDuplicateReservation)
}

func TestFulfillGrantsCopyAndCreatesLoan(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	// The loaned copy came back.
	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))

	fulfilled, err := f.svc.Fulfill(context.Background(), res.ID, model.FulfillRequest{
		CopyID:      cp.ID,
		LibrarianID: uuid.New(),
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusFulfilled, fulfilled.Status)
	require.NotNil(t, fulfilled.PhysicalCopyID)
	assert.Equal(t, cp.ID, *fulfilled.PhysicalCopyID)

	cur, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusBorrowed, cur.Status)

	require.Len(t, f.loans.inserted, 1)
	loan := f.loans.inserted[0]
	assert.Equal(t, res.ReaderID, loan.ReaderID)
	assert.Equal(t, cp.ID, loan.CopyID)
	assert.Equal(t, borrowModel.StatusBorrowed, loan.Status)
	require.NotNil(t, loan.DueDate)

	require.Len(t, f.notify.fulfilled, 1)
	assert.Equal(t, loan.ID, f.notify.fulfilled[0].BorrowRecordID)
}

func TestFulfillClaimsCopyHeldForQueue(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	// The return handler held the copy for the queue head; fulfillment must
	// claim it through the held path.
	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))
	f.svc.OnCopyAvailable(context.Background(), bookID, cp.ID)

	held, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	require.Equal(t, copyModel.StatusReserved, held.Status)

	fulfilled, err := f.svc.Fulfill(context.Background(), res.ID, model.FulfillRequest{
		CopyID:      cp.ID,
		LibrarianID: uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFulfilled, fulfilled.Status)

	cur, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusBorrowed, cur.Status)

	require.Len(t, f.loans.inserted, 1)
	assert.Equal(t, res.ReaderID, f.loans.inserted[0].ReaderID)
}

func TestFulfillRespectsPriorityOrder(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	urgent := reservationRequest(bookID)
	urgent.Priority = 1
	routine := reservationRequest(bookID)
	routine.Priority = 9

	urgentRes, err := f.svc.RequestReservation(context.Background(), urgent)
	require.NoError(t, err)
	routineRes, err := f.svc.RequestReservation(context.Background(), routine)
	require.NoError(t, err)

	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))

	_, err = f.svc.Fulfill(context.Background(), routineRes.ID, model.FulfillRequest{CopyID: cp.ID, LibrarianID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrNotNextInLine)

	_, err = f.svc.Fulfill(context.Background(), urgentRes.ID, model.FulfillRequest{CopyID: cp.ID, LibrarianID: uuid.New()})
	require.NoError(t, err)
}

func TestFulfillTieBreaksByReservationDate(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	first, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))

	_, err = f.svc.Fulfill(context.Background(), second.ID, model.FulfillRequest{CopyID: cp.ID, LibrarianID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrNotNextInLine)

	_, err = f.svc.Fulfill(context.Background(), first.ID, model.FulfillRequest{CopyID: cp.ID, LibrarianID: uuid.New()})
	require.NoError(t, err)
}

func TestFulfillExpiredReservation(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	// Push the expiry into the past.
	stored, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	stored.ExpiryDate = time.Now().AddDate(0, 0, -1)
	f.repo.reservations[res.ID] = stored

	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))

	_, err = f.svc.Fulfill(context.Background(), res.ID, model.FulfillRequest{CopyID: cp.ID, LibrarianID: uuid.New()})
	assert.ErrorIs(t, err, model.ErrReservationExpired)

	after, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, after.Status, "lapsed claim is classified on contact")

	assert.Empty(t, f.loans.inserted)
}

func TestCancelPendingReservation(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(borrowedCopy(bookID))

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), res.ID, model.CancelRequest{
		CancelledBy: uuid.New(),
		Reason:      "no longer needed",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, "no longer needed", cancelled.CancellationReason)

	_, err = f.svc.Cancel(context.Background(), res.ID, model.CancelRequest{
		CancelledBy: uuid.New(),
		Reason:      "again",
	})
	assert.True(t, model.IsInvalidTransitionError(err))
}

func TestCancelReleasesOrphanedHold(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	// Return feeds the queue: the copy is held for the only reservation.
	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))
	f.svc.OnCopyAvailable(context.Background(), bookID, cp.ID)

	held, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	require.Equal(t, copyModel.StatusReserved, held.Status)

	_, err = f.svc.Cancel(context.Background(), res.ID, model.CancelRequest{
		CancelledBy: uuid.New(),
		Reason:      "changed plans",
	})
	require.NoError(t, err)

	freed, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusAvailable, freed.Status, "hold released once the queue is empty")
}

func TestQueuePosition(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(borrowedCopy(bookID))

	urgent := reservationRequest(bookID)
	urgent.Priority = 1
	routine := reservationRequest(bookID)
	routine.Priority = 9

	routineRes, err := f.svc.RequestReservation(context.Background(), routine)
	require.NoError(t, err)
	urgentRes, err := f.svc.RequestReservation(context.Background(), urgent)
	require.NoError(t, err)

	pos, err := f.svc.QueuePosition(context.Background(), urgentRes.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pos.Position, "lower priority value is served first regardless of arrival order")
	assert.Equal(t, 2, pos.QueueLength)

	pos, err = f.svc.QueuePosition(context.Background(), routineRes.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, pos.Position)
}

func TestOnCopyAvailableHoldsCopyForQueueHead(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))
	f.svc.OnCopyAvailable(context.Background(), bookID, cp.ID)

	held, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusReserved, held.Status)

	require.Len(t, f.notify.nextInLine, 1)
	assert.Equal(t, res.ID, f.notify.nextInLine[0].ReservationID)
	assert.Equal(t, cp.ID, f.notify.nextInLine[0].CopyID)
}

func TestOnCopyAvailableWithEmptyQueueLeavesCopyAlone(t *testing.T) {
	bookID := uuid.New()
	cp := &copyModel.Copy{ID: uuid.New(), BookID: bookID, Status: copyModel.StatusAvailable}
	f := newFixture(cp)

	f.svc.OnCopyAvailable(context.Background(), bookID, cp.ID)

	cur, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusAvailable, cur.Status)
	assert.Empty(t, f.notify.nextInLine)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	bookID := uuid.New()
	f := newFixture(borrowedCopy(bookID))

	res, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	future := time.Now().AddDate(0, 0, 8) // past the 7-day expiry

	count, err := f.svc.SweepExpired(context.Background(), future, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	after, err := f.repo.GetByID(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusExpired, after.Status)

	count, err = f.svc.SweepExpired(context.Background(), future, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "second sweep with no new writes is a no-op")
}

func TestSweepExpiredReofferHeldCopyToNewHead(t *testing.T) {
	bookID := uuid.New()
	cp := borrowedCopy(bookID)
	f := newFixture(cp)

	first, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.svc.RequestReservation(context.Background(), reservationRequest(bookID))
	require.NoError(t, err)

	// Copy comes back and is held for the first reservation.
	require.NoError(t, f.copies.UpdateStatusIf(context.Background(), cp.ID, copyModel.StatusBorrowed, copyModel.StatusAvailable))
	f.svc.OnCopyAvailable(context.Background(), bookID, cp.ID)
	require.Len(t, f.notify.nextInLine, 1)

	// Only the first reservation lapses.
	stored, err := f.repo.GetByID(context.Background(), first.ID)
	require.NoError(t, err)
	stored.ExpiryDate = time.Now().AddDate(0, 0, -1)
	f.repo.reservations[first.ID] = stored

	count, err := f.svc.SweepExpired(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The held copy is re-offered to the surviving reservation.
	require.Len(t, f.notify.nextInLine, 2)
	assert.Equal(t, second.ID, f.notify.nextInLine[1].ReservationID)

	held, err := f.copies.GetByID(context.Background(), cp.ID)
	require.NoError(t, err)
	assert.Equal(t, copyModel.StatusReserved, held.Status, "hold survives while demand remains")
}
