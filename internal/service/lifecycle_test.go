package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory LedgerStore. The mutex spans a whole
// transaction, so concurrent callers serialize the same way row locks
// serialize them against Postgres.
type fakeLedger struct {
	mu      sync.Mutex
	books   map[int64]*models.Book
	readers map[int64]*models.Reader
	borrows map[int64]*models.Borrow
	nextID  int64
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		books:   make(map[int64]*models.Book),
		readers: make(map[int64]*models.Reader),
		borrows: make(map[int64]*models.Borrow),
		nextID:  1,
	}
}

func (f *fakeLedger) WithTx(ctx context.Context, fn func(store.Txn) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn((*fakeTxn)(f))
}

func (f *fakeLedger) ListBorrowViews(ctx context.Context) ([]models.BorrowView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var views []models.BorrowView
	for _, b := range f.borrows {
		views = append(views, models.BorrowView{Borrow: *b})
	}
	return views, nil
}

func (f *fakeLedger) GetBorrowByID(ctx context.Context, id int64) (*models.Borrow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.borrows[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

type fakeTxn fakeLedger

func (t *fakeTxn) BookForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	if b, ok := t.books[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (t *fakeTxn) BorrowForUpdate(ctx context.Context, id int64) (*models.Borrow, error) {
	if b, ok := t.borrows[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (t *fakeTxn) ReaderForUpdate(ctx context.Context, id int64) (*models.Reader, error) {
	if r, ok := t.readers[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, nil
}

func (t *fakeTxn) CountActiveBorrows(ctx context.Context, readerID int64) (int, error) {
	count := 0
	for _, b := range t.borrows {
		if b.ReaderID == readerID && b.Status == models.BorrowStatusBorrowed {
			count++
		}
	}
	return count, nil
}

func (t *fakeTxn) InsertBorrow(ctx context.Context, b *models.Borrow) (int64, error) {
	id := t.nextID
	t.nextID++
	stored := *b
	stored.ID = id
	t.borrows[id] = &stored
	return id, nil
}

func (t *fakeTxn) UpdateBorrowReturned(ctx context.Context, id int64, returnDate time.Time) error {
	b := t.borrows[id]
	b.Status = models.BorrowStatusReturned
	b.ReturnDate = &returnDate
	return nil
}

func (t *fakeTxn) UpdateBorrowRenewed(ctx context.Context, id int64, newDueDate time.Time) error {
	b := t.borrows[id]
	b.DueDate = newDueDate
	b.RenewCount++
	return nil
}

func (t *fakeTxn) UpdateBorrowStatus(ctx context.Context, id int64, status string, returnDate *time.Time) error {
	b := t.borrows[id]
	b.Status = status
	if returnDate != nil {
		b.ReturnDate = returnDate
	}
	return nil
}

func (t *fakeTxn) UpdateBorrowFine(ctx context.Context, id int64, amount float64) error {
	b := t.borrows[id]
	b.FineAmount = &amount
	b.Status = models.BorrowStatusFined
	return nil
}

func (t *fakeTxn) UpdateBookStatus(ctx context.Context, bookID int64, status string) error {
	t.books[bookID].Status = status
	return nil
}

// fakeRecorder collects audit events for assertions.
type fakeRecorder struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (r *fakeRecorder) Record(ctx context.Context, event models.AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func newTestService(ledger LedgerStore, recorder *fakeRecorder, today time.Time) *LifecycleService {
	return &LifecycleService{
		store:  ledger,
		audit:  recorder,
		logger: util.GetLogger(),
		now:    func() time.Time { return today },
	}
}

func seedReaderAndBook(ledger *fakeLedger, maxBorrows int) {
	ledger.readers[1] = &models.Reader{
		ID:             1,
		Name:           "Alice",
		Status:         models.ReaderStatusActive,
		MaxBorrowCount: maxBorrows,
	}
	ledger.books[1] = &models.Book{
		ID:     1,
		Title:  "The Go Programming Language",
		Status: models.BookStatusAvailable,
	}
}

var testActor = Actor{Type: "admin", ID: 7, Origin: "127.0.0.1"}

func TestCreateBorrow(t *testing.T) {
	ledger := newFakeLedger()
	recorder := &fakeRecorder{}
	seedReaderAndBook(ledger, 3)
	today := date(2024, time.March, 1)
	svc := newTestService(ledger, recorder, today)

	ctx := context.Background()
	id, err := svc.CreateBorrow(ctx, testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	borrow := ledger.borrows[id]
	assert.Equal(t, models.BorrowStatusBorrowed, borrow.Status)
	assert.Equal(t, today, borrow.BorrowDate)
	assert.Equal(t, date(2024, time.March, 15), borrow.DueDate)
	assert.Equal(t, models.BookStatusBorrowed, ledger.books[1].Status)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.ActionBorrowCreated, recorder.events[0].Action)
	assert.Equal(t, testActor.ID, recorder.events[0].ActorID)
	assert.Equal(t, id, recorder.events[0].TargetID)
}

func TestCreateBorrowInvalidDays(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 3)
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	_, err := svc.CreateBorrow(context.Background(), testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: -5,
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, models.BookStatusAvailable, ledger.books[1].Status)
}

func TestCreateBorrowLimitReached(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 3)
	for i := int64(10); i < 13; i++ {
		ledger.borrows[i] = &models.Borrow{
			ID:       i,
			ReaderID: 1,
			BookID:   i,
			Status:   models.BorrowStatusBorrowed,
		}
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	_, err := svc.CreateBorrow(context.Background(), testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})

	var eligErr *EligibilityError
	require.ErrorAs(t, err, &eligErr)
	assert.Equal(t, ReasonBorrowLimitReached, eligErr.Reason)
	assert.Equal(t, models.BookStatusAvailable, ledger.books[1].Status)
}

func TestCreateBorrowConcurrentSameBook(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 5)
	ledger.readers[2] = &models.Reader{
		ID:             2,
		Name:           "Bob",
		Status:         models.ReaderStatusActive,
		MaxBorrowCount: 5,
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, readerID := range []int64{1, 2} {
		wg.Add(1)
		go func(readerID int64) {
			defer wg.Done()
			_, err := svc.CreateBorrow(context.Background(), testActor, &CreateBorrowRequest{
				ReaderID:   readerID,
				BookID:     1,
				BorrowDays: 14,
			})
			errs <- err
		}(readerID)
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	require.Len(t, failures, 1)

	var eligErr *EligibilityError
	require.ErrorAs(t, failures[0], &eligErr)
	assert.Equal(t, ReasonBookUnavailable, eligErr.Reason)
	assert.Equal(t, models.BookStatusBorrowed, ledger.books[1].Status)
}

func TestReturnBook(t *testing.T) {
	ledger := newFakeLedger()
	recorder := &fakeRecorder{}
	seedReaderAndBook(ledger, 3)
	today := date(2024, time.March, 1)
	svc := newTestService(ledger, recorder, today)

	ctx := context.Background()
	id, err := svc.CreateBorrow(ctx, testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReturnBook(ctx, testActor, id))

	borrow := ledger.borrows[id]
	assert.Equal(t, models.BorrowStatusReturned, borrow.Status)
	require.NotNil(t, borrow.ReturnDate)
	assert.Equal(t, today, *borrow.ReturnDate)
	assert.Equal(t, models.BookStatusAvailable, ledger.books[1].Status)

	// Second return on the same borrow must fail, not silently succeed.
	err = svc.ReturnBook(ctx, testActor, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReturnBookUnknownID(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakeRecorder{}, date(2024, time.March, 1))
	err := svc.ReturnBook(context.Background(), testActor, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRenewExtendsFromDueDate(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[5] = &models.Borrow{
		ID:         5,
		ReaderID:   1,
		BookID:     1,
		DueDate:    date(2024, time.January, 10),
		RenewCount: 0,
		Status:     models.BorrowStatusBorrowed,
	}
	// Renewing late still counts from the old due date.
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.January, 20))

	newDue, err := svc.Renew(context.Background(), testActor, 5, 30)
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.February, 9), newDue)
	assert.Equal(t, date(2024, time.February, 9), ledger.borrows[5].DueDate)
	assert.Equal(t, 1, ledger.borrows[5].RenewCount)
}

func TestRenewDefaultDays(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[5] = &models.Borrow{
		ID:      5,
		DueDate: date(2024, time.January, 10),
		Status:  models.BorrowStatusBorrowed,
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.January, 5))

	newDue, err := svc.Renew(context.Background(), testActor, 5, 0)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 9), newDue)
}

func TestRenewDaysOutOfRange(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakeRecorder{}, date(2024, time.January, 5))

	var validationErr *ValidationError
	_, err := svc.Renew(context.Background(), testActor, 5, 91)
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.Renew(context.Background(), testActor, 5, -1)
	assert.ErrorAs(t, err, &validationErr)
}

func TestRenewLimit(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[5] = &models.Borrow{
		ID:         5,
		DueDate:    date(2024, time.January, 10),
		RenewCount: 2,
		Status:     models.BorrowStatusBorrowed,
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.January, 5))

	_, err := svc.Renew(context.Background(), testActor, 5, 30)
	assert.ErrorIs(t, err, ErrRenewalLimitExceeded)
	assert.Equal(t, date(2024, time.January, 10), ledger.borrows[5].DueDate)
}

func TestMarkStatusLost(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 3)
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	ctx := context.Background()
	id, err := svc.CreateBorrow(ctx, testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})
	require.NoError(t, err)

	require.NoError(t, svc.MarkStatus(ctx, testActor, id, models.BorrowStatusLost))
	assert.Equal(t, models.BorrowStatusLost, ledger.borrows[id].Status)
	assert.Equal(t, models.BookStatusLost, ledger.books[1].Status)

	// A lost book cannot be borrowed again.
	_, err = svc.CreateBorrow(ctx, testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})
	var eligErr *EligibilityError
	require.ErrorAs(t, err, &eligErr)
	assert.Equal(t, ReasonBookLost, eligErr.Reason)
}

func TestMarkStatusInvalid(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakeRecorder{}, date(2024, time.March, 1))

	var validationErr *ValidationError
	err := svc.MarkStatus(context.Background(), testActor, 1, "fined")
	assert.ErrorAs(t, err, &validationErr)
}

func TestApplyFine(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[5] = &models.Borrow{
		ID:     5,
		BookID: 1,
		Status: models.BorrowStatusReturned,
	}
	ledger.books[1] = &models.Book{ID: 1, Status: models.BookStatusAvailable}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	require.NoError(t, svc.ApplyFine(context.Background(), testActor, 5, 12.50))

	borrow := ledger.borrows[5]
	assert.Equal(t, models.BorrowStatusFined, borrow.Status)
	require.NotNil(t, borrow.FineAmount)
	assert.Equal(t, 12.50, *borrow.FineAmount)
	assert.Equal(t, models.BookStatusAvailable, ledger.books[1].Status)
}

func TestApplyFineValidation(t *testing.T) {
	svc := newTestService(newFakeLedger(), &fakeRecorder{}, date(2024, time.March, 1))

	var validationErr *ValidationError
	err := svc.ApplyFine(context.Background(), testActor, 5, 0)
	assert.ErrorAs(t, err, &validationErr)

	err = svc.ApplyFine(context.Background(), testActor, 5, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBorrowsDerivesOverdue(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[1] = &models.Borrow{
		ID:      1,
		DueDate: date(2024, time.February, 1),
		Status:  models.BorrowStatusBorrowed,
	}
	ledger.borrows[2] = &models.Borrow{
		ID:      2,
		DueDate: date(2024, time.April, 1),
		Status:  models.BorrowStatusBorrowed,
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	views, err := svc.ListBorrows(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 2)

	statuses := map[int64]string{}
	for _, v := range views {
		statuses[v.ID] = v.Status
	}
	assert.Equal(t, models.BorrowStatusOverdue, statuses[1])
	assert.Equal(t, models.BorrowStatusBorrowed, statuses[2])

	// The derived label is never written back to the ledger.
	assert.Equal(t, models.BorrowStatusBorrowed, ledger.borrows[1].Status)
}

func TestGetBorrow(t *testing.T) {
	ledger := newFakeLedger()
	ledger.borrows[1] = &models.Borrow{
		ID:      1,
		DueDate: date(2024, time.February, 1),
		Status:  models.BorrowStatusBorrowed,
	}
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	borrow, err := svc.GetBorrow(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.BorrowStatusOverdue, borrow.Status)

	_, err = svc.GetBorrow(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoundTripCreateReturn(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 3)
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	ctx := context.Background()
	id, err := svc.CreateBorrow(ctx, testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookStatusBorrowed, ledger.books[1].Status)

	require.NoError(t, svc.ReturnBook(ctx, testActor, id))
	assert.Equal(t, models.BookStatusAvailable, ledger.books[1].Status)
}

func TestEligibilityFailureInTxReturnsEligibilityError(t *testing.T) {
	ledger := newFakeLedger()
	seedReaderAndBook(ledger, 3)
	ledger.readers[1].Status = models.ReaderStatusSuspended
	svc := newTestService(ledger, &fakeRecorder{}, date(2024, time.March, 1))

	_, err := svc.CreateBorrow(context.Background(), testActor, &CreateBorrowRequest{
		ReaderID:   1,
		BookID:     1,
		BorrowDays: 14,
	})

	var eligErr *EligibilityError
	require.True(t, errors.As(err, &eligErr))
	assert.Equal(t, ReasonReaderNotEligible, eligErr.Reason)
}
