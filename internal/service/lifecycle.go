package service

import (
	"context"
	"fmt"
	"time"

	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"go.uber.org/zap"
)

const (
	maxRenewCount     = 2
	defaultExtendDays = 30
	minExtendDays     = 1
	maxExtendDays     = 90
)

// Actor identifies who performs an operation. Every lifecycle call carries
// it explicitly; there is no implicit system actor.
type Actor struct {
	Type   string
	ID     int64
	Origin string
}

// AuditRecorder receives a fire-and-forget record of every mutating
// operation. Implementations must never block the request path on failure.
type AuditRecorder interface {
	Record(ctx context.Context, event models.AuditEvent)
}

// LedgerStore is the transactional storage the lifecycle engine runs on.
type LedgerStore interface {
	WithTx(ctx context.Context, fn func(store.Txn) error) error
	ListBorrowViews(ctx context.Context) ([]models.BorrowView, error)
	GetBorrowByID(ctx context.Context, id int64) (*models.Borrow, error)
}

// LifecycleService enforces every borrow state transition. Each operation
// executes inside one transaction: the borrow row and the book status
// either both change or neither does.
type LifecycleService struct {
	store  LedgerStore
	audit  AuditRecorder
	logger *zap.Logger
	now    func() time.Time
}

// NewLifecycleService creates the lifecycle engine.
func NewLifecycleService(ledger LedgerStore, audit AuditRecorder) *LifecycleService {
	return &LifecycleService{
		store:  ledger,
		audit:  audit,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// today truncates the clock to a calendar date. All ledger date arithmetic
// works on dates, not instants.
func (s *LifecycleService) today() time.Time {
	t := s.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CreateBorrowRequest represents a request to borrow a book.
type CreateBorrowRequest struct {
	ReaderID   int64  `json:"reader_id" binding:"required"`
	BookID     int64  `json:"book_id" binding:"required"`
	BorrowDays int    `json:"borrow_days" binding:"required"`
	Notes      string `json:"notes"`
}

// CreateBorrow checks eligibility and opens a new borrow, marking the book
// borrowed in the same transaction. The book row is locked first, then the
// reader row, so concurrent borrows of the same book or by the same reader
// serialize: the loser re-reads the committed state and fails with
// BookUnavailable or BorrowLimitReached.
func (s *LifecycleService) CreateBorrow(ctx context.Context, actor Actor, req *CreateBorrowRequest) (int64, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.CreateBorrow")
	defer span.End()

	if req.BorrowDays <= 0 {
		util.BorrowsFailedTotal.WithLabelValues("invalid_input").Inc()
		return 0, validationErrorf("borrow_days must be a positive integer, got %d", req.BorrowDays)
	}

	today := s.today()
	var borrowID int64

	err := s.store.WithTx(ctx, func(tx store.Txn) error {
		book, err := tx.BookForUpdate(ctx, req.BookID)
		if err != nil {
			return &StorageError{Err: err}
		}
		reader, err := tx.ReaderForUpdate(ctx, req.ReaderID)
		if err != nil {
			return &StorageError{Err: err}
		}

		activeCount := 0
		if reader != nil {
			activeCount, err = tx.CountActiveBorrows(ctx, req.ReaderID)
			if err != nil {
				return &StorageError{Err: err}
			}
		}

		if err := CheckEligibility(reader, book, activeCount); err != nil {
			return err
		}

		borrow := &models.Borrow{
			ReaderID:   req.ReaderID,
			BookID:     req.BookID,
			BorrowDate: today,
			DueDate:    today.AddDate(0, 0, req.BorrowDays),
			Status:     models.BorrowStatusBorrowed,
			Notes:      req.Notes,
		}
		borrowID, err = tx.InsertBorrow(ctx, borrow)
		if err != nil {
			return &StorageError{Err: err}
		}
		if err := tx.UpdateBookStatus(ctx, req.BookID, models.BookStatusBorrowed); err != nil {
			return &StorageError{Err: err}
		}
		return nil
	})
	if err != nil {
		if eligErr, ok := err.(*EligibilityError); ok {
			util.BorrowsFailedTotal.WithLabelValues(string(eligErr.Reason)).Inc()
		} else {
			util.BorrowsFailedTotal.WithLabelValues("storage_error").Inc()
		}
		return 0, err
	}

	util.BorrowsCreatedTotal.Inc()
	s.logger.Info("Borrow created",
		zap.Int64("borrow_id", borrowID),
		zap.Int64("reader_id", req.ReaderID),
		zap.Int64("book_id", req.BookID))

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionBorrowCreated,
		TargetType:  models.TargetBorrow,
		TargetID:    borrowID,
		Description: fmt.Sprintf("borrow created: reader %d, book %d, %d days", req.ReaderID, req.BookID, req.BorrowDays),
		Origin:      actor.Origin,
	})

	return borrowID, nil
}

// ReturnBook closes an active borrow and releases the book. A second call
// on an already-returned borrow fails with ErrNotFound; this also catches
// double-return races.
func (s *LifecycleService) ReturnBook(ctx context.Context, actor Actor, borrowID int64) error {
	ctx, span := util.StartSpan(ctx, "LifecycleService.ReturnBook")
	defer span.End()

	today := s.today()
	var bookID int64

	err := s.store.WithTx(ctx, func(tx store.Txn) error {
		borrow, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return &StorageError{Err: err}
		}
		if borrow == nil || borrow.Status != models.BorrowStatusBorrowed {
			return ErrNotFound
		}
		if err := tx.UpdateBorrowReturned(ctx, borrowID, today); err != nil {
			return &StorageError{Err: err}
		}
		if err := tx.UpdateBookStatus(ctx, borrow.BookID, models.BookStatusAvailable); err != nil {
			return &StorageError{Err: err}
		}
		bookID = borrow.BookID
		return nil
	})
	if err != nil {
		return err
	}

	util.BooksReturnedTotal.Inc()
	s.logger.Info("Book returned",
		zap.Int64("borrow_id", borrowID),
		zap.Int64("book_id", bookID))

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionBookReturned,
		TargetType:  models.TargetBorrow,
		TargetID:    borrowID,
		Description: fmt.Sprintf("book %d returned", bookID),
		Origin:      actor.Origin,
	})

	return nil
}

// Renew extends an active borrow. The new due date counts from the current
// due date, not from today, so late renewals do not grant extra time.
// extendDays of 0 means the default of 30 days.
func (s *LifecycleService) Renew(ctx context.Context, actor Actor, borrowID int64, extendDays int) (time.Time, error) {
	ctx, span := util.StartSpan(ctx, "LifecycleService.Renew")
	defer span.End()

	if extendDays == 0 {
		extendDays = defaultExtendDays
	}
	if extendDays < minExtendDays || extendDays > maxExtendDays {
		return time.Time{}, validationErrorf("extend days must be between %d and %d, got %d",
			minExtendDays, maxExtendDays, extendDays)
	}

	var newDueDate time.Time

	err := s.store.WithTx(ctx, func(tx store.Txn) error {
		borrow, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return &StorageError{Err: err}
		}
		if borrow == nil || borrow.Status != models.BorrowStatusBorrowed {
			return ErrNotFound
		}
		if borrow.RenewCount >= maxRenewCount {
			return ErrRenewalLimitExceeded
		}
		newDueDate = borrow.DueDate.AddDate(0, 0, extendDays)
		if err := tx.UpdateBorrowRenewed(ctx, borrowID, newDueDate); err != nil {
			return &StorageError{Err: err}
		}
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	util.RenewalsTotal.Inc()
	s.logger.Info("Borrow renewed",
		zap.Int64("borrow_id", borrowID),
		zap.Int("extend_days", extendDays),
		zap.Time("new_due_date", newDueDate))

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionBorrowRenewed,
		TargetType:  models.TargetBorrow,
		TargetID:    borrowID,
		Description: fmt.Sprintf("borrow renewed by %d days, due %s", extendDays, newDueDate.Format("2006-01-02")),
		Origin:      actor.Origin,
	})

	return newDueDate, nil
}

// MarkStatus applies an administrative status change to a borrow and
// mirrors it onto the book where the transition demands it: returned
// releases the book, damaged and lost quarantine it until reset.
func (s *LifecycleService) MarkStatus(ctx context.Context, actor Actor, borrowID int64, status string) error {
	ctx, span := util.StartSpan(ctx, "LifecycleService.MarkStatus")
	defer span.End()

	switch status {
	case models.BorrowStatusBorrowed, models.BorrowStatusReturned,
		models.BorrowStatusReserved, models.BorrowStatusDamaged, models.BorrowStatusLost:
	default:
		return validationErrorf("invalid borrow status %q", status)
	}

	today := s.today()

	err := s.store.WithTx(ctx, func(tx store.Txn) error {
		borrow, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return &StorageError{Err: err}
		}
		if borrow == nil {
			return ErrNotFound
		}

		var returnDate *time.Time
		if status == models.BorrowStatusReturned {
			returnDate = &today
		}
		if err := tx.UpdateBorrowStatus(ctx, borrowID, status, returnDate); err != nil {
			return &StorageError{Err: err}
		}

		switch status {
		case models.BorrowStatusReturned:
			err = tx.UpdateBookStatus(ctx, borrow.BookID, models.BookStatusAvailable)
		case models.BorrowStatusDamaged:
			err = tx.UpdateBookStatus(ctx, borrow.BookID, models.BookStatusDamaged)
		case models.BorrowStatusLost:
			err = tx.UpdateBookStatus(ctx, borrow.BookID, models.BookStatusLost)
		}
		if err != nil {
			return &StorageError{Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	util.StatusUpdatesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Borrow status updated",
		zap.Int64("borrow_id", borrowID),
		zap.String("status", status))

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionBorrowStatus,
		TargetType:  models.TargetBorrow,
		TargetID:    borrowID,
		Description: fmt.Sprintf("borrow status set to %s", status),
		Origin:      actor.Origin,
	})

	return nil
}

// ApplyFine records a fine against a borrow in any state. The book status
// is untouched.
func (s *LifecycleService) ApplyFine(ctx context.Context, actor Actor, borrowID int64, amount float64) error {
	ctx, span := util.StartSpan(ctx, "LifecycleService.ApplyFine")
	defer span.End()

	if amount <= 0 {
		return validationErrorf("fine amount must be greater than zero, got %.2f", amount)
	}

	err := s.store.WithTx(ctx, func(tx store.Txn) error {
		borrow, err := tx.BorrowForUpdate(ctx, borrowID)
		if err != nil {
			return &StorageError{Err: err}
		}
		if borrow == nil {
			return ErrNotFound
		}
		if err := tx.UpdateBorrowFine(ctx, borrowID, amount); err != nil {
			return &StorageError{Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	util.FinesAppliedTotal.Inc()
	s.logger.Info("Fine applied",
		zap.Int64("borrow_id", borrowID),
		zap.Float64("amount", amount))

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionFineApplied,
		TargetType:  models.TargetBorrow,
		TargetID:    borrowID,
		Description: fmt.Sprintf("fine of %.2f applied", amount),
		Origin:      actor.Origin,
	})

	return nil
}

// GetBorrow returns one borrow or ErrNotFound. Like ListBorrows, a borrow
// past its due date is presented as overdue.
func (s *LifecycleService) GetBorrow(ctx context.Context, borrowID int64) (*models.Borrow, error) {
	borrow, err := s.store.GetBorrowByID(ctx, borrowID)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if borrow == nil {
		return nil, ErrNotFound
	}
	if borrow.Status == models.BorrowStatusBorrowed && borrow.DueDate.Before(s.today()) {
		borrow.Status = models.BorrowStatusOverdue
	}
	return borrow, nil
}

// ListBorrows returns the joined borrow views. A borrow past its due date
// is presented as overdue; the label is derived here and never stored.
func (s *LifecycleService) ListBorrows(ctx context.Context) ([]models.BorrowView, error) {
	views, err := s.store.ListBorrowViews(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	today := s.today()
	for i := range views {
		if views[i].Status == models.BorrowStatusBorrowed && views[i].DueDate.Before(today) {
			views[i].Status = models.BorrowStatusOverdue
		}
	}
	return views, nil
}
