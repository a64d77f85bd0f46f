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

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// ReaderService handles reader registration and maintenance.
type ReaderService struct {
	store             *store.Store
	audit             AuditRecorder
	logger            *zap.Logger
	defaultMaxBorrows int
	now               func() time.Time
}

// NewReaderService creates a new reader service. defaultMaxBorrows applies
// to readers registered without an explicit limit.
func NewReaderService(st *store.Store, audit AuditRecorder, defaultMaxBorrows int) *ReaderService {
	return &ReaderService{
		store:             st,
		audit:             audit,
		logger:            util.GetLogger(),
		defaultMaxBorrows: defaultMaxBorrows,
		now:               time.Now,
	}
}

// CreateReaderRequest represents a reader registration.
type CreateReaderRequest struct {
	CardNumber     string  `json:"card_number" binding:"required"`
	Name           string  `json:"name" binding:"required"`
	Gender         string  `json:"gender" binding:"required"`
	Phone          string  `json:"phone" binding:"required"`
	Email          string  `json:"email"`
	Address        string  `json:"address"`
	BirthDate      *string `json:"birth_date"`
	MaxBorrowCount *int    `json:"max_borrow_count"`
}

// ListReaders returns all readers.
func (s *ReaderService) ListReaders(ctx context.Context) ([]models.Reader, error) {
	readers, err := s.store.GetReaders(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return readers, nil
}

// GetReader returns one reader or ErrNotFound.
func (s *ReaderService) GetReader(ctx context.Context, id int64) (*models.Reader, error) {
	reader, err := s.store.GetReaderByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if reader == nil {
		return nil, ErrNotFound
	}
	return reader, nil
}

// CreateReader registers a new active reader. register_date is today.
func (s *ReaderService) CreateReader(ctx context.Context, actor Actor, req *CreateReaderRequest) (int64, error) {
	reader := &models.Reader{
		CardNumber:     req.CardNumber,
		Name:           req.Name,
		Gender:         req.Gender,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		RegisterDate:   s.now(),
		Status:         models.ReaderStatusActive,
		MaxBorrowCount: s.defaultMaxBorrows,
	}
	if req.MaxBorrowCount != nil {
		if *req.MaxBorrowCount <= 0 {
			return 0, validationErrorf("max_borrow_count must be positive, got %d", *req.MaxBorrowCount)
		}
		reader.MaxBorrowCount = *req.MaxBorrowCount
	}
	if req.BirthDate != nil {
		d, err := parseDate(*req.BirthDate)
		if err != nil {
			return 0, validationErrorf("invalid birth_date %q", *req.BirthDate)
		}
		reader.BirthDate = &d
	}

	id, err := s.store.CreateReader(ctx, reader)
	if err != nil {
		return 0, &StorageError{Err: err}
	}

	s.logger.Info("Reader registered", zap.Int64("reader_id", id), zap.String("card_number", reader.CardNumber))
	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionReaderCreated,
		TargetType:  models.TargetReader,
		TargetID:    id,
		Description: fmt.Sprintf("reader registered: %s", reader.Name),
		Origin:      actor.Origin,
	})
	return id, nil
}

// UpdateReader applies a partial update to a reader.
func (s *ReaderService) UpdateReader(ctx context.Context, actor Actor, id int64, upd models.ReaderUpdate) error {
	if upd.MaxBorrowCount != nil && *upd.MaxBorrowCount <= 0 {
		return validationErrorf("max_borrow_count must be positive, got %d", *upd.MaxBorrowCount)
	}
	if upd.Status != nil &&
		*upd.Status != models.ReaderStatusActive && *upd.Status != models.ReaderStatusSuspended {
		return validationErrorf("invalid reader status %q", *upd.Status)
	}

	reader, err := s.store.GetReaderByID(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if reader == nil {
		return ErrNotFound
	}

	changed, err := s.store.UpdateReader(ctx, id, upd)
	if err != nil {
		return &StorageError{Err: err}
	}
	if !changed {
		return validationErrorf("no fields to update")
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionReaderUpdated,
		TargetType: models.TargetReader,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}

// DeleteReader removes a reader. Blocked while the reader still has books out.
func (s *ReaderService) DeleteReader(ctx context.Context, actor Actor, id int64) error {
	reader, err := s.store.GetReaderByID(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if reader == nil {
		return ErrNotFound
	}

	active, err := s.store.CountActiveBorrowsForReader(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if active > 0 {
		return validationErrorf("reader has %d active borrows and cannot be deleted", active)
	}

	if err := s.store.DeleteReader(ctx, id); err != nil {
		return &StorageError{Err: err}
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionReaderDeleted,
		TargetType: models.TargetReader,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}
