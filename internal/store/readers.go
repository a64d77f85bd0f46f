package store

import (
	"context"
	"database/sql"
	"fmt"

	"library-service/internal/models"

	"github.com/doug-martin/goqu/v9"
)

// GetReaders retrieves all readers, newest first.
func (s *Store) GetReaders(ctx context.Context) ([]models.Reader, error) {
	var readers []models.Reader
	err := s.db.SelectContext(ctx, &readers, "SELECT * FROM readers ORDER BY id DESC")
	return readers, err
}

// GetReaderByID retrieves a reader by ID, returning nil when absent.
func (s *Store) GetReaderByID(ctx context.Context, id int64) (*models.Reader, error) {
	var reader models.Reader
	err := s.db.GetContext(ctx, &reader, "SELECT * FROM readers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reader, nil
}

// CreateReader inserts a new reader and returns its ID.
func (s *Store) CreateReader(ctx context.Context, r *models.Reader) (int64, error) {
	query := `
		INSERT INTO readers (card_number, name, gender, birth_date, phone, email, address, register_date, status, max_borrow_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := s.db.GetContext(ctx, &id, query,
		r.CardNumber, r.Name, r.Gender, r.BirthDate, r.Phone,
		r.Email, r.Address, r.RegisterDate, r.Status, r.MaxBorrowCount)
	return id, err
}

func buildReaderUpdate(id int64, upd models.ReaderUpdate) (string, []interface{}, bool, error) {
	rec := goqu.Record{}
	if upd.Name != nil {
		rec["name"] = *upd.Name
	}
	if upd.Gender != nil {
		rec["gender"] = *upd.Gender
	}
	if upd.Phone != nil {
		rec["phone"] = *upd.Phone
	}
	if upd.Email != nil {
		rec["email"] = *upd.Email
	}
	if upd.Address != nil {
		rec["address"] = *upd.Address
	}
	if upd.Status != nil {
		rec["status"] = *upd.Status
	}
	if upd.MaxBorrowCount != nil {
		rec["max_borrow_count"] = *upd.MaxBorrowCount
	}
	if len(rec) == 0 {
		return "", nil, false, nil
	}

	query, args, err := pgDialect.Update("readers").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	return query, args, true, err
}

// UpdateReader applies a partial update. It reports whether any field was set.
func (s *Store) UpdateReader(ctx context.Context, id int64, upd models.ReaderUpdate) (bool, error) {
	query, args, ok, err := buildReaderUpdate(id, upd)
	if err != nil {
		return false, fmt.Errorf("failed to build reader update: %w", err)
	}
	if !ok {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return true, err
}

// DeleteReader removes a reader row. Callers must first verify no active
// borrow references it.
func (s *Store) DeleteReader(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM readers WHERE id = $1", id)
	return err
}

// CountActiveBorrowsForReader counts ledger entries a reader currently has out.
func (s *Store) CountActiveBorrowsForReader(ctx context.Context, readerID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM borrows WHERE reader_id = $1 AND status = $2",
		readerID, models.BorrowStatusBorrowed)
	return count, err
}

// GetAdminByUsername retrieves an admin account, returning nil when absent.
func (s *Store) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	err := s.db.GetContext(ctx, &admin, "SELECT * FROM admins WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}
