package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"library-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore connects to the database and configures the pool.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Txn is the set of row-level primitives available inside one database
// transaction. Lookups return (nil, nil) when the row is absent. No
// business rules live here; all policy sits in the service layer.
type Txn interface {
	// BookForUpdate and ReaderForUpdate lock their row so concurrent
	// lifecycle transitions on the same book or the same reader serialize.
	BookForUpdate(ctx context.Context, id int64) (*models.Book, error)
	ReaderForUpdate(ctx context.Context, id int64) (*models.Reader, error)
	BorrowForUpdate(ctx context.Context, id int64) (*models.Borrow, error)
	CountActiveBorrows(ctx context.Context, readerID int64) (int, error)
	InsertBorrow(ctx context.Context, b *models.Borrow) (int64, error)
	UpdateBorrowReturned(ctx context.Context, id int64, returnDate time.Time) error
	UpdateBorrowRenewed(ctx context.Context, id int64, newDueDate time.Time) error
	UpdateBorrowStatus(ctx context.Context, id int64, status string, returnDate *time.Time) error
	UpdateBorrowFine(ctx context.Context, id int64, amount float64) error
	UpdateBookStatus(ctx context.Context, bookID int64, status string) error
}

// WithTx runs fn inside one transaction. The transaction commits only if
// fn returns nil; any error rolls back every write.
func (s *Store) WithTx(ctx context.Context, fn func(Txn) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTxn{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTxn struct {
	tx *sqlx.Tx
}

func (t *sqlTxn) BookForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	err := t.tx.GetContext(ctx, &book,
		"SELECT * FROM books WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock book %d: %w", id, err)
	}
	return &book, nil
}

func (t *sqlTxn) BorrowForUpdate(ctx context.Context, id int64) (*models.Borrow, error) {
	var borrow models.Borrow
	err := t.tx.GetContext(ctx, &borrow,
		"SELECT * FROM borrows WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock borrow %d: %w", id, err)
	}
	return &borrow, nil
}

func (t *sqlTxn) ReaderForUpdate(ctx context.Context, id int64) (*models.Reader, error) {
	var reader models.Reader
	err := t.tx.GetContext(ctx, &reader,
		"SELECT * FROM readers WHERE id = $1 FOR UPDATE", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reader %d: %w", id, err)
	}
	return &reader, nil
}

func (t *sqlTxn) CountActiveBorrows(ctx context.Context, readerID int64) (int, error) {
	var count int
	err := t.tx.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM borrows WHERE reader_id = $1 AND status = $2",
		readerID, models.BorrowStatusBorrowed)
	if err != nil {
		return 0, fmt.Errorf("failed to count active borrows: %w", err)
	}
	return count, nil
}

func (t *sqlTxn) InsertBorrow(ctx context.Context, b *models.Borrow) (int64, error) {
	query := `
		INSERT INTO borrows (reader_id, book_id, borrow_date, due_date, renew_count, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	var id int64
	err := t.tx.GetContext(ctx, &id, query,
		b.ReaderID, b.BookID, b.BorrowDate, b.DueDate, b.RenewCount, b.Status, b.Notes)
	if err != nil {
		return 0, fmt.Errorf("failed to insert borrow: %w", err)
	}
	return id, nil
}

func (t *sqlTxn) UpdateBorrowReturned(ctx context.Context, id int64, returnDate time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE borrows SET status = $1, return_date = $2 WHERE id = $3",
		models.BorrowStatusReturned, returnDate, id)
	if err != nil {
		return fmt.Errorf("failed to mark borrow %d returned: %w", id, err)
	}
	return nil
}

func (t *sqlTxn) UpdateBorrowRenewed(ctx context.Context, id int64, newDueDate time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE borrows SET due_date = $1, renew_count = renew_count + 1 WHERE id = $2",
		newDueDate, id)
	if err != nil {
		return fmt.Errorf("failed to renew borrow %d: %w", id, err)
	}
	return nil
}

func (t *sqlTxn) UpdateBorrowStatus(ctx context.Context, id int64, status string, returnDate *time.Time) error {
	var err error
	if returnDate != nil {
		_, err = t.tx.ExecContext(ctx,
			"UPDATE borrows SET status = $1, return_date = $2 WHERE id = $3",
			status, *returnDate, id)
	} else {
		_, err = t.tx.ExecContext(ctx,
			"UPDATE borrows SET status = $1 WHERE id = $2", status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update borrow %d status: %w", id, err)
	}
	return nil
}

func (t *sqlTxn) UpdateBorrowFine(ctx context.Context, id int64, amount float64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE borrows SET fine_amount = $1, status = $2 WHERE id = $3",
		amount, models.BorrowStatusFined, id)
	if err != nil {
		return fmt.Errorf("failed to set fine on borrow %d: %w", id, err)
	}
	return nil
}

func (t *sqlTxn) UpdateBookStatus(ctx context.Context, bookID int64, status string) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE books SET status = $1 WHERE id = $2", status, bookID)
	if err != nil {
		return fmt.Errorf("failed to update book %d status: %w", bookID, err)
	}
	return nil
}
