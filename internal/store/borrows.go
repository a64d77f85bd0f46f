package store

import (
	"context"
	"database/sql"
	"time"

	"library-service/internal/models"
)

// ListBorrowViews retrieves all borrows joined with reader and book fields,
// newest first. Overdue derivation happens in the service layer.
func (s *Store) ListBorrowViews(ctx context.Context) ([]models.BorrowView, error) {
	var borrows []models.BorrowView
	err := s.db.SelectContext(ctx, &borrows, `
		SELECT b.*, r.name AS reader_name, bk.title AS book_title, bk.status AS book_status
		FROM borrows b
		JOIN readers r ON b.reader_id = r.id
		JOIN books bk ON b.book_id = bk.id
		ORDER BY b.id DESC`)
	return borrows, err
}

// GetBorrowByID retrieves a borrow by ID, returning nil when absent.
func (s *Store) GetBorrowByID(ctx context.Context, id int64) (*models.Borrow, error) {
	var borrow models.Borrow
	err := s.db.GetContext(ctx, &borrow, "SELECT * FROM borrows WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &borrow, nil
}

// GetDashboardStats computes the headline dashboard counters.
func (s *Store) GetDashboardStats(ctx context.Context, today time.Time) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	if err := s.db.GetContext(ctx, &stats.TotalBooks,
		"SELECT COUNT(*) FROM books"); err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &stats.TotalReaders,
		"SELECT COUNT(*) FROM readers"); err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &stats.BorrowedBooks,
		"SELECT COUNT(*) FROM borrows WHERE status = $1",
		models.BorrowStatusBorrowed); err != nil {
		return nil, err
	}
	if err := s.db.GetContext(ctx, &stats.OverdueBooks,
		"SELECT COUNT(*) FROM borrows WHERE status = $1 AND due_date < $2",
		models.BorrowStatusBorrowed, today); err != nil {
		return nil, err
	}
	return stats, nil
}

// GetBookStats aggregates borrow counts per book, most borrowed first.
func (s *Store) GetBookStats(ctx context.Context) ([]models.BookStat, error) {
	var stats []models.BookStat
	err := s.db.SelectContext(ctx, &stats, `
		SELECT bk.id AS book_id, bk.title, bk.author, COUNT(b.id) AS total_borrows
		FROM books bk
		LEFT JOIN borrows b ON b.book_id = bk.id
		GROUP BY bk.id, bk.title, bk.author
		ORDER BY total_borrows DESC`)
	return stats, err
}

// GetReaderStats aggregates borrow counts per reader, most active first.
func (s *Store) GetReaderStats(ctx context.Context) ([]models.ReaderStat, error) {
	var stats []models.ReaderStat
	err := s.db.SelectContext(ctx, &stats, `
		SELECT r.id AS reader_id, r.name, r.card_number,
		       COUNT(b.id) AS total_borrows,
		       COUNT(b.id) FILTER (WHERE b.status = 'borrowed') AS active_count
		FROM readers r
		LEFT JOIN borrows b ON b.reader_id = r.id
		GROUP BY r.id, r.name, r.card_number
		ORDER BY total_borrows DESC`)
	return stats, err
}

// GetBorrowTrends returns per-month borrow and return volume, newest first.
func (s *Store) GetBorrowTrends(ctx context.Context, months int) ([]models.BorrowTrend, error) {
	var trends []models.BorrowTrend
	err := s.db.SelectContext(ctx, &trends, `
		SELECT to_char(borrow_date, 'YYYY-MM') AS month,
		       COUNT(*) AS borrows,
		       COUNT(return_date) AS returns
		FROM borrows
		GROUP BY month
		ORDER BY month DESC
		LIMIT $1`, months)
	return trends, err
}

// InsertSystemLog appends one audit row. The ledger of operations is
// append-only.
func (s *Store) InsertSystemLog(ctx context.Context, l *models.SystemLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO system_logs (actor_type, actor_id, action, target_type, target_id, description, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ActorType, l.ActorID, l.Action, l.TargetType, l.TargetID, l.Description, l.Origin, l.CreatedAt)
	return err
}

// IsEventProcessed checks if an audit event has already been persisted.
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed records an audit event ID so redelivery is a no-op.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
