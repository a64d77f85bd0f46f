package store

import (
	"context"
	"database/sql"
	"fmt"

	"library-service/internal/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
)

var pgDialect = goqu.Dialect("postgres")

// GetBooks retrieves all books joined with their category name, newest first.
func (s *Store) GetBooks(ctx context.Context) ([]models.BookWithCategory, error) {
	var books []models.BookWithCategory
	err := s.db.SelectContext(ctx, &books, `
		SELECT b.*, COALESCE(c.name, '') AS category_name
		FROM books b
		LEFT JOIN categories c ON b.category_id = c.id
		ORDER BY b.id DESC`)
	return books, err
}

// GetBookByID retrieves a book by ID, returning nil when absent.
func (s *Store) GetBookByID(ctx context.Context, id int64) (*models.Book, error) {
	var book models.Book
	err := s.db.GetContext(ctx, &book, "SELECT * FROM books WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// CreateBook inserts a new book and returns its ID.
func (s *Store) CreateBook(ctx context.Context, b *models.Book) (int64, error) {
	query := `
		INSERT INTO books (isbn, title, author, publisher, category_id, publish_date, price, location, description, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err := s.db.GetContext(ctx, &id, query,
		b.ISBN, b.Title, b.Author, b.Publisher, b.CategoryID,
		b.PublishDate, b.Price, b.Location, b.Description, b.Status)
	return id, err
}

// buildBookUpdate renders the UPDATE statement for the fields actually set
// in upd. The bool result is false when no field is set.
func buildBookUpdate(id int64, upd models.BookUpdate) (string, []interface{}, bool, error) {
	rec := goqu.Record{}
	if upd.Title != nil {
		rec["title"] = *upd.Title
	}
	if upd.Author != nil {
		rec["author"] = *upd.Author
	}
	if upd.Publisher != nil {
		rec["publisher"] = *upd.Publisher
	}
	if upd.CategoryID != nil {
		rec["category_id"] = *upd.CategoryID
	}
	if upd.Price != nil {
		rec["price"] = *upd.Price
	}
	if upd.Location != nil {
		rec["location"] = *upd.Location
	}
	if upd.Description != nil {
		rec["description"] = *upd.Description
	}
	if len(rec) == 0 {
		return "", nil, false, nil
	}

	query, args, err := pgDialect.Update("books").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	return query, args, true, err
}

// UpdateBook applies a partial update. It reports whether any field was set.
func (s *Store) UpdateBook(ctx context.Context, id int64, upd models.BookUpdate) (bool, error) {
	query, args, ok, err := buildBookUpdate(id, upd)
	if err != nil {
		return false, fmt.Errorf("failed to build book update: %w", err)
	}
	if !ok {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return true, err
}

// DeleteBook removes a book row. Callers must first verify no active borrow
// references it.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM books WHERE id = $1", id)
	return err
}

// SearchBooks matches title, author, or ISBN against the keyword.
func (s *Store) SearchBooks(ctx context.Context, keyword string) ([]models.Book, error) {
	pattern := "%" + keyword + "%"
	var books []models.Book
	err := s.db.SelectContext(ctx, &books, `
		SELECT * FROM books
		WHERE title ILIKE $1 OR author ILIKE $1 OR isbn ILIKE $1
		ORDER BY id DESC`, pattern)
	return books, err
}

// CountActiveBorrowsForBook counts ledger entries currently out for a book.
func (s *Store) CountActiveBorrowsForBook(ctx context.Context, bookID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM borrows WHERE book_id = $1 AND status = $2",
		bookID, models.BorrowStatusBorrowed)
	return count, err
}

// GetCategories retrieves active categories with their book counts.
func (s *Store) GetCategories(ctx context.Context) ([]models.CategoryWithCount, error) {
	var categories []models.CategoryWithCount
	err := s.db.SelectContext(ctx, &categories, `
		SELECT c.*, COALESCE(bc.count, 0) AS book_count
		FROM categories c
		LEFT JOIN (
			SELECT category_id, COUNT(*) AS count FROM books GROUP BY category_id
		) bc ON c.id = bc.category_id
		WHERE c.status = $1
		ORDER BY c.sort_order, c.name`, models.CategoryStatusActive)
	return categories, err
}

// GetCategoryByID retrieves a category by ID, returning nil when absent.
func (s *Store) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var category models.Category
	err := s.db.GetContext(ctx, &category, "SELECT * FROM categories WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory inserts a new category and returns its ID.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) (int64, error) {
	query := `
		INSERT INTO categories (name, code, description, sort_order, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	var id int64
	err := s.db.GetContext(ctx, &id, query,
		c.Name, c.Code, c.Description, c.SortOrder, c.Status)
	return id, err
}

func buildCategoryUpdate(id int64, upd models.CategoryUpdate) (string, []interface{}, bool, error) {
	rec := goqu.Record{}
	if upd.Name != nil {
		rec["name"] = *upd.Name
	}
	if upd.Code != nil {
		rec["code"] = *upd.Code
	}
	if upd.Description != nil {
		rec["description"] = *upd.Description
	}
	if upd.SortOrder != nil {
		rec["sort_order"] = *upd.SortOrder
	}
	if upd.Status != nil {
		rec["status"] = *upd.Status
	}
	if len(rec) == 0 {
		return "", nil, false, nil
	}

	query, args, err := pgDialect.Update("categories").
		Set(rec).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	return query, args, true, err
}

// UpdateCategory applies a partial update to a category.
func (s *Store) UpdateCategory(ctx context.Context, id int64, upd models.CategoryUpdate) (bool, error) {
	query, args, ok, err := buildCategoryUpdate(id, upd)
	if err != nil {
		return false, fmt.Errorf("failed to build category update: %w", err)
	}
	if !ok {
		return false, nil
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return true, err
}

// DeleteCategory removes a category row.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM categories WHERE id = $1", id)
	return err
}

// CountBooksInCategory counts books referencing a category.
func (s *Store) CountBooksInCategory(ctx context.Context, categoryID int64) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM books WHERE category_id = $1", categoryID)
	return count, err
}

// SearchCategories matches name, code, or description against the keyword.
func (s *Store) SearchCategories(ctx context.Context, keyword string) ([]models.Category, error) {
	pattern := "%" + keyword + "%"
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, `
		SELECT * FROM categories
		WHERE status = $1 AND (name ILIKE $2 OR code ILIKE $2 OR description ILIKE $2)
		ORDER BY sort_order, name`, models.CategoryStatusActive, pattern)
	return categories, err
}
