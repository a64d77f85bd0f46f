package service

import (
	"context"
	"fmt"

	"library-service/internal/models"
	"library-service/internal/store"
	"library-service/internal/util"

	"go.uber.org/zap"
)

// CatalogService handles book and category CRUD. Business rules here are
// thin: the only policy is that deletion never orphans active borrows or
// categorized books.
type CatalogService struct {
	store  *store.Store
	audit  AuditRecorder
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(st *store.Store, audit AuditRecorder) *CatalogService {
	return &CatalogService{
		store:  st,
		audit:  audit,
		logger: util.GetLogger(),
	}
}

// CreateBookRequest represents a request to add a book.
type CreateBookRequest struct {
	ISBN        string   `json:"isbn" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Author      string   `json:"author" binding:"required"`
	Publisher   string   `json:"publisher" binding:"required"`
	CategoryID  int64    `json:"category_id" binding:"required"`
	PublishDate *string  `json:"publish_date"`
	Price       *float64 `json:"price"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
}

// ListBooks returns all books with their category names.
func (s *CatalogService) ListBooks(ctx context.Context) ([]models.BookWithCategory, error) {
	books, err := s.store.GetBooks(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return books, nil
}

// GetBook returns one book or ErrNotFound.
func (s *CatalogService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if book == nil {
		return nil, ErrNotFound
	}
	return book, nil
}

// CreateBook adds a new book; its status always starts available.
func (s *CatalogService) CreateBook(ctx context.Context, actor Actor, req *CreateBookRequest) (int64, error) {
	book := &models.Book{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Author:      req.Author,
		Publisher:   req.Publisher,
		CategoryID:  req.CategoryID,
		Location:    req.Location,
		Description: req.Description,
		Status:      models.BookStatusAvailable,
	}
	if req.Price != nil {
		book.Price = *req.Price
	}
	if req.PublishDate != nil {
		d, err := parseDate(*req.PublishDate)
		if err != nil {
			return 0, validationErrorf("invalid publish_date %q", *req.PublishDate)
		}
		book.PublishDate = &d
	}

	id, err := s.store.CreateBook(ctx, book)
	if err != nil {
		return 0, &StorageError{Err: err}
	}

	s.logger.Info("Book created", zap.Int64("book_id", id), zap.String("title", book.Title))
	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionBookCreated,
		TargetType:  models.TargetBook,
		TargetID:    id,
		Description: fmt.Sprintf("book added: %s", book.Title),
		Origin:      actor.Origin,
	})
	return id, nil
}

// UpdateBook applies a partial update to a book.
func (s *CatalogService) UpdateBook(ctx context.Context, actor Actor, id int64, upd models.BookUpdate) error {
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if book == nil {
		return ErrNotFound
	}

	changed, err := s.store.UpdateBook(ctx, id, upd)
	if err != nil {
		return &StorageError{Err: err}
	}
	if !changed {
		return validationErrorf("no fields to update")
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionBookUpdated,
		TargetType: models.TargetBook,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}

// DeleteBook removes a book. Blocked while a borrow is still out for it;
// the ledger never loses its referent.
func (s *CatalogService) DeleteBook(ctx context.Context, actor Actor, id int64) error {
	book, err := s.store.GetBookByID(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if book == nil {
		return ErrNotFound
	}

	active, err := s.store.CountActiveBorrowsForBook(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if active > 0 {
		return validationErrorf("book has active borrows and cannot be deleted")
	}

	if err := s.store.DeleteBook(ctx, id); err != nil {
		return &StorageError{Err: err}
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionBookDeleted,
		TargetType: models.TargetBook,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}

// SearchBooks matches a keyword against title, author, and ISBN.
func (s *CatalogService) SearchBooks(ctx context.Context, keyword string) ([]models.Book, error) {
	books, err := s.store.SearchBooks(ctx, keyword)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return books, nil
}

// CreateCategoryRequest represents a request to add a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Code        string `json:"code" binding:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

// ListCategories returns active categories with book counts.
func (s *CatalogService) ListCategories(ctx context.Context) ([]models.CategoryWithCount, error) {
	categories, err := s.store.GetCategories(ctx)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return categories, nil
}

// GetCategory returns one category or ErrNotFound.
func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	if category == nil {
		return nil, ErrNotFound
	}
	return category, nil
}

// CreateCategory adds a new active category.
func (s *CatalogService) CreateCategory(ctx context.Context, actor Actor, req *CreateCategoryRequest) (int64, error) {
	category := &models.Category{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		Status:      models.CategoryStatusActive,
	}

	id, err := s.store.CreateCategory(ctx, category)
	if err != nil {
		return 0, &StorageError{Err: err}
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:   actor.Type,
		ActorID:     actor.ID,
		Action:      models.ActionCategoryCreate,
		TargetType:  models.TargetCategory,
		TargetID:    id,
		Description: fmt.Sprintf("category added: %s", category.Name),
		Origin:      actor.Origin,
	})
	return id, nil
}

// UpdateCategory applies a partial update to a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, actor Actor, id int64, upd models.CategoryUpdate) error {
	category, err := s.store.GetCategoryByID(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if category == nil {
		return ErrNotFound
	}

	changed, err := s.store.UpdateCategory(ctx, id, upd)
	if err != nil {
		return &StorageError{Err: err}
	}
	if !changed {
		return validationErrorf("no fields to update")
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionCategoryUpdate,
		TargetType: models.TargetCategory,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}

// DeleteCategory removes a category. Blocked while books reference it.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor Actor, id int64) error {
	count, err := s.store.CountBooksInCategory(ctx, id)
	if err != nil {
		return &StorageError{Err: err}
	}
	if count > 0 {
		return validationErrorf("category still has %d books and cannot be deleted", count)
	}

	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return &StorageError{Err: err}
	}

	s.audit.Record(ctx, models.AuditEvent{
		ActorType:  actor.Type,
		ActorID:    actor.ID,
		Action:     models.ActionCategoryDelete,
		TargetType: models.TargetCategory,
		TargetID:   id,
		Origin:     actor.Origin,
	})
	return nil
}

// SearchCategories matches a keyword against name, code, and description.
func (s *CatalogService) SearchCategories(ctx context.Context, keyword string) ([]models.Category, error) {
	categories, err := s.store.SearchCategories(ctx, keyword)
	if err != nil {
		return nil, &StorageError{Err: err}
	}
	return categories, nil
}
