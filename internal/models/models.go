package models

import "time"

// Book represents a single physical book in the catalog.
type Book struct {
	ID          int64      `db:"id" json:"id"`
	ISBN        string     `db:"isbn" json:"isbn"`
	Title       string     `db:"title" json:"title"`
	Author      string     `db:"author" json:"author"`
	Publisher   string     `db:"publisher" json:"publisher"`
	CategoryID  int64      `db:"category_id" json:"category_id"`
	PublishDate *time.Time `db:"publish_date" json:"publish_date,omitempty"`
	Price       float64    `db:"price" json:"price"`
	Location    string     `db:"location" json:"location"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// BookWithCategory is a Book joined with its category name for list views.
type BookWithCategory struct {
	Book
	CategoryName string `db:"category_name" json:"category_name"`
}

// Reader represents a registered library member.
type Reader struct {
	ID             int64      `db:"id" json:"id"`
	CardNumber     string     `db:"card_number" json:"card_number"`
	Name           string     `db:"name" json:"name"`
	Gender         string     `db:"gender" json:"gender"`
	BirthDate      *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone          string     `db:"phone" json:"phone"`
	Email          string     `db:"email" json:"email"`
	Address        string     `db:"address" json:"address"`
	RegisterDate   time.Time  `db:"register_date" json:"register_date"`
	Status         string     `db:"status" json:"status"`
	MaxBorrowCount int        `db:"max_borrow_count" json:"max_borrow_count"`
}

// Category groups books; code is unique across the catalog.
type Category struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Code        string `db:"code" json:"code"`
	Description string `db:"description" json:"description"`
	SortOrder   int    `db:"sort_order" json:"sort_order"`
	Status      string `db:"status" json:"status"`
}

// CategoryWithCount is a Category joined with the number of books in it.
type CategoryWithCount struct {
	Category
	BookCount int `db:"book_count" json:"book_count"`
}

// Borrow is one loan of one book to one reader. Rows are never deleted;
// the ledger is the append-only history of every loan.
type Borrow struct {
	ID         int64      `db:"id" json:"id"`
	ReaderID   int64      `db:"reader_id" json:"reader_id"`
	BookID     int64      `db:"book_id" json:"book_id"`
	BorrowDate time.Time  `db:"borrow_date" json:"borrow_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	RenewCount int        `db:"renew_count" json:"renew_count"`
	FineAmount *float64   `db:"fine_amount" json:"fine_amount,omitempty"`
	Status     string     `db:"status" json:"status"`
	Notes      string     `db:"notes" json:"notes"`
}

// BorrowView is a Borrow joined with reader and book fields for listing.
// Status may be presented as "overdue"; that value is derived at read time
// and never stored.
type BorrowView struct {
	Borrow
	ReaderName string `db:"reader_name" json:"reader_name"`
	BookTitle  string `db:"book_title" json:"book_title"`
	BookStatus string `db:"book_status" json:"book_status"`
}

// Admin is a back-office user allowed to operate the system.
type Admin struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         string `db:"role" json:"role"`
}

// Book statuses
const (
	BookStatusAvailable = "available"
	BookStatusBorrowed  = "borrowed"
	BookStatusDamaged   = "damaged"
	BookStatusLost      = "lost"
)

// Reader statuses
const (
	ReaderStatusActive    = "active"
	ReaderStatusSuspended = "suspended"
)

// Borrow statuses. BorrowStatusOverdue is presentation-only.
const (
	BorrowStatusBorrowed = "borrowed"
	BorrowStatusReturned = "returned"
	BorrowStatusReserved = "reserved"
	BorrowStatusDamaged  = "damaged"
	BorrowStatusLost     = "lost"
	BorrowStatusFined    = "fined"
	BorrowStatusOverdue  = "overdue"
)

// Category statuses
const (
	CategoryStatusActive  = "active"
	CategoryStatusRetired = "retired"
)

// BookUpdate carries the mutable book fields of a partial update. Nil
// fields are left untouched.
type BookUpdate struct {
	Title       *string  `json:"title"`
	Author      *string  `json:"author"`
	Publisher   *string  `json:"publisher"`
	CategoryID  *int64   `json:"category_id"`
	Price       *float64 `json:"price"`
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
}

// ReaderUpdate carries the mutable reader fields of a partial update.
type ReaderUpdate struct {
	Name           *string `json:"name"`
	Gender         *string `json:"gender"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Address        *string `json:"address"`
	Status         *string `json:"status"`
	MaxBorrowCount *int    `json:"max_borrow_count"`
}

// CategoryUpdate carries the mutable category fields of a partial update.
type CategoryUpdate struct {
	Name        *string `json:"name"`
	Code        *string `json:"code"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	Status      *string `json:"status"`
}

// DashboardStats are the headline counters on the admin dashboard.
type DashboardStats struct {
	TotalBooks    int `json:"totalBooks"`
	TotalReaders  int `json:"totalReaders"`
	BorrowedBooks int `json:"borrowedBooks"`
	OverdueBooks  int `json:"overdueBooks"`
}

// BookStat aggregates borrow activity per book.
type BookStat struct {
	BookID       int64  `db:"book_id" json:"book_id"`
	Title        string `db:"title" json:"title"`
	Author       string `db:"author" json:"author"`
	TotalBorrows int    `db:"total_borrows" json:"total_borrows"`
}

// ReaderStat aggregates borrow activity per reader.
type ReaderStat struct {
	ReaderID     int64  `db:"reader_id" json:"reader_id"`
	Name         string `db:"name" json:"name"`
	CardNumber   string `db:"card_number" json:"card_number"`
	TotalBorrows int    `db:"total_borrows" json:"total_borrows"`
	ActiveCount  int    `db:"active_count" json:"active_count"`
}

// BorrowTrend is one month of borrow volume for the trend chart.
type BorrowTrend struct {
	Month   string `db:"month" json:"month"`
	Borrows int    `db:"borrows" json:"borrows"`
	Returns int    `db:"returns" json:"returns"`
}
