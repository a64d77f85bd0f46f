package service

import "library-service/internal/models"

// CheckEligibility decides whether a new borrow may proceed for the given
// reader and book. Rules run in order and the first failure wins. The
// function has no side effects and may be called repeatedly.
func CheckEligibility(reader *models.Reader, book *models.Book, activeBorrowCount int) error {
	if reader == nil || reader.Status != models.ReaderStatusActive {
		return &EligibilityError{
			Reason: ReasonReaderNotEligible,
			Msg:    "reader does not exist or is not active",
		}
	}
	if book == nil {
		return &EligibilityError{
			Reason: ReasonBookNotFound,
			Msg:    "book does not exist",
		}
	}
	if book.Status == models.BookStatusLost {
		return &EligibilityError{
			Reason: ReasonBookLost,
			Msg:    "book is lost and cannot be borrowed",
		}
	}
	if book.Status == models.BookStatusBorrowed {
		return &EligibilityError{
			Reason: ReasonBookUnavailable,
			Msg:    "book is already borrowed",
		}
	}
	if activeBorrowCount >= reader.MaxBorrowCount {
		return &EligibilityError{
			Reason: ReasonBorrowLimitReached,
			Msg:    "reader has reached the maximum borrow count",
		}
	}
	return nil
}
