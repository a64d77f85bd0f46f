package service

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the target entity is absent or in the wrong
// state for the operation. A return attempt on an already-returned borrow
// reports this, same as a missing ID.
var ErrNotFound = errors.New("record not found or not in expected state")

// ErrRenewalLimitExceeded is returned when a borrow has already been
// renewed the maximum number of times.
var ErrRenewalLimitExceeded = errors.New("renewal limit exceeded")

// ErrInvalidCredentials is returned when login or token authentication
// fails. It does not say which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ValidationError reports malformed or out-of-range input. It is always
// surfaced to the caller and never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// EligibilityReason identifies which borrow precondition failed.
type EligibilityReason string

const (
	ReasonReaderNotEligible  EligibilityReason = "ReaderNotEligible"
	ReasonBookNotFound       EligibilityReason = "BookNotFound"
	ReasonBookLost           EligibilityReason = "BookLost"
	ReasonBookUnavailable    EligibilityReason = "BookUnavailable"
	ReasonBorrowLimitReached EligibilityReason = "BorrowLimitReached"
)

// EligibilityError reports an unmet borrow precondition.
type EligibilityError struct {
	Reason EligibilityReason
	Msg    string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Msg)
}

// StorageError wraps a transactional failure. The transaction has been
// rolled back; no partial state persists. Callers may treat it as
// retryable.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure: %v", e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
