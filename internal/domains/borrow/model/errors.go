package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrRecordNotFound is returned when the borrow record does not exist
	ErrRecordNotFound = errors.New("borrow record not found")

	// ErrInvalidTransition is returned when the attempted transition is not
	// legal from the record's current state
	ErrInvalidTransition = errors.New("invalid borrow record transition")

	// ErrBorrowLimitExceeded is returned when the reader's active-loan count
	// has reached the policy limit
	ErrBorrowLimitExceeded = errors.New("borrow limit exceeded")

	// ErrRenewalLimitReached is returned when renewal is attempted beyond the
	// policy cap; the due date is left unchanged
	ErrRenewalLimitReached = fmt.Errorf("%w: renewal limit reached", ErrInvalidTransition)

	// ErrRecordNotDeletable is returned when deleting a record that has left
	// pending_approval (records are append-only audit trail after that)
	ErrRecordNotDeletable = errors.New("only pending borrow requests may be deleted")
)

// NewRecordNotFoundError creates a detailed not found error
func NewRecordNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrRecordNotFound, id)
}

// NewInvalidTransitionError creates an error naming the illegal edge
func NewInvalidTransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// NewBorrowLimitError creates an error carrying the counts that tripped it
func NewBorrowLimitError(active, limit int) error {
	return fmt.Errorf("%w: active=%d, limit=%d", ErrBorrowLimitExceeded, active, limit)
}

// IsNotFoundError checks if error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsInvalidTransitionError checks if error belongs to the invalid-transition family
func IsInvalidTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
