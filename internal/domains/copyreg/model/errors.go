package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrCopyNotFound is returned when the copy does not exist
	ErrCopyNotFound = errors.New("copy not found")

	// ErrCopyUnavailable is returned when the copy is not in available status
	ErrCopyUnavailable = errors.New("copy is not available")

	// ErrCopyArchived is returned when operating on an archived copy
	ErrCopyArchived = errors.New("copy is archived")

	// ErrInvalidStatusTransition is returned for transitions the copy state machine forbids
	ErrInvalidStatusTransition = errors.New("invalid copy status transition")

	// ErrStatusConflict is returned when a conditional status update matched no row:
	// a concurrent writer changed the copy's status first
	ErrStatusConflict = errors.New("copy status changed concurrently")

	// ErrCopyBorrowed is returned when a condition/archive change is attempted on a borrowed copy
	ErrCopyBorrowed = errors.New("copy is currently borrowed")

	// ErrBookNotFound is returned when the referenced book does not exist
	ErrBookNotFound = errors.New("book not found")
)

// NewCopyNotFoundError creates a detailed not found error
func NewCopyNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrCopyNotFound, id)
}

// NewInvalidTransitionError creates an error carrying both endpoints
func NewInvalidTransitionError(from, to CopyStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}

// IsNotFoundError checks if error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrCopyNotFound)
}

// IsConflictError checks if error is a lost-race conditional update
func IsConflictError(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}
