package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrReservationNotFound is returned when the reservation does not exist
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrInvalidTransition is returned when the attempted transition is not
	// legal from the reservation's current state
	ErrInvalidTransition = errors.New("invalid reservation transition")

	// ErrReservationExpired is returned when fulfillment is attempted past
	// the expiry date
	ErrReservationExpired = errors.New("reservation expired")

	// ErrNotNextInLine is returned when fulfillment targets a reservation
	// other than the head of the book's priority queue
	ErrNotNextInLine = fmt.Errorf("%w: reservation is not next in line", ErrInvalidTransition)

	// ErrNoDemand is returned when a reservation is requested while copies
	// of the title are still available; the reader should borrow instead
	ErrNoDemand = errors.New("copies available, reservation not needed")

	// ErrDuplicateReservation is returned when the reader already holds a
	// pending reservation for the same title
	ErrDuplicateReservation = errors.New("reader already has a pending reservation for this book")
)

// NewReservationNotFoundError creates a detailed not found error
func NewReservationNotFoundError(id uuid.UUID) error {
	return fmt.Errorf("%w: id=%s", ErrReservationNotFound, id)
}

// NewInvalidTransitionError creates an error naming the illegal edge
func NewInvalidTransitionError(from, to Status) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// IsNotFoundError checks if error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrReservationNotFound)
}

// IsInvalidTransitionError checks if error belongs to the invalid-transition family
func IsInvalidTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
