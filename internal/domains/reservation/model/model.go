package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the reservation lifecycle state. pending is the only
// non-terminal state; every edge out of it is final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusFulfilled Status = "fulfilled"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

var validTransitions = map[Status][]Status{
	StatusPending:   {StatusFulfilled, StatusCancelled, StatusExpired},
	StatusFulfilled: {},
	StatusCancelled: {},
	StatusExpired:   {},
}

// CanTransition reports whether from → to is a legal edge
func CanTransition(from, to Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status has no outgoing edges
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// IsValidStatus checks if the given status string is recognized
func IsValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusFulfilled, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Reservation is a claim on a title, not on a physical copy. PhysicalCopyID
// is bound only at fulfillment, when the allocation coordinator has granted
// a concrete copy to this reader.
type Reservation struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	ReaderID           uuid.UUID  `json:"reader_id" db:"reader_id"`
	BookID             uuid.UUID  `json:"book_id" db:"book_id"`
	PhysicalCopyID     *uuid.UUID `json:"physical_copy_id,omitempty" db:"physical_copy_id"`
	Status             Status     `json:"status" db:"status"`
	Priority           int        `json:"priority" db:"priority"`
	ReservationDate    time.Time  `json:"reservation_date" db:"reservation_date"`
	ExpiryDate         time.Time  `json:"expiry_date" db:"expiry_date"`
	FulfillmentDate    *time.Time `json:"fulfillment_date,omitempty" db:"fulfillment_date"`
	FulfilledBy        *uuid.UUID `json:"fulfilled_by,omitempty" db:"fulfilled_by"`
	CancelledDate      *time.Time `json:"cancelled_date,omitempty" db:"cancelled_date"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty" db:"cancelled_by"`
	CancellationReason string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ReaderClass        string     `json:"reader_class" db:"reader_class"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// ExpiredAt reports whether the reservation's claim has lapsed at the given
// instant. A reservation is live only while expiry is still strictly in the
// future, so the exact expiry instant already counts as lapsed.
// Classification only; the expired status is written by the sweeper or
// rejected fulfillment, never here.
func (r *Reservation) ExpiredAt(now time.Time) bool {
	return !r.ExpiryDate.After(now)
}
