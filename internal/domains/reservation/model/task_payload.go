package model

import (
	"time"

	"github.com/google/uuid"
)

// SweepExpiredPayload triggers one expiry sweep run.
type SweepExpiredPayload struct {
	Limit int `json:"limit"`
}

// ReservationFulfilledPayload drives the caller-side notification system
// after a successful fulfillment.
type ReservationFulfilledPayload struct {
	ReservationID  uuid.UUID `json:"reservation_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	BookID         uuid.UUID `json:"book_id"`
	CopyID         uuid.UUID `json:"copy_id"`
	BorrowRecordID uuid.UUID `json:"borrow_record_id"`
}

// NextInLinePayload tells the reader at the head of a book's queue that a
// copy has been held for them.
type NextInLinePayload struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ReaderID      uuid.UUID `json:"reader_id"`
	BookID        uuid.UUID `json:"book_id"`
	CopyID        uuid.UUID `json:"copy_id"`
	ExpiryDate    time.Time `json:"expiry_date"`
}
