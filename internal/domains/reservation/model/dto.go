package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// RequestReservationRequest places a claim on a title. Priority is a rank,
// not a weight: lower value is served first.
type RequestReservationRequest struct {
	ReaderID    uuid.UUID `json:"reader_id"`
	BookID      uuid.UUID `json:"book_id"`
	Priority    int       `json:"priority"`
	ReaderClass string    `json:"reader_class"`
}

func (r RequestReservationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReaderID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.BookID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.Priority, validation.Min(0), validation.Max(1000)),
		validation.Field(&r.ReaderClass, validation.Length(0, 32)),
	)
}

// FulfillRequest hands a concrete copy to the reservation at the head of
// the book's queue.
type FulfillRequest struct {
	CopyID      uuid.UUID `json:"copy_id"`
	LibrarianID uuid.UUID `json:"librarian_id"`
}

func (r FulfillRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CopyID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.LibrarianID, validation.Required, validation.By(notNilUUID)),
	)
}

// CancelRequest withdraws a pending reservation.
type CancelRequest struct {
	CancelledBy uuid.UUID `json:"cancelled_by"`
	Reason      string    `json:"reason"`
}

func (r CancelRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CancelledBy, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 500)),
	)
}

// ListReservationsRequest filters the reservation listing.
type ListReservationsRequest struct {
	ReaderID *uuid.UUID `form:"reader_id"`
	BookID   *uuid.UUID `form:"book_id"`
	Status   *string    `form:"status"`
	Page     int        `form:"page,default=1"`
	Limit    int        `form:"limit,default=20"`
}

func (r ListReservationsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(1)),
		validation.Field(&r.Limit, validation.Min(1), validation.Max(100)),
	)
}

// ReservationResponse is the API shape of a reservation.
type ReservationResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ReaderID           uuid.UUID  `json:"reader_id"`
	BookID             uuid.UUID  `json:"book_id"`
	PhysicalCopyID     *uuid.UUID `json:"physical_copy_id,omitempty"`
	Status             Status     `json:"status"`
	Priority           int        `json:"priority"`
	ReservationDate    time.Time  `json:"reservation_date"`
	ExpiryDate         time.Time  `json:"expiry_date"`
	FulfillmentDate    *time.Time `json:"fulfillment_date,omitempty"`
	FulfilledBy        *uuid.UUID `json:"fulfilled_by,omitempty"`
	CancelledDate      *time.Time `json:"cancelled_date,omitempty"`
	CancelledBy        *uuid.UUID `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ListReservationsResponse struct {
	Items      []ReservationResponse `json:"items"`
	TotalItems int                   `json:"total_items"`
	TotalPages int                   `json:"total_pages"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
}

// QueuePositionResponse reports where a pending reservation sits in its
// book's queue. Position is 1-based; 1 means next in line.
type QueuePositionResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	BookID        uuid.UUID `json:"book_id"`
	Position      int       `json:"position"`
	QueueLength   int       `json:"queue_length"`
}

func (r *Reservation) ToResponse() ReservationResponse {
	return ReservationResponse{
		ID:                 r.ID,
		ReaderID:           r.ReaderID,
		BookID:             r.BookID,
		PhysicalCopyID:     r.PhysicalCopyID,
		Status:             r.Status,
		Priority:           r.Priority,
		ReservationDate:    r.ReservationDate,
		ExpiryDate:         r.ExpiryDate,
		FulfillmentDate:    r.FulfillmentDate,
		FulfilledBy:        r.FulfilledBy,
		CancelledDate:      r.CancelledDate,
		CancelledBy:        r.CancelledBy,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func ToResponseList(reservations []Reservation) []ReservationResponse {
	out := make([]ReservationResponse, 0, len(reservations))
	for i := range reservations {
		out = append(out, reservations[i].ToResponse())
	}
	return out
}

func notNilUUID(v interface{}) error {
	id, _ := v.(uuid.UUID)
	if id == uuid.Nil {
		return validation.NewError("validation_uuid", "must be a non-nil UUID")
	}
	return nil
}
