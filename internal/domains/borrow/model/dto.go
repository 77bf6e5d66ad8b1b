package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// RequestBorrowRequest opens a lending transaction in pending_approval.
// The copy is not claimed yet; that happens at approval.
type RequestBorrowRequest struct {
	ReaderID    uuid.UUID `json:"reader_id"`
	CopyID      uuid.UUID `json:"copy_id"`
	LibrarianID uuid.UUID `json:"librarian_id"`
	ReaderClass string    `json:"reader_class"`
	Notes       string    `json:"notes"`
}

func (r RequestBorrowRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ReaderID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.CopyID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.LibrarianID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.ReaderClass, validation.Length(0, 32)),
		validation.Field(&r.Notes, validation.Length(0, 500)),
	)
}

// RejectRequest declines a pending borrow request.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r RejectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 500)),
	)
}

// ReturnRequest closes a loan.
type ReturnRequest struct {
	Notes string `json:"notes"`
}

func (r ReturnRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Notes, validation.Length(0, 500)),
	)
}

// RenewRequest extends a loan's due date.
type RenewRequest struct {
	LibrarianID uuid.UUID `json:"librarian_id"`
}

func (r RenewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LibrarianID, validation.Required, validation.By(notNilUUID)),
	)
}

// ListBorrowsRequest filters the borrow record listing.
type ListBorrowsRequest struct {
	ReaderID    *uuid.UUID `form:"reader_id"`
	CopyID      *uuid.UUID `form:"copy_id"`
	Status      *string    `form:"status"`
	OverdueOnly bool       `form:"overdue_only"`
	Page        int        `form:"page,default=1"`
	Limit       int        `form:"limit,default=20"`
}

func (r ListBorrowsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(1)),
		validation.Field(&r.Limit, validation.Min(1), validation.Max(100)),
	)
}

// BorrowResponse is the API shape of a borrow record.
type BorrowResponse struct {
	ID           uuid.UUID  `json:"id"`
	ReaderID     uuid.UUID  `json:"reader_id"`
	CopyID       uuid.UUID  `json:"copy_id"`
	LibrarianID  uuid.UUID  `json:"librarian_id"`
	ReaderClass  string     `json:"reader_class"`
	Status       Status     `json:"status"`
	BorrowDate   *time.Time `json:"borrow_date,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReturnDate   *time.Time `json:"return_date,omitempty"`
	RenewalCount int        `json:"renewal_count"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ListBorrowsResponse struct {
	Items      []BorrowResponse `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPages int              `json:"total_pages"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
}

func (b *BorrowRecord) ToResponse() BorrowResponse {
	return BorrowResponse{
		ID:           b.ID,
		ReaderID:     b.ReaderID,
		CopyID:       b.CopyID,
		LibrarianID:  b.LibrarianID,
		ReaderClass:  b.ReaderClass,
		Status:       b.Status,
		BorrowDate:   b.BorrowDate,
		DueDate:      b.DueDate,
		ReturnDate:   b.ReturnDate,
		RenewalCount: b.RenewalCount,
		Notes:        b.Notes,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func ToResponseList(records []BorrowRecord) []BorrowResponse {
	out := make([]BorrowResponse, 0, len(records))
	for i := range records {
		out = append(out, records[i].ToResponse())
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
