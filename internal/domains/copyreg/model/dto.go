package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// RegisterCopyRequest is the payload for registering a new physical copy.
type RegisterCopyRequest struct {
	BookID    uuid.UUID `json:"book_id"`
	Condition string    `json:"condition"`
}

func (r RegisterCopyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.BookID, validation.Required, validation.By(notNilUUID)),
		validation.Field(&r.Condition, validation.Length(0, 64)),
	)
}

// UpdateConditionRequest moves a copy between condition states
// (damaged, lost, maintenance, back to available). Condition, when set,
// replaces the free-text condition label alongside the status change.
type UpdateConditionRequest struct {
	Status    string `json:"status"`
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

func (r UpdateConditionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.By(func(v interface{}) error {
			s, _ := v.(string)
			if !IsValidStatus(s) {
				return validation.NewError("validation_copy_status", "unknown copy status")
			}
			if CopyStatus(s) == StatusBorrowed || CopyStatus(s) == StatusReserved {
				return validation.NewError("validation_copy_status", "borrowed/reserved are set by the allocation engine, not manually")
			}
			return nil
		})),
		validation.Field(&r.Condition, validation.Length(0, 64)),
		validation.Field(&r.Notes, validation.Length(0, 500)),
	)
}

// ListCopiesRequest filters the copy listing.
type ListCopiesRequest struct {
	BookID          *uuid.UUID `form:"book_id"`
	Status          *string    `form:"status"`
	IncludeArchived bool       `form:"include_archived"`
	Page            int        `form:"page,default=1"`
	Limit           int        `form:"limit,default=20"`
}

func (r ListCopiesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Page, validation.Min(1)),
		validation.Field(&r.Limit, validation.Min(1), validation.Max(100)),
	)
}

// CopyResponse is the API shape of a copy.
type CopyResponse struct {
	ID         uuid.UUID  `json:"id"`
	BookID     uuid.UUID  `json:"book_id"`
	Status     CopyStatus `json:"status"`
	Condition  string     `json:"condition"`
	IsArchived bool       `json:"is_archived"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type ListCopiesResponse struct {
	Items      []CopyResponse `json:"items"`
	TotalItems int            `json:"total_items"`
	TotalPages int            `json:"total_pages"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

func (c *Copy) ToResponse() CopyResponse {
	return CopyResponse{
		ID:         c.ID,
		BookID:     c.BookID,
		Status:     c.Status,
		Condition:  c.Condition,
		IsArchived: c.IsArchived,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func ToResponseList(copies []Copy) []CopyResponse {
	out := make([]CopyResponse, 0, len(copies))
	for i := range copies {
		out = append(out, copies[i].ToResponse())
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
