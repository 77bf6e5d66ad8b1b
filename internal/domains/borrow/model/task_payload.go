package model

import (
	"time"

	"github.com/google/uuid"
)

// SweepOverduePayload triggers one overdue sweep run.
type SweepOverduePayload struct {
	Limit int `json:"limit"`
}

// OverdueDetectedPayload is the event consumed by the fine ledger. The
// engine states the fact and the magnitude in days; fine amounts are not
// its business.
type OverdueDetectedPayload struct {
	BorrowRecordID uuid.UUID `json:"borrow_record_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	CopyID         uuid.UUID `json:"copy_id"`
	DueDate        time.Time `json:"due_date"`
	DaysOverdue    int       `json:"days_overdue"`
}

// DueSoonRemindersPayload triggers one reminder run.
type DueSoonRemindersPayload struct {
	WindowDays int `json:"window_days"`
	Limit      int `json:"limit"`
}

// LoanApprovedPayload drives the caller-side notification system.
type LoanApprovedPayload struct {
	BorrowRecordID uuid.UUID `json:"borrow_record_id"`
	ReaderID       uuid.UUID `json:"reader_id"`
	CopyID         uuid.UUID `json:"copy_id"`
	DueDate        time.Time `json:"due_date"`
}
