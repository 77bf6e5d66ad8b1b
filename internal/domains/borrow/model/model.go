package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of one lending transaction.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusBorrowed        Status = "borrowed"
	StatusRenewed         Status = "renewed"
	StatusOverdue         Status = "overdue"
	StatusReturned        Status = "returned"
	StatusRejected        Status = "rejected"
)

// ActiveStatuses are the states in which the record holds its copy.
// Exactly one record in one of these states may reference a given copy.
var ActiveStatuses = []Status{StatusBorrowed, StatusRenewed, StatusOverdue}

// validTransitions encodes the circulation state machine:
// pending_approval → {borrowed, rejected}; borrowed → {returned, overdue,
// renewed}; renewed → {returned, overdue}; overdue → {returned, renewed}.
// An overdue loan may still be renewed (within the cap); a renewed loan must
// lapse to overdue before it can be renewed again.
var validTransitions = map[Status][]Status{
	StatusPendingApproval: {StatusBorrowed, StatusRejected},
	StatusBorrowed:        {StatusReturned, StatusOverdue, StatusRenewed},
	StatusRenewed:         {StatusReturned, StatusOverdue},
	StatusOverdue:         {StatusReturned, StatusRenewed},
}

// CanTransition reports whether from → to is legal.
func CanTransition(from, to Status) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusReturned || s == StatusRejected
}

// IsActive reports whether the record currently holds its copy.
func (s Status) IsActive() bool {
	return s == StatusBorrowed || s == StatusRenewed || s == StatusOverdue
}

// BorrowRecord is one lending transaction: request → approval → lending →
// return/renewal. Once past pending_approval the record is append-only audit
// trail and never deleted.
type BorrowRecord struct {
	ID          uuid.UUID `db:"id"`
	ReaderID    uuid.UUID `db:"reader_id"`
	CopyID      uuid.UUID `db:"copy_id"`
	LibrarianID uuid.UUID `db:"librarian_id"`

	// ReaderClass selects the loan policy; captured at request time so
	// approval and renewal apply the same policy the admission check used.
	ReaderClass string `db:"reader_class"`

	Status Status `db:"status"`

	BorrowDate   *time.Time `db:"borrow_date"` // set on approval
	DueDate      *time.Time `db:"due_date"`    // set on approval, extended on renewal
	ReturnDate   *time.Time `db:"return_date"` // terminal once set
	RenewalCount int        `db:"renewal_count"`

	Notes string `db:"notes"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
