package model

import (
	"time"

	"github.com/google/uuid"
)

// CopyStatus is the allocation status of one physical copy.
type CopyStatus string

const (
	StatusAvailable   CopyStatus = "available"
	StatusBorrowed    CopyStatus = "borrowed"
	StatusReserved    CopyStatus = "reserved"
	StatusDamaged     CopyStatus = "damaged"
	StatusLost        CopyStatus = "lost"
	StatusMaintenance CopyStatus = "maintenance"
)

// Copy represents one physical unit of a title, independently allocatable.
// The available/borrowed/reserved axis is mutated exclusively through the
// allocation coordinator's conditional updates; condition states are set by
// librarian actions.
type Copy struct {
	ID         uuid.UUID  `db:"id"`
	BookID     uuid.UUID  `db:"book_id"`
	Status     CopyStatus `db:"status"`
	Condition  string     `db:"condition"` // free-form: new, good, worn...
	IsArchived bool       `db:"is_archived"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

// validTransitions encodes the copy status machine. Borrowed copies can only
// leave via return (available) or a loss report; condition states cycle back
// to available once resolved.
var validTransitions = map[CopyStatus][]CopyStatus{
	StatusAvailable:   {StatusBorrowed, StatusReserved, StatusDamaged, StatusLost, StatusMaintenance},
	StatusReserved:    {StatusBorrowed, StatusAvailable},
	StatusBorrowed:    {StatusAvailable, StatusLost},
	StatusDamaged:     {StatusAvailable, StatusMaintenance, StatusLost},
	StatusMaintenance: {StatusAvailable, StatusDamaged, StatusLost},
	StatusLost:        {StatusAvailable},
}

// CanTransition reports whether from → to is a legal copy status change.
func CanTransition(from, to CopyStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether s names a known copy status.
func IsValidStatus(s string) bool {
	switch CopyStatus(s) {
	case StatusAvailable, StatusBorrowed, StatusReserved, StatusDamaged, StatusLost, StatusMaintenance:
		return true
	}
	return false
}

// Allocatable reports whether the copy can be granted to a requester.
func (c *Copy) Allocatable() bool {
	return c.Status == StatusAvailable && !c.IsArchived
}
