package allocation

import "errors"

var (
	// ErrAlreadyAllocated is returned when the grant race was lost: another
	// approval claimed the copy (or the book's last copy) first.
	ErrAlreadyAllocated = errors.New("copy already allocated to another request")

	// ErrCopyMismatch is returned when the copy does not belong to the book
	// the grant was requested for.
	ErrCopyMismatch = errors.New("copy does not belong to the requested book")
)

// IsAlreadyAllocated checks if error is a lost grant race
func IsAlreadyAllocated(err error) bool {
	return errors.Is(err, ErrAlreadyAllocated)
}
