package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"circulation-backend/internal/domains/borrow/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    model.Status
		to      model.Status
		allowed bool
	}{
		{"pending to borrowed", model.StatusPendingApproval, model.StatusBorrowed, true},
		{"pending to rejected", model.StatusPendingApproval, model.StatusRejected, true},
		{"pending to returned", model.StatusPendingApproval, model.StatusReturned, false},
		{"borrowed to returned", model.StatusBorrowed, model.StatusReturned, true},
		{"borrowed to overdue", model.StatusBorrowed, model.StatusOverdue, true},
		{"borrowed to renewed", model.StatusBorrowed, model.StatusRenewed, true},
		{"renewed to returned", model.StatusRenewed, model.StatusReturned, true},
		{"renewed to overdue", model.StatusRenewed, model.StatusOverdue, true},
		{"renewed to renewed", model.StatusRenewed, model.StatusRenewed, false},
		{"overdue to returned", model.StatusOverdue, model.StatusReturned, true},
		{"overdue to renewed", model.StatusOverdue, model.StatusRenewed, true},
		{"returned is terminal", model.StatusReturned, model.StatusBorrowed, false},
		{"rejected is terminal", model.StatusRejected, model.StatusBorrowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, model.CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, model.StatusReturned.IsTerminal())
	assert.True(t, model.StatusRejected.IsTerminal())
	assert.False(t, model.StatusOverdue.IsTerminal())
	assert.False(t, model.StatusPendingApproval.IsTerminal())

	assert.True(t, model.StatusBorrowed.IsActive())
	assert.True(t, model.StatusRenewed.IsActive())
	assert.True(t, model.StatusOverdue.IsActive())
	assert.False(t, model.StatusPendingApproval.IsActive())
	assert.False(t, model.StatusReturned.IsActive())
}

func TestRenewalLimitIsInvalidTransition(t *testing.T) {
	// Callers classify renewal refusals with the same errors.Is check as any
	// other rejected transition.
	assert.True(t, errors.Is(model.ErrRenewalLimitReached, model.ErrInvalidTransition))
	assert.True(t, model.IsInvalidTransitionError(model.ErrRenewalLimitReached))
}
