package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"circulation-backend/internal/domains/reservation/model"
)

func TestCanTransition(t *testing.T) {
	for _, to := range []model.Status{model.StatusFulfilled, model.StatusCancelled, model.StatusExpired} {
		assert.True(t, model.CanTransition(model.StatusPending, to), string(to))
	}

	terminals := []model.Status{model.StatusFulfilled, model.StatusCancelled, model.StatusExpired}
	for _, from := range terminals {
		for _, to := range []model.Status{model.StatusPending, model.StatusFulfilled, model.StatusCancelled, model.StatusExpired} {
			assert.False(t, model.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, model.StatusPending.IsTerminal())
	assert.True(t, model.StatusFulfilled.IsTerminal())
	assert.True(t, model.StatusCancelled.IsTerminal())
	assert.True(t, model.StatusExpired.IsTerminal())
}

func TestExpiredAt(t *testing.T) {
	expiry := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	r := model.Reservation{ExpiryDate: expiry}

	assert.False(t, r.ExpiredAt(expiry.Add(-time.Minute)))
	assert.True(t, r.ExpiredAt(expiry), "claim lapses at the exact expiry instant")
	assert.True(t, r.ExpiredAt(expiry.Add(time.Second)))
}

func TestNotNextInLineIsInvalidTransition(t *testing.T) {
	assert.True(t, errors.Is(model.ErrNotNextInLine, model.ErrInvalidTransition))
}
