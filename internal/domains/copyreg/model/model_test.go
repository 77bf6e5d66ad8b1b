package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"circulation-backend/internal/domains/copyreg/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    model.CopyStatus
		to      model.CopyStatus
		allowed bool
	}{
		{"available to borrowed", model.StatusAvailable, model.StatusBorrowed, true},
		{"available to reserved", model.StatusAvailable, model.StatusReserved, true},
		{"available to damaged", model.StatusAvailable, model.StatusDamaged, true},
		{"available to maintenance", model.StatusAvailable, model.StatusMaintenance, true},
		{"borrowed to available", model.StatusBorrowed, model.StatusAvailable, true},
		{"borrowed to lost", model.StatusBorrowed, model.StatusLost, true},
		{"borrowed to damaged", model.StatusBorrowed, model.StatusDamaged, false},
		{"borrowed to borrowed", model.StatusBorrowed, model.StatusBorrowed, false},
		{"reserved to borrowed", model.StatusReserved, model.StatusBorrowed, true},
		{"reserved to available", model.StatusReserved, model.StatusAvailable, true},
		{"damaged to available", model.StatusDamaged, model.StatusAvailable, true},
		{"lost to available", model.StatusLost, model.StatusAvailable, true},
		{"maintenance to available", model.StatusMaintenance, model.StatusAvailable, true},
		{"damaged to borrowed", model.StatusDamaged, model.StatusBorrowed, false},
		{"lost to borrowed", model.StatusLost, model.StatusBorrowed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, model.CanTransition(tt.from, tt.to))
		})
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range []string{"available", "borrowed", "reserved", "damaged", "lost", "maintenance"} {
		assert.True(t, model.IsValidStatus(s), s)
	}
	assert.False(t, model.IsValidStatus("checked_out"))
	assert.False(t, model.IsValidStatus(""))
}

func TestAllocatable(t *testing.T) {
	cp := model.Copy{Status: model.StatusAvailable}
	assert.True(t, cp.Allocatable())

	cp.IsArchived = true
	assert.False(t, cp.Allocatable(), "archived copies never allocate")

	cp = model.Copy{Status: model.StatusReserved}
	assert.False(t, cp.Allocatable(), "held copies are not open to walk-in requests")

	cp = model.Copy{Status: model.StatusBorrowed}
	assert.False(t, cp.Allocatable())
}
