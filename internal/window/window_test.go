package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mesa-status-backend/internal/normalize"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}

func TestResolveLunch(t *testing.T) {
	// 13:30 reservation: 120-minute sitting, ends 15:30.
	w := Resolve(at(14, 45), 13, 30)
	assert.Equal(t, Active, w.Classification)
	assert.Equal(t, 120*time.Minute, w.Duration)

	w = Resolve(at(16, 0), 13, 30)
	assert.Equal(t, Elapsed, w.Classification)

	w = Resolve(at(12, 0), 13, 30)
	assert.Equal(t, Upcoming, w.Classification)
}

func TestResolveDinner(t *testing.T) {
	// 21:00 reservation: 150-minute sitting, ends 23:30.
	w := Resolve(at(23, 0), 21, 0)
	assert.Equal(t, Active, w.Classification)
	assert.Equal(t, 150*time.Minute, w.Duration)

	w = Resolve(at(23, 31), 21, 0)
	assert.Equal(t, Elapsed, w.Classification)
}

func TestResolveLateNight(t *testing.T) {
	// A 01:00 reservation counts as dinner service.
	w := Resolve(at(1, 30), 1, 0)
	assert.Equal(t, Active, w.Classification)
	assert.Equal(t, 150*time.Minute, w.Duration)

	// 02:00 is back on the lunch duration.
	w = Resolve(at(2, 30), 2, 0)
	assert.Equal(t, 120*time.Minute, w.Duration)
}

func TestResolveBoundaries(t *testing.T) {
	// Classification is inclusive at both ends of the window.
	w := Resolve(at(13, 30), 13, 30)
	assert.Equal(t, Active, w.Classification)

	w = Resolve(at(15, 30), 13, 30)
	assert.Equal(t, Active, w.Classification)
}

func TestWantsAutoComplete(t *testing.T) {
	testCases := []struct {
		name     string
		cls      Classification
		status   normalize.Status
		expected bool
	}{
		{name: "Elapsed reserved", cls: Elapsed, status: normalize.StatusReserved, expected: true},
		{name: "Elapsed occupied", cls: Elapsed, status: normalize.StatusOccupied, expected: true},
		{name: "Elapsed completed", cls: Elapsed, status: normalize.StatusCompleted, expected: false},
		{name: "Elapsed cancelled", cls: Elapsed, status: normalize.StatusCancelled, expected: false},
		{name: "Elapsed unknown", cls: Elapsed, status: normalize.StatusUnknown, expected: false},
		{name: "Active reserved", cls: Active, status: normalize.StatusReserved, expected: false},
		{name: "Upcoming occupied", cls: Upcoming, status: normalize.StatusOccupied, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, WantsAutoComplete(tc.cls, tc.status))
		})
	}
}
