package window

import (
	"time"

	"mesa-status-backend/internal/normalize"
)

// Classification places a reservation relative to the current time.
type Classification string

const (
	Upcoming Classification = "upcoming"
	Active   Classification = "active"
	Elapsed  Classification = "elapsed"
)

// Service durations. Reservations starting from 20:00, or in the small
// hours, get the longer dinner sitting.
const (
	lunchDuration  = 120 * time.Minute
	dinnerDuration = 150 * time.Minute
)

// Window is a reservation's estimated occupation interval for a given day.
type Window struct {
	Start          time.Time
	End            time.Time
	Duration       time.Duration
	Classification Classification
}

// isDinner reports whether a start hour falls in the dinner/late-night band.
func isDinner(hour int) bool {
	return hour >= 20 || hour < 2
}

// Resolve computes the estimated occupation window for a reservation
// starting at hour:minute on now's calendar day and classifies it against
// now.
func Resolve(now time.Time, hour, minute int) Window {
	duration := lunchDuration
	if isDinner(hour) {
		duration = dinnerDuration
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	end := start.Add(duration)

	w := Window{Start: start, End: end, Duration: duration}
	switch {
	case now.Before(start):
		w.Classification = Upcoming
	case now.After(end):
		w.Classification = Elapsed
	default:
		w.Classification = Active
	}
	return w
}

// WantsAutoComplete reports whether an elapsed reservation should be marked
// completed upstream. The resulting write must be idempotent in effect:
// the same reservation can be detected again on a later poll before the
// feed reflects the update.
func WantsAutoComplete(cls Classification, status normalize.Status) bool {
	if cls != Elapsed {
		return false
	}
	return status == normalize.StatusReserved || status == normalize.StatusOccupied
}
