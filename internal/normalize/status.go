package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Status is the canonical reservation status derived from the feed's
// free-text Estado field.
type Status string

const (
	StatusReserved  Status = "reserved"
	StatusOccupied  Status = "occupied"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	// StatusUnknown marks raw values outside the known vocabulary so
	// data-quality problems stay visible; display code degrades it to
	// reserved via Canonical.
	StatusUnknown Status = "unknown"
)

// Normalize maps a raw status string from the feed into a Status. The feed
// is spreadsheet-backed and its Estado column carries locale text with
// inconsistent casing and padding.
func Normalize(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "ocupada", "occupied":
		return StatusOccupied
	case "completada", "completed":
		return StatusCompleted
	case "cancelada", "cancelled":
		return StatusCancelled
	case "confirmada", "reservada", "pendiente", "reserved", "":
		return StatusReserved
	default:
		return StatusUnknown
	}
}

// Canonical collapses Unknown into the historical fail-open default.
func (s Status) Canonical() Status {
	if s == StatusUnknown {
		return StatusReserved
	}
	return s
}

// Terminal reports whether the reservation can no longer hold a table.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// FoldName lower-cases a table name and strips all whitespace, producing the
// key used to join reservations to tables when only a display name is given.
func FoldName(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseClock parses a wall-clock "HH:MM" string. Some sheet rows use "." as
// the separator, so both are accepted.
func ParseClock(raw string) (hour, minute int, err error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ".", ":")

	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock value %q", raw)
	}

	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid hour in %q: %w", raw, err)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minute in %q: %w", raw, err)
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", raw)
	}
	return hour, minute, nil
}
