package model

import "time"

// Override states. An override starts pending, then is confirmed when the
// upstream write succeeds or rejected (and the table reverted) when it fails.
const (
	OverridePending   = "pending"
	OverrideConfirmed = "confirmed"
	OverrideRejected  = "rejected"
)

// StatusOverride records a manual status change requested by staff and the
// outcome of writing it through to the reservation feed.
type StatusOverride struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	TableID         int64  `gorm:"index;not null"`
	RequestedStatus string `gorm:"size:32;not null"`
	PreviousStatus  string `gorm:"size:32;not null"`
	State           string `gorm:"size:16;not null"`
	Error           string `gorm:"size:512"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
