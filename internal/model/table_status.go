package model

import "time"

// Table display statuses. Available is represented by the absence of an
// open status row; the remaining values appear on hot and archived rows.
const (
	TableAvailable   = "available"
	TableOccupied    = "occupied"
	TableReserved    = "reserved"
	TableMaintenance = "maintenance"
)

// Status source values recorded on hot and archived rows.
const (
	SourceFeed   = "feed"
	SourceManual = "manual"
)

// TableStatusOpen represents the current non-available status of a table
// (hot table). A table with no open row is available.
type TableStatusOpen struct {
	TableID       int64     `gorm:"primaryKey"`
	Status        string    `gorm:"size:32;not null"`
	Source        string    `gorm:"size:16;not null"`
	ClientName    string    `gorm:"size:128"`
	ReservationID string    `gorm:"size:64"`
	ObservedAt    time.Time `gorm:"not null"`
	PeriodStart   time.Time `gorm:"not null"`
	PeriodEnd     time.Time `gorm:"not null"` // Estimated end of the reservation window
}

// TableStatusHistory represents an archived status period (cold table).
type TableStatusHistory struct {
	ID            int64     `gorm:"autoIncrement"`
	TableID       int64     `gorm:"not null;index;primaryKey"`
	ObservedAt    time.Time `gorm:"not null;index;primaryKey"` // Time the state's END was observed
	Status        string    `gorm:"size:32;not null"`
	Source        string    `gorm:"size:16;not null"`
	ClientName    string    `gorm:"size:128"`
	ReservationID string    `gorm:"size:64"`
	PeriodStart   time.Time `gorm:"not null"`
	PeriodEnd     time.Time `gorm:"not null"`
}
