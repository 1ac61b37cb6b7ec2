package model

import "time"

// Table represents a physical table in a restaurant.
type Table struct {
	ID           int64  `gorm:"primaryKey"`
	RestaurantID int64  `gorm:"index:idx_tables_restaurant_folded,unique;not null"`
	Name         string `gorm:"size:128;not null"`
	// FoldedName is the lower-cased, whitespace-stripped form of Name used
	// to join reservations whose table field only carries a display name.
	FoldedName string `gorm:"index:idx_tables_restaurant_folded,unique;size:128;not null"`
	Capacity   int    `gorm:"not null"`
	Location   string `gorm:"size:128"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Associations
	Restaurant Restaurant `gorm:"constraint:OnDelete:CASCADE"`
}
