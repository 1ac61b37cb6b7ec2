package model

import "time"

// Restaurant represents a single tenant of the reservation system.
type Restaurant struct {
	ID            int64  `gorm:"primaryKey"`
	Name          string `gorm:"uniqueIndex;size:128;not null"`
	Timezone      string `gorm:"size:64"`
	Open          bool   `gorm:"not null;default:true"`
	ClosedMessage string `gorm:"size:256"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`

	// Associations
	Tables []Table `gorm:"foreignKey:RestaurantID"`
}
