package model

import "time"

// UserPoints keeps the per-user completion counter. One point is granted
// per mark-done call; the total never goes down.
type UserPoints struct {
	ID        uint  `gorm:"primaryKey"`
	OwnerID   int64 `gorm:"uniqueIndex"`
	Points    int   `gorm:"default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
