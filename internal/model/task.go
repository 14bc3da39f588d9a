package model

import "time"

// Task priorities. Stored lower-case; membership is checked in the service layer.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task statuses.
const (
	StatusPending = "pending"
	StatusDone    = "done"
)

// DeadlineLayout is the fixed zero-padded format for deadlines. Stored as
// text and compared lexicographically, which matches chronological order
// in this layout.
const DeadlineLayout = "2006-01-02 15:04"

// Task represents a single tracked item belonging to one Telegram user.
type Task struct {
	ID        uint  `gorm:"primaryKey"`
	OwnerID   int64 `gorm:"index"`
	Name      string
	Theme     string
	Priority  string `gorm:"default:medium"`
	Deadline  string
	Status    string `gorm:"default:pending;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
