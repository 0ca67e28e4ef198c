package models

import "time"

// Notification is an in-app message for a user. When DedupeKey is set the
// (user_id, dedupe_key) unique index makes creation at-most-once: a sweep
// that re-derives the same key hits the index and moves on.
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index;uniqueIndex:idx_notification_dedupe,priority:1" json:"user_id"`
	GroupID   *uint      `gorm:"index" json:"group_id,omitempty"`
	Type      string     `gorm:"size:32;not null" json:"type"`
	Title     string     `gorm:"size:255" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	Payload   string     `gorm:"type:text" json:"payload,omitempty"`
	DedupeKey *string    `gorm:"size:191;uniqueIndex:idx_notification_dedupe,priority:2" json:"dedupe_key,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// NotificationDismissal remembers that a user dismissed a deduped
// notification, so a later sweep does not resurrect it.
type NotificationDismissal struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;uniqueIndex:idx_dismissal,priority:1" json:"user_id"`
	DedupeKey   string    `gorm:"size:191;not null;uniqueIndex:idx_dismissal,priority:2" json:"dedupe_key"`
	DismissedAt time.Time `json:"dismissed_at"`
}
