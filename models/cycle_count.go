package models

import "time"

// MemberCycleCount tracks one member's application count inside one concrete
// cycle of one group. Rows are created lazily on first write and only ever
// mutated through the counter ledger, which keeps Count equal to the number
// of live CounterApplicationLog rows for the same scope.
type MemberCycleCount struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_member_cycle,priority:1" json:"group_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_member_cycle,priority:2;index" json:"user_id"`
	CycleKey  string    `gorm:"size:32;not null;uniqueIndex:idx_member_cycle,priority:3" json:"cycle_key"`
	Count     int       `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
