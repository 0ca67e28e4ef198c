package models

import "time"

// Group is an accountability group. Members commit to ApplicationGoal job
// applications per cycle and stake StakeMinorUnits (minor currency units,
// e.g. cents) that is redistributed when the cycle settles.
//
// CreatedAt doubles as the parity anchor for biweekly cycles and must not be
// rewritten once the group exists; historical cycle keys are derived from it.
type Group struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:128;not null" json:"name"`
	OwnerID         uint      `gorm:"index;not null" json:"owner_id"`
	InviteCode      string    `gorm:"size:36;not null;uniqueIndex" json:"invite_code"`
	GoalCycle       string    `gorm:"size:16;not null;default:'weekly'" json:"goal_cycle"`
	GoalStartDay    string    `gorm:"size:16;not null;default:'monday'" json:"goal_start_day"`
	ApplicationGoal int       `gorm:"not null;default:0" json:"application_goal"`
	StakeMinorUnits int64     `gorm:"not null;default:0" json:"stake_minor_units"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Members []GroupMember `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"members,omitempty"`
}

// GroupMember links a user to a group. One row per (group, user).
type GroupMember struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	GroupID  uint      `gorm:"not null;uniqueIndex:idx_group_member,priority:1" json:"group_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_group_member,priority:2;index" json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`

	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user"`
}
