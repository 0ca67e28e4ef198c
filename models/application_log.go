package models

import "time"

// CounterApplicationLog is one unit of counted progress: the nth application
// a member logged inside a cycle. Rows carry a snapshot of the group's
// configuration at the moment the unit was counted, so later edits to the
// group do not rewrite history. Rows are appended on count increases and the
// most recent ones are deleted on decreases; an existing row is never updated.
type CounterApplicationLog struct {
	ID                      uint      `gorm:"primaryKey" json:"id"`
	UserID                  uint      `gorm:"index;not null" json:"user_id"`
	GroupID                 uint      `gorm:"index;not null" json:"group_id"`
	GroupNameSnapshot       string    `gorm:"size:128" json:"group_name"`
	GoalCycleSnapshot       string    `gorm:"size:16" json:"goal_cycle"`
	GoalStartDaySnapshot    string    `gorm:"size:16" json:"goal_start_day"`
	ApplicationGoalSnapshot int       `json:"application_goal"`
	StakeMinorUnitsSnapshot int64     `json:"stake_minor_units"`
	CycleKey                string    `gorm:"size:32;index;not null" json:"cycle_key"`
	CycleStartsAt           time.Time `json:"cycle_starts_at"`
	CycleEndsAt             time.Time `json:"cycle_ends_at"`
	ApplicationIndex        int       `gorm:"not null" json:"application_index"`
	LoggedAt                time.Time `gorm:"index" json:"logged_at"`
}
