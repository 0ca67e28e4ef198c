package models

import "time"

// SettlementLog records the outcome of one settled cycle for one member.
// The (group_id, cycle_key, user_id) unique index is the idempotency
// guarantee for settlement: a sweep that loses the insert race hits the
// index instead of writing duplicates. Rows are never updated or deleted.
type SettlementLog struct {
	ID                        uint      `gorm:"primaryKey" json:"id"`
	GroupID                   uint      `gorm:"not null;uniqueIndex:idx_settlement,priority:1" json:"group_id"`
	CycleKey                  string    `gorm:"size:32;not null;uniqueIndex:idx_settlement,priority:2" json:"cycle_key"`
	UserID                    uint      `gorm:"not null;uniqueIndex:idx_settlement,priority:3;index" json:"user_id"`
	GroupNameSnapshot         string    `gorm:"size:128" json:"group_name"`
	GoalCycleSnapshot         string    `gorm:"size:16" json:"goal_cycle"`
	GoalStartDaySnapshot      string    `gorm:"size:16" json:"goal_start_day"`
	ApplicationGoalSnapshot   int       `json:"application_goal"`
	StakeMinorUnitsSnapshot   int64     `json:"stake_minor_units"`
	CycleStartsAt             time.Time `json:"cycle_starts_at"`
	CycleEndsAt               time.Time `json:"cycle_ends_at"`
	SettledAt                 time.Time `json:"settled_at"`
	ParticipantCount          int       `json:"participant_count"`
	QualifiedParticipantCount int       `json:"qualified_participant_count"`
	PotMinorUnits             int64     `json:"pot_minor_units"`
	AmountWonMinorUnits       int64     `json:"amount_won_minor_units"`
	ApplicationsCountSnapshot int       `json:"applications_count"`
	MetGoalSnapshot           bool      `json:"met_goal"`
	ParticipantsJSON          string    `gorm:"type:text" json:"participants_json"`
	CreatedAt                 time.Time `json:"created_at"`
}
