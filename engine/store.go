package engine

import (
	"errors"

	"github.com/jobpact/jobpact/models"
)

// ErrDuplicate is returned by Store writes that hit a uniqueness constraint.
// For settlement and notification inserts it means another writer already
// recorded the same logical event, which callers treat as success.
var ErrDuplicate = errors.New("engine: duplicate record")

// CountScope identifies one member's counter inside one cycle of one group.
type CountScope struct {
	GroupID  uint
	UserID   uint
	CycleKey string
}

// Store is the persistence backend behind the engine. Two implementations
// exist: GormStore (durable) and MemStore (volatile); FailoverStore wraps
// them with a one-way durable→volatile degrade.
//
// ApplyCount must persist the counter value and its log mutation as one
// logical operation so the counter always equals the number of live log rows
// for the scope.
type Store interface {
	// Counter ledger.
	CycleCount(scope CountScope) (int, error)
	ApplyCount(scope CountScope, target int, appended []models.CounterApplicationLog, removed int) error
	CycleKeysForGroup(groupID uint) ([]string, error)
	CountsForCycle(groupID uint, cycleKey string) (map[uint]int, error)
	ApplicationLogsByUser(userID uint, limit int) ([]models.CounterApplicationLog, error)

	// Settlement.
	SettlementExists(groupID uint, cycleKey string) (bool, error)
	InsertSettlementLogs(entries []models.SettlementLog) error
	SettlementLogsByUser(userID uint, limit int) ([]models.SettlementLog, error)

	// Notifications.
	InsertNotification(n *models.Notification) error
	NotificationsByUser(userID uint, limit int) ([]models.Notification, error)
	MarkNotificationRead(userID, notificationID uint) error
	DismissalExists(userID uint, dedupeKey string) (bool, error)
	SaveDismissal(d *models.NotificationDismissal) error
}
