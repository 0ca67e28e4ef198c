package engine

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobpact/jobpact/models"
)

// GormStore is the durable Store backed by the application database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) CycleCount(scope CountScope) (int, error) {
	var row models.MemberCycleCount
	err := s.db.Where("group_id = ? AND user_id = ? AND cycle_key = ?",
		scope.GroupID, scope.UserID, scope.CycleKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}

// ApplyCount persists the counter and its log mutation in one transaction.
// The counter row is upserted so concurrent first writes for a fresh scope
// cannot race into duplicates.
func (s *GormStore) ApplyCount(scope CountScope, target int, appended []models.CounterApplicationLog, removed int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		row := models.MemberCycleCount{
			GroupID:  scope.GroupID,
			UserID:   scope.UserID,
			CycleKey: scope.CycleKey,
			Count:    target,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "group_id"},
				{Name: "user_id"},
				{Name: "cycle_key"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      target,
				"updated_at": time.Now(),
			}),
		}).Create(&row).Error; err != nil {
			return err
		}

		if len(appended) > 0 {
			if err := tx.Create(&appended).Error; err != nil {
				return err
			}
		}

		if removed > 0 {
			var victims []models.CounterApplicationLog
			if err := tx.Where("group_id = ? AND user_id = ? AND cycle_key = ?",
				scope.GroupID, scope.UserID, scope.CycleKey).
				Order("logged_at DESC, application_index DESC").
				Limit(removed).
				Find(&victims).Error; err != nil {
				return err
			}
			ids := make([]uint, 0, len(victims))
			for _, v := range victims {
				ids = append(ids, v.ID)
			}
			if len(ids) > 0 {
				if err := tx.Delete(&models.CounterApplicationLog{}, ids).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *GormStore) CycleKeysForGroup(groupID uint) ([]string, error) {
	var keys []string
	err := s.db.Model(&models.MemberCycleCount{}).
		Where("group_id = ?", groupID).
		Distinct().
		Pluck("cycle_key", &keys).Error
	return keys, err
}

func (s *GormStore) CountsForCycle(groupID uint, cycleKey string) (map[uint]int, error) {
	var rows []models.MemberCycleCount
	if err := s.db.Where("group_id = ? AND cycle_key = ?", groupID, cycleKey).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, r := range rows {
		counts[r.UserID] = r.Count
	}
	return counts, nil
}

func (s *GormStore) ApplicationLogsByUser(userID uint, limit int) ([]models.CounterApplicationLog, error) {
	var rows []models.CounterApplicationLog
	err := s.db.Where("user_id = ?", userID).
		Order("logged_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) SettlementExists(groupID uint, cycleKey string) (bool, error) {
	var n int64
	err := s.db.Model(&models.SettlementLog{}).
		Where("group_id = ? AND cycle_key = ?", groupID, cycleKey).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) InsertSettlementLogs(entries []models.SettlementLog) error {
	if len(entries) == 0 {
		return nil
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&entries).Error
	})
	return translateDuplicate(err)
}

func (s *GormStore) SettlementLogsByUser(userID uint, limit int) ([]models.SettlementLog, error) {
	var rows []models.SettlementLog
	err := s.db.Where("user_id = ? AND participant_count >= 2", userID).
		Order("settled_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) InsertNotification(n *models.Notification) error {
	return translateDuplicate(s.db.Create(n).Error)
}

func (s *GormStore) NotificationsByUser(userID uint, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) MarkNotificationRead(userID, notificationID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", time.Now()).Error
}

func (s *GormStore) DismissalExists(userID uint, dedupeKey string) (bool, error) {
	var n int64
	err := s.db.Model(&models.NotificationDismissal{}).
		Where("user_id = ? AND dedupe_key = ?", userID, dedupeKey).
		Count(&n).Error
	return n > 0, err
}

func (s *GormStore) SaveDismissal(d *models.NotificationDismissal) error {
	return translateDuplicate(s.db.Create(d).Error)
}

// translateDuplicate maps driver-level uniqueness violations onto
// ErrDuplicate so callers can resolve idempotency races without knowing the
// storage engine.
func translateDuplicate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := err.Error()
	if strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed") {
		return ErrDuplicate
	}
	return err
}
