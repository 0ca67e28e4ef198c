package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/jobpact/jobpact/models"
)

// GroupSource is how sweeps reach the group aggregate, which is owned by
// the HTTP/CRUD layer and stays in the database. Unlike the ledger and
// dedupe stores it has no volatile fallback: a sweep that cannot list groups
// logs the error and waits for the next tick.
type GroupSource interface {
	AllGroups() ([]models.Group, error)
	GroupsForUser(userID uint) ([]models.Group, error)
	MembersOf(groupID uint) ([]models.GroupMember, error)
	DeleteChatBefore(cutoff time.Time) (int64, error)
}

// GormGroupSource is the database-backed GroupSource.
type GormGroupSource struct {
	db *gorm.DB
}

func NewGormGroupSource(db *gorm.DB) *GormGroupSource {
	return &GormGroupSource{db: db}
}

func (g *GormGroupSource) AllGroups() ([]models.Group, error) {
	var groups []models.Group
	err := g.db.Find(&groups).Error
	return groups, err
}

func (g *GormGroupSource) GroupsForUser(userID uint) ([]models.Group, error) {
	var groups []models.Group
	err := g.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Find(&groups).Error
	return groups, err
}

func (g *GormGroupSource) MembersOf(groupID uint) ([]models.GroupMember, error) {
	var members []models.GroupMember
	err := g.db.Preload("User").Where("group_id = ?", groupID).Find(&members).Error
	return members, err
}

func (g *GormGroupSource) DeleteChatBefore(cutoff time.Time) (int64, error) {
	res := g.db.Where("created_at < ?", cutoff).Delete(&models.ChatMessage{})
	return res.RowsAffected, res.Error
}
