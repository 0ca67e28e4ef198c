package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/models"
	"github.com/jobpact/jobpact/utils"
)

// GroupController manages accountability groups and membership. Cycle
// configuration is validated here, at the boundary; the engine never sees a
// group with an invalid cycle or start day.
type GroupController struct {
	db *gorm.DB
}

// NewGroupController creates a new controller instance.
func NewGroupController(db *gorm.DB) *GroupController {
	return &GroupController{db: db}
}

// CreateGroup creates a group and enrolls the creator as its first member.
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required,min=1"`
		GoalCycle       string `json:"goal_cycle" binding:"required"`
		GoalStartDay    string `json:"goal_start_day"`
		ApplicationGoal int    `json:"application_goal"`
		StakeMinorUnits int64  `json:"stake_minor_units"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid request payload")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > 128 {
		utils.Error(ctx, http.StatusBadRequest, 40011, "group name must be 1-128 characters")
		return
	}

	kind, err := engine.ParseCycleKind(strings.ToLower(req.GoalCycle))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40012, "goal_cycle must be daily, weekly or biweekly")
		return
	}
	startDay := strings.ToLower(req.GoalStartDay)
	if kind == engine.CycleDaily {
		if startDay == "" {
			startDay = "monday"
		}
	} else {
		if _, err := engine.ParseWeekday(startDay); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40013, "goal_start_day must be a weekday name for weekly and biweekly cycles")
			return
		}
	}
	if req.ApplicationGoal < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40014, "application_goal cannot be negative")
		return
	}
	if req.StakeMinorUnits < 0 {
		utils.Error(ctx, http.StatusBadRequest, 40015, "stake_minor_units cannot be negative")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	group := models.Group{
		Name:            name,
		OwnerID:         userID,
		InviteCode:      uuid.NewString(),
		GoalCycle:       string(kind),
		GoalStartDay:    startDay,
		ApplicationGoal: req.ApplicationGoal,
		StakeMinorUnits: req.StakeMinorUnits,
	}

	err = g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&models.GroupMember{
			GroupID:  group.ID,
			UserID:   userID,
			JoinedAt: time.Now(),
		}).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to create group")
		return
	}

	utils.Success(ctx, gin.H{"group": group})
}

// ListGroups returns the caller's groups.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var groups []models.Group
	if err := g.db.
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50011, "failed to list groups")
		return
	}

	utils.Success(ctx, gin.H{"groups": groups})
}

// GetGroup returns one group with its member list; members only.
func (g *GroupController) GetGroup(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	groupID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40016, "invalid group id")
		return
	}

	member, err := loadMembership(g.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50012, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	var group models.Group
	if err := g.db.Preload("Members.User").First(&group, groupID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "group not found")
		return
	}

	utils.Success(ctx, gin.H{"group": group})
}

// JoinGroup enrolls the caller using an invite code.
func (g *GroupController) JoinGroup(ctx *gin.Context) {
	var req struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40017, "invalid request payload")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var group models.Group
	if err := g.db.Where("invite_code = ?", strings.TrimSpace(req.InviteCode)).First(&group).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40403, "invite code not recognized")
		return
	}

	member, err := loadMembership(g.db, group.ID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50013, "failed to load membership")
		return
	}
	if member != nil {
		utils.Error(ctx, http.StatusConflict, 40902, "already a member of this group")
		return
	}

	if err := g.db.Create(&models.GroupMember{
		GroupID:  group.ID,
		UserID:   userID,
		JoinedAt: time.Now(),
	}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50014, "failed to join group")
		return
	}

	// Cached cycle views carry the member list and pot size.
	utils.InvalidateByPrefix(groupCycleCachePrefix(group.ID))
	utils.Success(ctx, gin.H{"group": group})
}

// LeaveGroup removes the caller from the group. The owner can only leave
// once everyone else has; the group then has no meaningful settlements left.
func (g *GroupController) LeaveGroup(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	groupID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40016, "invalid group id")
		return
	}

	member, err := loadMembership(g.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	var group models.Group
	if err := g.db.First(&group, groupID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "group not found")
		return
	}
	if group.OwnerID == userID {
		var others int64
		if err := g.db.Model(&models.GroupMember{}).
			Where("group_id = ? AND user_id <> ?", groupID, userID).
			Count(&others).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50015, "failed to load membership")
			return
		}
		if others > 0 {
			utils.Error(ctx, http.StatusBadRequest, 40018, "owner cannot leave while the group has other members")
			return
		}
	}

	if err := g.db.Delete(&models.GroupMember{}, member.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50016, "failed to leave group")
		return
	}

	utils.InvalidateByPrefix(groupCycleCachePrefix(groupID))
	utils.Success(ctx, gin.H{"message": "left group"})
}
