package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/models"
	"github.com/jobpact/jobpact/utils"
)

// cycleViewTTL keeps the cycle snapshot fresh enough that a member sees a
// teammate's update within a minute while shielding the counter tables from
// every poll.
const cycleViewTTL = time.Minute

func groupCycleCachePrefix(groupID uint) string {
	return fmt.Sprintf("jobpact:cycle:%d:", groupID)
}

func groupCycleCacheKey(groupID uint, cycleKey string) string {
	return groupCycleCachePrefix(groupID) + cycleKey
}

// CountController serves the current cycle view and accepts counter updates.
type CountController struct {
	db  *gorm.DB
	eng *engine.Engine
}

// NewCountController creates a new controller instance.
func NewCountController(db *gorm.DB, eng *engine.Engine) *CountController {
	return &CountController{db: db, eng: eng}
}

type memberCount struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Count    int    `json:"count"`
	MetGoal  bool   `json:"met_goal"`
}

type cycleView struct {
	Window          engine.CycleWindow `json:"window"`
	ApplicationGoal int                `json:"application_goal"`
	StakeMinorUnits int64              `json:"stake_minor_units"`
	PotMinorUnits   int64              `json:"pot_minor_units"`
	Members         []memberCount      `json:"members"`
}

// GetCycle returns the group's current cycle window with every member's
// count, served from a short lived Redis cache.
func (cc *CountController) GetCycle(ctx *gin.Context) {
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

	member, err := loadMembership(cc.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	var group models.Group
	if err := cc.db.First(&group, groupID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "group not found")
		return
	}

	cfg, err := engine.ConfigFor(&group)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "group has invalid cycle configuration")
		return
	}
	win := cc.eng.Calc.Window(cfg, time.Now())

	cacheKey := groupCycleCacheKey(groupID, win.Key)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	view, err := cc.buildCycleView(&group, win)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to load cycle counts")
		return
	}

	resp := gin.H{"code": 0, "message": "success", "data": gin.H{"cycle": view}}
	utils.CacheSetJSON(cacheKey, resp, cycleViewTTL)
	ctx.JSON(http.StatusOK, resp)
}

func (cc *CountController) buildCycleView(group *models.Group, win engine.CycleWindow) (*cycleView, error) {
	var members []models.GroupMember
	if err := cc.db.Preload("User").Where("group_id = ?", group.ID).Order("joined_at ASC").Find(&members).Error; err != nil {
		return nil, err
	}

	counts, err := cc.eng.Store.CountsForCycle(group.ID, win.Key)
	if err != nil {
		return nil, err
	}

	view := &cycleView{
		Window:          win,
		ApplicationGoal: group.ApplicationGoal,
		StakeMinorUnits: group.StakeMinorUnits,
		PotMinorUnits:   int64(len(members)) * group.StakeMinorUnits,
		Members:         make([]memberCount, 0, len(members)),
	}
	for _, m := range members {
		count := counts[m.UserID]
		view.Members = append(view.Members, memberCount{
			UserID:   m.UserID,
			Username: m.User.Username,
			Count:    count,
			MetGoal:  group.ApplicationGoal <= 0 || count >= group.ApplicationGoal,
		})
	}
	return view, nil
}

// SetCount sets or adjusts the caller's application count for a cycle. The
// body carries either an absolute "count" or a relative "delta"; updates are
// accepted only while the target window is still open.
func (cc *CountController) SetCount(ctx *gin.Context) {
	var req struct {
		CycleKey string `json:"cycle_key"`
		Count    *int   `json:"count"`
		Delta    *int   `json:"delta"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if (req.Count == nil) == (req.Delta == nil) {
		utils.Error(ctx, http.StatusBadRequest, 40021, "exactly one of count or delta is required")
		return
	}

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

	member, err := loadMembership(cc.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	var group models.Group
	if err := cc.db.First(&group, groupID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40402, "group not found")
		return
	}

	cfg, err := engine.ConfigFor(&group)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "group has invalid cycle configuration")
		return
	}

	now := time.Now()
	current := cc.eng.Calc.Window(cfg, now)
	cycleKey := req.CycleKey
	if cycleKey == "" {
		cycleKey = current.Key
	}
	win, err := cc.eng.Calc.ParseWindow(cycleKey)
	if err != nil || win.Kind != cfg.Kind {
		utils.Error(ctx, http.StatusBadRequest, 40022, "unknown cycle key")
		return
	}
	if !now.Before(win.EndsAt) {
		utils.Error(ctx, http.StatusConflict, 40903, "cycle has ended; its counts are settled and frozen")
		return
	}

	var saved int
	if req.Count != nil {
		saved, err = cc.eng.Ledger.SetCount(&group, userID, cycleKey, *req.Count)
	} else {
		saved, err = cc.eng.Ledger.AddDelta(&group, userID, cycleKey, *req.Delta)
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to update count")
		return
	}

	utils.InvalidateByPrefix(groupCycleCacheKey(groupID, cycleKey))
	utils.Success(ctx, gin.H{
		"cycle_key": cycleKey,
		"count":     saved,
	})
}
