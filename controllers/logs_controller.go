package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/utils"
)

// LogsController serves the caller's application and settlement history.
type LogsController struct {
	eng *engine.Engine
}

// NewLogsController creates a new controller instance.
func NewLogsController(eng *engine.Engine) *LogsController {
	return &LogsController{eng: eng}
}

// ApplicationLogs returns the caller's application log rows, newest first.
func (lc *LogsController) ApplicationLogs(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	limit := parseLimit(ctx.Query("limit"), 50, 200)
	logs, err := lc.eng.Store.ApplicationLogsByUser(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load application logs")
		return
	}

	utils.Success(ctx, gin.H{"logs": logs})
}

// SettlementLogs returns the caller's settlement rows, newest first.
// Settlements of groups that only ever had one member are filtered out by the
// store: a pot of one stake returned to its owner is not worth showing.
func (lc *LogsController) SettlementLogs(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	// Outstanding cycles are settled lazily before reading, so the list is
	// complete even if no sweep has run since the last cycle boundary.
	if err := lc.eng.Sweeper.EnsureSettlementsForUser(userID, time.Now()); err != nil {
		utils.Sugar.Warnw("lazy settlement failed", "user_id", userID, "err", err)
	}

	limit := parseLimit(ctx.Query("limit"), 50, 200)
	logs, err := lc.eng.Store.SettlementLogsByUser(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load settlement logs")
		return
	}

	utils.Success(ctx, gin.H{"logs": logs})
}
