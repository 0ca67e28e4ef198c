package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/utils"
)

// NotificationController serves in-app notifications. Listing first runs the
// lazy per-user ensure passes, so a user who opens the app right after a
// cycle boundary sees their reminder and settlement notifications without
// waiting for the next background sweep.
type NotificationController struct {
	eng *engine.Engine
}

// NewNotificationController creates a new controller instance.
func NewNotificationController(eng *engine.Engine) *NotificationController {
	return &NotificationController{eng: eng}
}

// List returns the caller's notifications, newest first.
func (nc *NotificationController) List(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	now := time.Now()
	if err := nc.eng.Sweeper.EnsureSettlementsForUser(userID, now); err != nil {
		utils.Sugar.Warnw("lazy settlement failed", "user_id", userID, "err", err)
	}
	if err := nc.eng.Sweeper.EnsureGoalRemindersForUser(userID, now); err != nil {
		utils.Sugar.Warnw("lazy goal reminder failed", "user_id", userID, "err", err)
	}

	limit := parseLimit(ctx.Query("limit"), 50, 200)
	notifications, err := nc.eng.Store.NotificationsByUser(userID, limit)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load notifications")
		return
	}

	utils.Success(ctx, gin.H{"notifications": notifications})
}

// MarkRead marks one of the caller's notifications as read.
func (nc *NotificationController) MarkRead(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	notificationID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid notification id")
		return
	}

	if err := nc.eng.Store.MarkNotificationRead(userID, notificationID); err != nil {
		utils.Error(ctx, http.StatusNotFound, 40404, "notification not found")
		return
	}

	utils.Success(ctx, gin.H{"message": "marked read"})
}

// Dismiss records a dismissal for a dedupe key so sweeps never recreate the
// notification. Dismissing an already dismissed key succeeds.
func (nc *NotificationController) Dismiss(ctx *gin.Context) {
	var req struct {
		DedupeKey string `json:"dedupe_key" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "dedupe_key is required")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	key := strings.TrimSpace(req.DedupeKey)
	if key == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "dedupe_key is required")
		return
	}

	if err := nc.eng.Notifier.Dismiss(userID, key); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to dismiss notification")
		return
	}

	utils.Success(ctx, gin.H{"message": "dismissed"})
}
