package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jobpact/jobpact/models"
	"github.com/jobpact/jobpact/utils"
)

const maxChatBodyLength = 2000

// ChatController serves the group chat. Message bodies are sanitized on
// write; old messages are removed by the retention sweep rather than here.
type ChatController struct {
	db *gorm.DB
}

// NewChatController creates a new controller instance.
func NewChatController(db *gorm.DB) *ChatController {
	return &ChatController{db: db}
}

// List returns a page of the group's messages, newest first.
func (c *ChatController) List(ctx *gin.Context) {
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

	member, err := loadMembership(c.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var messages []models.ChatMessage
	if err := c.db.Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load messages")
		return
	}

	utils.Success(ctx, gin.H{
		"messages":  messages,
		"page":      page,
		"page_size": pageSize,
	})
}

// Post appends a message to the group chat.
func (c *ChatController) Post(ctx *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "message body is required")
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

	member, err := loadMembership(c.db, groupID, userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load membership")
		return
	}
	if member == nil {
		utils.Error(ctx, http.StatusForbidden, 40301, "not a member of this group")
		return
	}

	body := strings.TrimSpace(utils.SanitizeText(req.Body))
	if body == "" {
		utils.Error(ctx, http.StatusBadRequest, 40040, "message body is required")
		return
	}
	if len(body) > maxChatBodyLength {
		utils.Error(ctx, http.StatusBadRequest, 40041, "message body too long")
		return
	}

	message := models.ChatMessage{
		GroupID:   groupID,
		UserID:    userID,
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := c.db.Create(&message).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to post message")
		return
	}
	c.db.Preload("User").First(&message, message.ID)

	utils.Success(ctx, gin.H{"message": message})
}
