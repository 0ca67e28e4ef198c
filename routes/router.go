package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jobpact/jobpact/config"
	"github.com/jobpact/jobpact/controllers"
	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/middleware"
	"github.com/jobpact/jobpact/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, eng *engine.Engine) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	groupController := controllers.NewGroupController(db)
	countController := controllers.NewCountController(db, eng)
	logsController := controllers.NewLogsController(eng)
	notificationController := controllers.NewNotificationController(eng)
	chatController := controllers.NewChatController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/groups", groupController.CreateGroup)
	protected.GET("/groups", groupController.ListGroups)
	protected.GET("/groups/:id", groupController.GetGroup)
	protected.POST("/groups/join", groupController.JoinGroup)
	protected.DELETE("/groups/:id/members/me", groupController.LeaveGroup)

	protected.GET("/groups/:id/cycle", countController.GetCycle)
	protected.PUT("/groups/:id/count", countController.SetCount)

	protected.GET("/groups/:id/messages", chatController.List)
	protected.POST("/groups/:id/messages", chatController.Post)

	protected.GET("/me/application-logs", logsController.ApplicationLogs)
	protected.GET("/me/settlement-logs", logsController.SettlementLogs)

	protected.GET("/me/notifications", notificationController.List)
	protected.POST("/notifications/:id/read", notificationController.MarkRead)
	protected.POST("/notifications/dismiss", notificationController.Dismiss)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
