package main

import (
	"time"

	"github.com/jobpact/jobpact/config"
	"github.com/jobpact/jobpact/engine"
	"github.com/jobpact/jobpact/models"
	"github.com/jobpact/jobpact/routes"
	"github.com/jobpact/jobpact/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	loc, err := time.LoadLocation(cfg.CycleTimeZone)
	if err != nil {
		utils.Sugar.Fatalf("invalid cycle time zone %q: %v", cfg.CycleTimeZone, err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.MemberCycleCount{},
		&models.CounterApplicationLog{},
		&models.SettlementLog{},
		&models.Notification{},
		&models.NotificationDismissal{},
		&models.ChatMessage{},
	)

	eng := engine.New(db, utils.Sugar, engine.Options{
		Location:      loc,
		ChatRetention: time.Duration(cfg.ChatRetentionDays) * 24 * time.Hour,
	})

	scheduler := engine.NewScheduler(eng.Sweeper, loc, engine.SchedulerSpecs{
		Reminder:   cfg.ReminderCron,
		Settlement: cfg.SettlementCron,
		Retention:  cfg.RetentionCron,
	}, utils.Sugar)
	if err := scheduler.Start(); err != nil {
		utils.Sugar.Fatalf("failed to start sweep scheduler: %v", err)
	}
	defer scheduler.Stop()

	r := routes.SetupRouter(db, eng)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
