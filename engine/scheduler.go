package engine

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SchedulerSpecs holds the cron expressions driving the sweeps.
type SchedulerSpecs struct {
	Reminder   string // e.g. "5 * * * *"
	Settlement string // e.g. "15 * * * *"
	Retention  string // e.g. "10 4 * * *"
}

// Scheduler ticks the sweeps on fixed cron schedules. The sweeps carry their
// own re-entrancy guards, so an overlapping tick is skipped inside the sweep
// rather than queued here.
type Scheduler struct {
	cronEngine *cron.Cron
	sweeper    *Sweeper
	specs      SchedulerSpecs
	log        *zap.SugaredLogger
}

func NewScheduler(sweeper *Sweeper, loc *time.Location, specs SchedulerSpecs, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		sweeper:    sweeper,
		specs:      specs,
		log:        log,
	}
}

// Start registers the sweep jobs and begins ticking. A failed tick logs and
// waits for the next one; nothing here is fatal to the process.
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(time.Time) error
	}{
		{"goal_reminder", s.specs.Reminder, s.sweeper.RunGoalReminderSweep},
		{"settlement", s.specs.Settlement, s.sweeper.RunSettlementSweep},
		{"retention", s.specs.Retention, s.sweeper.RunRetentionSweep},
	}
	for _, job := range jobs {
		job := job
		if _, err := s.cronEngine.AddFunc(job.spec, func() {
			if err := job.run(time.Now()); err != nil {
				s.log.Errorw("sweep tick failed", "sweep", job.name, "err", err)
			}
		}); err != nil {
			return err
		}
	}
	s.cronEngine.Start()
	s.log.Infow("sweep scheduler started",
		"reminder", s.specs.Reminder,
		"settlement", s.specs.Settlement,
		"retention", s.specs.Retention)
	return nil
}

// Stop stops issuing new ticks and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("sweep scheduler stopped")
}
