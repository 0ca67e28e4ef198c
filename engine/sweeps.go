package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

// Sweeper runs the recurring maintenance passes: goal reminders, settlement
// of finished cycles, and chat retention. Each full sweep is guarded by a
// re-entrancy flag so a tick that fires while the previous one is still
// running skips instead of stacking. The per-user ensure variants are cheap
// and unguarded; request handlers call them lazily.
type Sweeper struct {
	groups   GroupSource
	store    Store
	calc     *CycleCalculator
	settler  *SettlementEngine
	notifier *Notifier
	log      *zap.SugaredLogger

	chatRetention time.Duration

	reminderGuard   sync.Mutex
	settlementGuard sync.Mutex
	retentionGuard  sync.Mutex
}

// SweeperDeps bundles the collaborators a Sweeper needs.
type SweeperDeps struct {
	Groups        GroupSource
	Store         Store
	Calc          *CycleCalculator
	Settler       *SettlementEngine
	Notifier      *Notifier
	Log           *zap.SugaredLogger
	ChatRetention time.Duration
}

func NewSweeper(deps SweeperDeps) *Sweeper {
	return &Sweeper{
		groups:        deps.Groups,
		store:         deps.Store,
		calc:          deps.Calc,
		settler:       deps.Settler,
		notifier:      deps.Notifier,
		log:           deps.Log,
		chatRetention: deps.ChatRetention,
	}
}

// RunGoalReminderSweep creates missing goal reminders for every member of
// every group. Idempotent: the dedupe key caps reminders at one per member
// per group per cycle per local day.
func (s *Sweeper) RunGoalReminderSweep(now time.Time) error {
	if !s.reminderGuard.TryLock() {
		s.log.Debug("goal reminder sweep already running, skipping tick")
		return nil
	}
	defer s.reminderGuard.Unlock()

	groups, err := s.groups.AllGroups()
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for i := range groups {
		if err := s.remindGroup(&groups[i], 0, now); err != nil {
			s.log.Warnw("goal reminder sweep failed for group", "group_id", groups[i].ID, "err", err)
		}
	}
	return nil
}

// EnsureGoalRemindersForUser is the lazy per-user variant, invoked when the
// user fetches their notification list.
func (s *Sweeper) EnsureGoalRemindersForUser(userID uint, now time.Time) error {
	groups, err := s.groups.GroupsForUser(userID)
	if err != nil {
		return fmt.Errorf("list groups for user %d: %w", userID, err)
	}
	for i := range groups {
		if err := s.remindGroup(&groups[i], userID, now); err != nil {
			return err
		}
	}
	return nil
}

// remindGroup creates reminders for one group, optionally restricted to a
// single member (onlyUser != 0).
func (s *Sweeper) remindGroup(group *models.Group, onlyUser uint, now time.Time) error {
	if group.ApplicationGoal <= 0 {
		return nil
	}
	cfg, err := ConfigFor(group)
	if err != nil {
		return err
	}
	win := s.calc.Window(cfg, now)

	members, err := s.groups.MembersOf(group.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if onlyUser != 0 && m.UserID != onlyUser {
			continue
		}
		count, err := s.store.CycleCount(CountScope{GroupID: group.ID, UserID: m.UserID, CycleKey: win.Key})
		if err != nil {
			return err
		}
		if count >= group.ApplicationGoal {
			continue
		}

		groupID := group.ID
		remaining := group.ApplicationGoal - count
		_, err = s.notifier.CreateIfAbsent(m.UserID, reminderDedupeKey(group.ID, m.UserID, win, now, s.calc.Location()), NotificationDraft{
			GroupID: &groupID,
			Type:    NotificationTypeGoalReminder,
			Title:   fmt.Sprintf("Keep going in %s", group.Name),
			Message: fmt.Sprintf("%d more application(s) to hit your goal of %d for %s.", remaining, group.ApplicationGoal, win.Label),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// reminderDedupeKey encodes group, user and cycle; multi-day cycles also
// encode the local day so at most one reminder fires per day.
func reminderDedupeKey(groupID, userID uint, win CycleWindow, now time.Time, loc *time.Location) string {
	key := fmt.Sprintf("goal:%d:%d:%s", groupID, userID, win.Key)
	if win.Kind != CycleDaily {
		key += ":" + now.In(loc).Format(cycleKeyDateLayout)
	}
	return key
}

// RunSettlementSweep settles every finished, unsettled cycle of every group.
func (s *Sweeper) RunSettlementSweep(now time.Time) error {
	if !s.settlementGuard.TryLock() {
		s.log.Debug("settlement sweep already running, skipping tick")
		return nil
	}
	defer s.settlementGuard.Unlock()

	groups, err := s.groups.AllGroups()
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	for i := range groups {
		if err := s.settleGroup(&groups[i], now); err != nil {
			s.log.Warnw("settlement sweep failed for group", "group_id", groups[i].ID, "err", err)
		}
	}
	return nil
}

// EnsureSettlementsForUser settles outstanding cycles in the user's groups.
func (s *Sweeper) EnsureSettlementsForUser(userID uint, now time.Time) error {
	groups, err := s.groups.GroupsForUser(userID)
	if err != nil {
		return fmt.Errorf("list groups for user %d: %w", userID, err)
	}
	for i := range groups {
		if err := s.settleGroup(&groups[i], now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweeper) settleGroup(group *models.Group, now time.Time) error {
	members, err := s.groups.MembersOf(group.ID)
	if err != nil {
		return err
	}
	return s.settler.EnsureGroupSettlements(group, members, now)
}

// RunRetentionSweep deletes chat messages older than the retention horizon.
func (s *Sweeper) RunRetentionSweep(now time.Time) error {
	if !s.retentionGuard.TryLock() {
		s.log.Debug("retention sweep already running, skipping tick")
		return nil
	}
	defer s.retentionGuard.Unlock()

	if s.chatRetention <= 0 {
		return nil
	}
	cutoff := now.Add(-s.chatRetention)
	deleted, err := s.groups.DeleteChatBefore(cutoff)
	if err != nil {
		return fmt.Errorf("delete chat before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if deleted > 0 {
		s.log.Infow("retention sweep removed chat messages", "deleted", deleted)
	}
	return nil
}
