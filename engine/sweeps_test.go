package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

type stubGroupSource struct {
	groups  []models.Group
	members map[uint][]models.GroupMember

	chatDeleted int64
	chatCutoff  time.Time
}

func (s *stubGroupSource) AllGroups() ([]models.Group, error) { return s.groups, nil }

func (s *stubGroupSource) GroupsForUser(userID uint) ([]models.Group, error) {
	var out []models.Group
	for _, g := range s.groups {
		for _, m := range s.members[g.ID] {
			if m.UserID == userID {
				out = append(out, g)
				break
			}
		}
	}
	return out, nil
}

func (s *stubGroupSource) MembersOf(groupID uint) ([]models.GroupMember, error) {
	return s.members[groupID], nil
}

func (s *stubGroupSource) DeleteChatBefore(cutoff time.Time) (int64, error) {
	s.chatCutoff = cutoff
	return s.chatDeleted, nil
}

func newTestSweeper(t *testing.T, store Store, src GroupSource, retention time.Duration) *Sweeper {
	t.Helper()
	calc := NewCycleCalculator(newYorkLocation(t))
	log := zap.NewNop().Sugar()
	notifier := NewNotifier(store, log)
	return NewSweeper(SweeperDeps{
		Groups:        src,
		Store:         store,
		Calc:          calc,
		Settler:       NewSettlementEngine(store, calc, notifier, log),
		Notifier:      notifier,
		Log:           log,
		ChatRetention: retention,
	})
}

func TestGoalReminderSweepIsOncePerMemberPerDay(t *testing.T) {
	loc := newYorkLocation(t)
	store := NewMemStore()
	group := testGroup(loc) // weekly, goal 10
	src := &stubGroupSource{
		groups:  []models.Group{*group},
		members: map[uint][]models.GroupMember{group.ID: membersWithIDs(1, 2)},
	}
	sweeper := newTestSweeper(t, store, src, 0)
	ledger, _ := newTestLedger(t, store)

	// Member 2 already met the goal and must not be reminded.
	_, err := ledger.SetCount(group, 2, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	morning := time.Date(2026, 2, 12, 9, 0, 0, 0, loc)
	require.NoError(t, sweeper.RunGoalReminderSweep(morning))
	require.NoError(t, sweeper.RunGoalReminderSweep(morning.Add(4*time.Hour)))

	rows, err := store.NotificationsByUser(1, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = store.NotificationsByUser(2, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The next local day gets a fresh reminder for a multi-day cycle.
	require.NoError(t, sweeper.RunGoalReminderSweep(morning.AddDate(0, 0, 1)))
	rows, err = store.NotificationsByUser(1, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGoalReminderSkipsGroupsWithoutGoal(t *testing.T) {
	loc := newYorkLocation(t)
	store := NewMemStore()
	group := testGroup(loc)
	group.ApplicationGoal = 0
	src := &stubGroupSource{
		groups:  []models.Group{*group},
		members: map[uint][]models.GroupMember{group.ID: membersWithIDs(1, 2)},
	}
	sweeper := newTestSweeper(t, store, src, 0)

	require.NoError(t, sweeper.RunGoalReminderSweep(time.Date(2026, 2, 12, 9, 0, 0, 0, loc)))
	rows, err := store.NotificationsByUser(1, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEnsureGoalRemindersForUserOnlyTouchesThatUser(t *testing.T) {
	loc := newYorkLocation(t)
	store := NewMemStore()
	group := testGroup(loc)
	src := &stubGroupSource{
		groups:  []models.Group{*group},
		members: map[uint][]models.GroupMember{group.ID: membersWithIDs(1, 2)},
	}
	sweeper := newTestSweeper(t, store, src, 0)

	now := time.Date(2026, 2, 12, 9, 0, 0, 0, loc)
	require.NoError(t, sweeper.EnsureGoalRemindersForUser(1, now))

	rows, err := store.NotificationsByUser(1, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	rows, err = store.NotificationsByUser(2, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	// The full sweep later does not duplicate the lazy reminder.
	require.NoError(t, sweeper.RunGoalReminderSweep(now.Add(time.Hour)))
	rows, err = store.NotificationsByUser(1, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSettlementSweepSettlesFinishedCycles(t *testing.T) {
	loc := newYorkLocation(t)
	store := NewMemStore()
	group := testGroup(loc)
	src := &stubGroupSource{
		groups:  []models.Group{*group},
		members: map[uint][]models.GroupMember{group.ID: membersWithIDs(1, 2)},
	}
	sweeper := newTestSweeper(t, store, src, 0)
	sweeper.settler.clock = func() time.Time { return time.Date(2026, 2, 20, 8, 0, 0, 0, loc) }
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	require.NoError(t, sweeper.RunSettlementSweep(time.Date(2026, 2, 20, 8, 0, 0, 0, loc)))

	rows, err := store.SettlementLogsByUser(1, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRetentionSweepUsesConfiguredHorizon(t *testing.T) {
	loc := newYorkLocation(t)
	store := NewMemStore()
	src := &stubGroupSource{chatDeleted: 12}
	sweeper := newTestSweeper(t, store, src, 90*24*time.Hour)

	now := time.Date(2026, 2, 12, 4, 10, 0, 0, loc)
	require.NoError(t, sweeper.RunRetentionSweep(now))
	assert.Equal(t, now.Add(-90*24*time.Hour), src.chatCutoff)

	// Retention disabled: nothing is deleted.
	off := newTestSweeper(t, store, src, 0)
	src.chatCutoff = time.Time{}
	require.NoError(t, off.RunRetentionSweep(now))
	assert.True(t, src.chatCutoff.IsZero())
}
