package engine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

func membersWithIDs(ids ...uint) []models.GroupMember {
	members := make([]models.GroupMember, 0, len(ids))
	for _, id := range ids {
		members = append(members, models.GroupMember{
			GroupID: 1,
			UserID:  id,
			User:    models.User{ID: id, Username: fmt.Sprintf("user-%d", id)},
		})
	}
	return members
}

func newTestSettler(t *testing.T, store Store, now time.Time) *SettlementEngine {
	t.Helper()
	log := zap.NewNop().Sugar()
	settler := NewSettlementEngine(store, NewCycleCalculator(newYorkLocation(t)), NewNotifier(store, log), log)
	settler.clock = func() time.Time { return now }
	return settler
}

func settlementsFor(t *testing.T, store Store, userID uint) []models.SettlementLog {
	t.Helper()
	rows, err := store.SettlementLogsByUser(userID, 0)
	require.NoError(t, err)
	return rows
}

func TestSettlementRefundsEveryoneWhenNobodyQualifies(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc) // goal 10, stake 500
	members := membersWithIDs(1, 2, 3)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 4)
	require.NoError(t, err)
	_, err = ledger.SetCount(group, 2, "weekly-2026-02-09", 7)
	require.NoError(t, err)

	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))

	for _, id := range []uint{1, 2, 3} {
		rows := settlementsFor(t, store, id)
		require.Len(t, rows, 1, "user %d", id)
		row := rows[0]
		assert.Equal(t, int64(500), row.AmountWonMinorUnits, "user %d", id)
		assert.Equal(t, int64(1500), row.PotMinorUnits)
		assert.Equal(t, 3, row.ParticipantCount)
		assert.Equal(t, 3, row.QualifiedParticipantCount)
		assert.False(t, row.MetGoalSnapshot)
	}
}

func TestSettlementPaysQualifiersWithLargestRemainder(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	group.StakeMinorUnits = 250 // pot 4 * 250 = 1000
	members := membersWithIDs(2, 10, 30, 4)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	for _, id := range []uint{2, 10, 30} {
		_, err := ledger.SetCount(group, id, "weekly-2026-02-09", 12)
		require.NoError(t, err)
	}
	_, err := ledger.SetCount(group, 4, "weekly-2026-02-09", 3)
	require.NoError(t, err)

	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))

	// 1000 over three qualifiers: ordered by decimal string "10" < "2" < "30",
	// so user 10 carries the extra minor unit.
	wants := map[uint]int64{10: 334, 2: 333, 30: 333, 4: 0}
	for id, want := range wants {
		rows := settlementsFor(t, store, id)
		require.Len(t, rows, 1, "user %d", id)
		assert.Equal(t, want, rows[0].AmountWonMinorUnits, "user %d", id)
		assert.Equal(t, 3, rows[0].QualifiedParticipantCount)
	}

	var shares []ParticipantShare
	require.NoError(t, json.Unmarshal([]byte(settlementsFor(t, store, 4)[0].ParticipantsJSON), &shares))
	assert.Len(t, shares, 4)
	var total int64
	for _, s := range shares {
		total += s.AmountWonMinorUnits
	}
	assert.Equal(t, int64(1000), total)
}

func TestSettlementRunsExactlyOnce(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	members := membersWithIDs(1, 2)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))
	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))
	require.NoError(t, settler.EnsureGroupSettlements(group, members, now.Add(48*time.Hour)))

	assert.Len(t, settlementsFor(t, store, 1), 1)
	assert.Len(t, settlementsFor(t, store, 2), 1)
}

func TestSettlementDuplicateInsertCountsAsSuccess(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	members := membersWithIDs(1, 2)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	win, err := settler.calc.ParseWindow("weekly-2026-02-09")
	require.NoError(t, err)

	// Two settles of the same window, as two racing sweeps would issue. The
	// second hits the uniqueness constraint and must report success.
	require.NoError(t, settler.settle(group, members, win))
	require.NoError(t, settler.settle(group, members, win))
	assert.Len(t, settlementsFor(t, store, 1), 1)
}

func TestSettlementNotifiesEachParticipantOnce(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	members := membersWithIDs(1, 2)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))
	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))

	for _, id := range []uint{1, 2} {
		rows, err := store.NotificationsByUser(id, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1, "user %d", id)
		assert.Equal(t, NotificationTypeSettlement, rows[0].Type)
	}
}

func TestSettlementSkipsOpenAndSoloCycles(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	now := time.Date(2026, 2, 12, 8, 0, 0, 0, loc) // inside weekly-2026-02-09
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)

	// Open window: nothing settles.
	require.NoError(t, settler.EnsureGroupSettlements(group, membersWithIDs(1, 2), now))
	assert.Empty(t, settlementsFor(t, store, 1))

	// Window over but a single member: still nothing to redistribute.
	later := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler.clock = func() time.Time { return later }
	require.NoError(t, settler.EnsureGroupSettlements(group, membersWithIDs(1), later))
	assert.Empty(t, settlementsFor(t, store, 1))
}

func TestSettlementSkipsKeysFromOlderCycleConfig(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	now := time.Date(2026, 2, 20, 8, 0, 0, 0, loc)
	settler := newTestSettler(t, store, now)

	// A count written while the group was still daily.
	require.NoError(t, store.ApplyCount(CountScope{GroupID: group.ID, UserID: 1, CycleKey: "daily-2026-02-01"}, 5, nil, 0))

	require.NoError(t, settler.EnsureGroupSettlements(group, membersWithIDs(1, 2), now))
	assert.Empty(t, settlementsFor(t, store, 1))
}

func TestSettledAtIsLocalNoonOfEndDay(t *testing.T) {
	store := NewMemStore()
	loc := newYorkLocation(t)
	group := testGroup(loc)
	members := membersWithIDs(1, 2)
	// Sweep runs days late; the recorded timestamp must not depend on that.
	now := time.Date(2026, 3, 3, 23, 45, 0, 0, loc)
	settler := newTestSettler(t, store, now)
	ledger, _ := newTestLedger(t, store)

	_, err := ledger.SetCount(group, 1, "weekly-2026-02-09", 10)
	require.NoError(t, err)
	require.NoError(t, settler.EnsureGroupSettlements(group, members, now))

	rows := settlementsFor(t, store, 1)
	require.Len(t, rows, 1)
	assert.Equal(t, time.Date(2026, 2, 16, 12, 0, 0, 0, loc), rows[0].SettledAt.In(loc))
}

func TestSplitPotSumsToPot(t *testing.T) {
	cases := []struct {
		pot        int64
		qualifiers []uint
	}{
		{1000, []uint{2, 10, 30}},
		{1, []uint{5, 6}},
		{999, []uint{1, 2, 3, 4, 5, 6, 7}},
		{0, []uint{9, 12}},
	}
	for _, tc := range cases {
		payouts := splitPot(tc.pot, tc.qualifiers)
		require.Len(t, payouts, len(tc.qualifiers))
		var total int64
		var min, max int64
		first := true
		for _, amount := range payouts {
			total += amount
			if first || amount < min {
				min = amount
			}
			if first || amount > max {
				max = amount
			}
			first = false
		}
		assert.Equal(t, tc.pot, total, "pot %d", tc.pot)
		assert.LessOrEqual(t, max-min, int64(1), "pot %d", tc.pot)
	}
}
