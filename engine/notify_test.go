package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNotifier(store Store) *Notifier {
	n := NewNotifier(store, zap.NewNop().Sugar())
	base := time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)
	tick := 0
	n.clock = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return n
}

func TestCreateIfAbsentDeduplicates(t *testing.T) {
	store := NewMemStore()
	notifier := newTestNotifier(store)
	groupID := uint(1)
	draft := NotificationDraft{
		GroupID: &groupID,
		Type:    NotificationTypeGoalReminder,
		Title:   "Keep going",
		Message: "3 more applications to hit your goal",
	}

	created, err := notifier.CreateIfAbsent(7, "goal:1:7:weekly-2026-02-09:2026-02-12", draft)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = notifier.CreateIfAbsent(7, "goal:1:7:weekly-2026-02-09:2026-02-12", draft)
	require.NoError(t, err)
	assert.False(t, created)

	rows, err := store.NotificationsByUser(7, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, NotificationTypeGoalReminder, rows[0].Type)

	// Same key for another user is a separate notification.
	created, err = notifier.CreateIfAbsent(8, "goal:1:7:weekly-2026-02-09:2026-02-12", draft)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestDismissedKeyIsNeverRecreated(t *testing.T) {
	store := NewMemStore()
	notifier := newTestNotifier(store)
	key := "goal:1:7:weekly-2026-02-09:2026-02-13"

	require.NoError(t, notifier.Dismiss(7, key))
	require.NoError(t, notifier.Dismiss(7, key)) // repeat dismissal is a no-op

	created, err := notifier.CreateIfAbsent(7, key, NotificationDraft{
		Type:  NotificationTypeGoalReminder,
		Title: "Keep going",
	})
	require.NoError(t, err)
	assert.False(t, created)

	rows, err := store.NotificationsByUser(7, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkNotificationReadIsScopedToOwner(t *testing.T) {
	store := NewMemStore()
	notifier := newTestNotifier(store)

	created, err := notifier.CreateIfAbsent(7, "settlement:1:weekly-2026-02-09", NotificationDraft{
		Type:  NotificationTypeSettlement,
		Title: "Cycle settled",
	})
	require.NoError(t, err)
	require.True(t, created)

	rows, err := store.NotificationsByUser(7, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	id := rows[0].ID

	// Another user cannot mark it.
	require.NoError(t, store.MarkNotificationRead(8, id))
	rows, _ = store.NotificationsByUser(7, 0)
	assert.Nil(t, rows[0].ReadAt)

	require.NoError(t, store.MarkNotificationRead(7, id))
	rows, _ = store.NotificationsByUser(7, 0)
	assert.NotNil(t, rows[0].ReadAt)
}
