package engine

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

// Notification types emitted by the engine.
const (
	NotificationTypeGoalReminder = "goal_reminder"
	NotificationTypeSettlement   = "settlement"
)

// NotificationDraft is the content of a notification before it gets an ID
// and timestamps.
type NotificationDraft struct {
	GroupID *uint
	Type    string
	Title   string
	Message string
	Payload string
}

// Notifier creates at-most-one notification per (user, dedupe key). A
// dismissed key is never recreated, and losing an insert race to another
// sweep counts as success.
type Notifier struct {
	store Store
	clock func() time.Time
	log   *zap.SugaredLogger
}

func NewNotifier(store Store, log *zap.SugaredLogger) *Notifier {
	return &Notifier{store: store, clock: time.Now, log: log}
}

// CreateIfAbsent inserts the notification unless the user already has or
// dismissed one with the same dedupe key. Returns whether a new row was
// created.
func (n *Notifier) CreateIfAbsent(userID uint, dedupeKey string, draft NotificationDraft) (bool, error) {
	dismissed, err := n.store.DismissalExists(userID, dedupeKey)
	if err != nil {
		return false, err
	}
	if dismissed {
		return false, nil
	}

	key := dedupeKey
	row := &models.Notification{
		UserID:    userID,
		GroupID:   draft.GroupID,
		Type:      draft.Type,
		Title:     draft.Title,
		Message:   draft.Message,
		Payload:   draft.Payload,
		DedupeKey: &key,
		CreatedAt: n.clock(),
	}
	if err := n.store.InsertNotification(row); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Dismiss records that the user dismissed the dedupe key, so later sweeps
// will not recreate the notification. Dismissing twice is a no-op.
func (n *Notifier) Dismiss(userID uint, dedupeKey string) error {
	err := n.store.SaveDismissal(&models.NotificationDismissal{
		UserID:      userID,
		DedupeKey:   dedupeKey,
		DismissedAt: n.clock(),
	})
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}
