package engine

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

// FailoverStore serves from the durable store until it observes a storage
// unavailability error, then permanently switches every operation to the
// volatile store for the remainder of the process. The degrade is one-way:
// flipping back mid-process would read counts written while volatile back
// out of existence, so recovery is a restart.
type FailoverStore struct {
	durable  Store
	volatile Store
	log      *zap.SugaredLogger

	mu       sync.Mutex
	degraded bool
}

func NewFailoverStore(durable, volatile Store, log *zap.SugaredLogger) *FailoverStore {
	return &FailoverStore{durable: durable, volatile: volatile, log: log}
}

// Degraded reports whether the store has switched to the volatile backend.
func (f *FailoverStore) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

// do runs op against the current backend. On an unavailability error from
// the durable backend it degrades and replays the operation on the volatile
// one, so the caller's write still succeeds.
func (f *FailoverStore) do(op func(Store) error) error {
	f.mu.Lock()
	degraded := f.degraded
	f.mu.Unlock()

	if degraded {
		return op(f.volatile)
	}
	err := op(f.durable)
	if err == nil || !storageUnavailable(err) {
		return err
	}
	f.degrade(err)
	return op(f.volatile)
}

func (f *FailoverStore) degrade(cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.degraded {
		return
	}
	f.degraded = true
	// Logged exactly once per process: the transition is permanent.
	f.log.Warnw("storage unavailable, degrading to volatile in-memory store for the rest of the process",
		"cause", cause)
}

// storageUnavailable classifies connectivity-level failures. Uniqueness
// violations and not-found results are normal outcomes and must not trip the
// failover.
func storageUnavailable(err error) bool {
	if err == nil || errors.Is(err, ErrDuplicate) {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"invalid connection",
		"bad connection",
		"broken pipe",
		"dial tcp",
		"i/o timeout",
		"closed network connection",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func (f *FailoverStore) CycleCount(scope CountScope) (n int, err error) {
	err = f.do(func(s Store) error {
		var e error
		n, e = s.CycleCount(scope)
		return e
	})
	return
}

func (f *FailoverStore) ApplyCount(scope CountScope, target int, appended []models.CounterApplicationLog, removed int) error {
	return f.do(func(s Store) error {
		return s.ApplyCount(scope, target, appended, removed)
	})
}

func (f *FailoverStore) CycleKeysForGroup(groupID uint) (keys []string, err error) {
	err = f.do(func(s Store) error {
		var e error
		keys, e = s.CycleKeysForGroup(groupID)
		return e
	})
	return
}

func (f *FailoverStore) CountsForCycle(groupID uint, cycleKey string) (counts map[uint]int, err error) {
	err = f.do(func(s Store) error {
		var e error
		counts, e = s.CountsForCycle(groupID, cycleKey)
		return e
	})
	return
}

func (f *FailoverStore) ApplicationLogsByUser(userID uint, limit int) (rows []models.CounterApplicationLog, err error) {
	err = f.do(func(s Store) error {
		var e error
		rows, e = s.ApplicationLogsByUser(userID, limit)
		return e
	})
	return
}

func (f *FailoverStore) SettlementExists(groupID uint, cycleKey string) (exists bool, err error) {
	err = f.do(func(s Store) error {
		var e error
		exists, e = s.SettlementExists(groupID, cycleKey)
		return e
	})
	return
}

func (f *FailoverStore) InsertSettlementLogs(entries []models.SettlementLog) error {
	return f.do(func(s Store) error {
		return s.InsertSettlementLogs(entries)
	})
}

func (f *FailoverStore) SettlementLogsByUser(userID uint, limit int) (rows []models.SettlementLog, err error) {
	err = f.do(func(s Store) error {
		var e error
		rows, e = s.SettlementLogsByUser(userID, limit)
		return e
	})
	return
}

func (f *FailoverStore) InsertNotification(n *models.Notification) error {
	return f.do(func(s Store) error {
		return s.InsertNotification(n)
	})
}

func (f *FailoverStore) NotificationsByUser(userID uint, limit int) (rows []models.Notification, err error) {
	err = f.do(func(s Store) error {
		var e error
		rows, e = s.NotificationsByUser(userID, limit)
		return e
	})
	return
}

func (f *FailoverStore) MarkNotificationRead(userID, notificationID uint) error {
	return f.do(func(s Store) error {
		return s.MarkNotificationRead(userID, notificationID)
	})
}

func (f *FailoverStore) DismissalExists(userID uint, dedupeKey string) (exists bool, err error) {
	err = f.do(func(s Store) error {
		var e error
		exists, e = s.DismissalExists(userID, dedupeKey)
		return e
	})
	return
}

func (f *FailoverStore) SaveDismissal(d *models.NotificationDismissal) error {
	return f.do(func(s Store) error {
		return s.SaveDismissal(d)
	})
}
