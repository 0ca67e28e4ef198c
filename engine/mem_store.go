package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/jobpact/jobpact/models"
)

// MemStore is the volatile Store. It backs the engine when the database is
// unreachable and the tests. Contents live for the process only; durability
// is explicitly traded for availability of writes.
type MemStore struct {
	mu          sync.Mutex
	nextID      uint
	counts      map[CountScope]int
	appLogs     []models.CounterApplicationLog
	settlements []models.SettlementLog
	settledKeys map[settlementKey]struct{}
	notifs      []models.Notification
	notifKeys   map[dedupeScope]struct{}
	dismissals  map[dedupeScope]time.Time
}

type settlementKey struct {
	groupID  uint
	cycleKey string
	userID   uint
}

type dedupeScope struct {
	userID    uint
	dedupeKey string
}

func NewMemStore() *MemStore {
	return &MemStore{
		counts:      make(map[CountScope]int),
		settledKeys: make(map[settlementKey]struct{}),
		notifKeys:   make(map[dedupeScope]struct{}),
		dismissals:  make(map[dedupeScope]time.Time),
	}
}

func (s *MemStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *MemStore) CycleCount(scope CountScope) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[scope], nil
}

func (s *MemStore) ApplyCount(scope CountScope, target int, appended []models.CounterApplicationLog, removed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[scope] = target
	for _, entry := range appended {
		entry.ID = s.id()
		s.appLogs = append(s.appLogs, entry)
	}
	for ; removed > 0; removed-- {
		idx := s.newestLogIndex(scope)
		if idx < 0 {
			break
		}
		s.appLogs = append(s.appLogs[:idx], s.appLogs[idx+1:]...)
	}
	return nil
}

// newestLogIndex finds the most recently logged row for the scope, ties
// broken by largest application index.
func (s *MemStore) newestLogIndex(scope CountScope) int {
	best := -1
	for i, e := range s.appLogs {
		if e.GroupID != scope.GroupID || e.UserID != scope.UserID || e.CycleKey != scope.CycleKey {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		b := s.appLogs[best]
		if e.LoggedAt.After(b.LoggedAt) ||
			(e.LoggedAt.Equal(b.LoggedAt) && e.ApplicationIndex > b.ApplicationIndex) {
			best = i
		}
	}
	return best
}

func (s *MemStore) CycleKeysForGroup(groupID uint) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var keys []string
	for scope := range s.counts {
		if scope.GroupID != groupID {
			continue
		}
		if _, ok := seen[scope.CycleKey]; ok {
			continue
		}
		seen[scope.CycleKey] = struct{}{}
		keys = append(keys, scope.CycleKey)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *MemStore) CountsForCycle(groupID uint, cycleKey string) (map[uint]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[uint]int)
	for scope, n := range s.counts {
		if scope.GroupID == groupID && scope.CycleKey == cycleKey {
			counts[scope.UserID] = n
		}
	}
	return counts, nil
}

func (s *MemStore) ApplicationLogsByUser(userID uint, limit int) ([]models.CounterApplicationLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.CounterApplicationLog
	for _, e := range s.appLogs {
		if e.UserID == userID {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].LoggedAt.Equal(rows[j].LoggedAt) {
			return rows[i].LoggedAt.After(rows[j].LoggedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemStore) SettlementExists(groupID uint, cycleKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.settledKeys {
		if k.groupID == groupID && k.cycleKey == cycleKey {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemStore) InsertSettlementLogs(entries []models.SettlementLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		k := settlementKey{groupID: e.GroupID, cycleKey: e.CycleKey, userID: e.UserID}
		if _, exists := s.settledKeys[k]; exists {
			return ErrDuplicate
		}
	}
	for _, e := range entries {
		e.ID = s.id()
		s.settledKeys[settlementKey{groupID: e.GroupID, cycleKey: e.CycleKey, userID: e.UserID}] = struct{}{}
		s.settlements = append(s.settlements, e)
	}
	return nil
}

func (s *MemStore) SettlementLogsByUser(userID uint, limit int) ([]models.SettlementLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.SettlementLog
	for _, e := range s.settlements {
		if e.UserID == userID && e.ParticipantCount >= 2 {
			rows = append(rows, e)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].SettledAt.Equal(rows[j].SettledAt) {
			return rows[i].SettledAt.After(rows[j].SettledAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemStore) InsertNotification(n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupeKey != nil {
		k := dedupeScope{userID: n.UserID, dedupeKey: *n.DedupeKey}
		if _, exists := s.notifKeys[k]; exists {
			return ErrDuplicate
		}
		s.notifKeys[k] = struct{}{}
	}
	n.ID = s.id()
	s.notifs = append(s.notifs, *n)
	return nil
}

func (s *MemStore) NotificationsByUser(userID uint, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.Notification
	for _, n := range s.notifs {
		if n.UserID == userID {
			rows = append(rows, n)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *MemStore) MarkNotificationRead(userID, notificationID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifs {
		if s.notifs[i].ID == notificationID && s.notifs[i].UserID == userID && s.notifs[i].ReadAt == nil {
			now := time.Now()
			s.notifs[i].ReadAt = &now
		}
	}
	return nil
}

func (s *MemStore) DismissalExists(userID uint, dedupeKey string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dismissals[dedupeScope{userID: userID, dedupeKey: dedupeKey}]
	return ok, nil
}

func (s *MemStore) SaveDismissal(d *models.NotificationDismissal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := dedupeScope{userID: d.UserID, dedupeKey: d.DedupeKey}
	if _, exists := s.dismissals[k]; exists {
		return ErrDuplicate
	}
	when := d.DismissedAt
	if when.IsZero() {
		when = time.Now()
	}
	s.dismissals[k] = when
	return nil
}
