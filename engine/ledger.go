package engine

import (
	"fmt"
	"time"

	"github.com/jobpact/jobpact/models"
)

// Ledger is the only writer of member cycle counts. Every change to a count
// is mirrored in the application log: one appended row per unit of increase
// (stamped with the group's configuration at that moment), the most recent
// rows removed on decrease.
type Ledger struct {
	store Store
	calc  *CycleCalculator
	clock func() time.Time
}

func NewLedger(store Store, calc *CycleCalculator) *Ledger {
	return &Ledger{store: store, calc: calc, clock: time.Now}
}

// SetCount sets the member's count for the cycle to target (clamped at 0)
// and returns the saved value. The cycle key must parse to a window of the
// group's configured cycle kind; snapshots are taken from the group row as
// it is now, not as it was when the cycle started.
func (l *Ledger) SetCount(group *models.Group, userID uint, cycleKey string, target int) (int, error) {
	if target < 0 {
		target = 0
	}
	cfg, err := ConfigFor(group)
	if err != nil {
		return 0, err
	}
	win, err := l.calc.ParseWindow(cycleKey)
	if err != nil {
		return 0, err
	}
	if win.Kind != cfg.Kind {
		return 0, fmt.Errorf("cycle key %q does not match group cycle %q", cycleKey, cfg.Kind)
	}

	scope := CountScope{GroupID: group.ID, UserID: userID, CycleKey: cycleKey}
	current, err := l.store.CycleCount(scope)
	if err != nil {
		return 0, err
	}
	if target == current {
		return current, nil
	}

	var appended []models.CounterApplicationLog
	removed := 0
	if target > current {
		now := l.clock()
		appended = make([]models.CounterApplicationLog, 0, target-current)
		for idx := current + 1; idx <= target; idx++ {
			appended = append(appended, models.CounterApplicationLog{
				UserID:                  userID,
				GroupID:                 group.ID,
				GroupNameSnapshot:       group.Name,
				GoalCycleSnapshot:       group.GoalCycle,
				GoalStartDaySnapshot:    group.GoalStartDay,
				ApplicationGoalSnapshot: group.ApplicationGoal,
				StakeMinorUnitsSnapshot: group.StakeMinorUnits,
				CycleKey:                cycleKey,
				CycleStartsAt:           win.StartsAt,
				CycleEndsAt:             win.EndsAt,
				ApplicationIndex:        idx,
				LoggedAt:                now,
			})
		}
	} else {
		removed = current - target
	}

	if err := l.store.ApplyCount(scope, target, appended, removed); err != nil {
		return 0, err
	}
	return target, nil
}

// AddDelta adjusts the member's count by delta, floored at 0, and returns
// the saved value.
func (l *Ledger) AddDelta(group *models.Group, userID uint, cycleKey string, delta int) (int, error) {
	scope := CountScope{GroupID: group.ID, UserID: userID, CycleKey: cycleKey}
	current, err := l.store.CycleCount(scope)
	if err != nil {
		return 0, err
	}
	return l.SetCount(group, userID, cycleKey, current+delta)
}

// Count reads the member's current count for the cycle.
func (l *Ledger) Count(groupID, userID uint, cycleKey string) (int, error) {
	return l.store.CycleCount(CountScope{GroupID: groupID, UserID: userID, CycleKey: cycleKey})
}
