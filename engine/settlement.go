package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jobpact/jobpact/models"
)

// ParticipantShare is one member's line in a settlement, serialized into
// every SettlementLog row of the cycle for audit and display.
type ParticipantShare struct {
	UserID              uint   `json:"user_id"`
	Username            string `json:"username"`
	ApplicationsCount   int    `json:"applications_count"`
	MetGoal             bool   `json:"met_goal"`
	AmountWonMinorUnits int64  `json:"amount_won_minor_units"`
}

// SettlementEngine settles finished cycles exactly once per (group, cycle).
// The existence check is only a fast path; the real exactly-once mechanism
// is the unique index on settlement rows, with a duplicate insert treated as
// another sweep having won the race.
type SettlementEngine struct {
	store    Store
	calc     *CycleCalculator
	notifier *Notifier
	clock    func() time.Time
	log      *zap.SugaredLogger
}

func NewSettlementEngine(store Store, calc *CycleCalculator, notifier *Notifier, log *zap.SugaredLogger) *SettlementEngine {
	return &SettlementEngine{store: store, calc: calc, notifier: notifier, clock: time.Now, log: log}
}

// EnsureGroupSettlements settles every cycle of the group that has counter
// activity, has ended by now, and has not been settled yet. Groups with a
// single member are skipped: there is nobody to redistribute to. Safe to
// call redundantly and concurrently.
func (e *SettlementEngine) EnsureGroupSettlements(group *models.Group, members []models.GroupMember, now time.Time) error {
	if len(members) <= 1 {
		return nil
	}
	cfg, err := ConfigFor(group)
	if err != nil {
		return err
	}

	keys, err := e.store.CycleKeysForGroup(group.ID)
	if err != nil {
		return err
	}
	for _, key := range keys {
		win, err := e.calc.ParseWindow(key)
		if err != nil || win.Kind != cfg.Kind {
			// Keys written under an older cycle configuration; they no
			// longer describe a settleable window for this group.
			e.log.Debugw("skipping stale cycle key", "group_id", group.ID, "cycle_key", key)
			continue
		}
		if win.EndsAt.After(now) {
			continue
		}
		exists, err := e.store.SettlementExists(group.ID, key)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := e.settle(group, members, win); err != nil {
			return err
		}
	}
	return nil
}

// settle computes and records the settlement for one finished window.
func (e *SettlementEngine) settle(group *models.Group, members []models.GroupMember, win CycleWindow) error {
	if win.EndsAt.After(e.clock()) {
		return fmt.Errorf("cycle %s has not ended yet", win.Key)
	}

	counts, err := e.store.CountsForCycle(group.ID, win.Key)
	if err != nil {
		return err
	}

	goal := group.ApplicationGoal
	var qualifiers []uint
	for _, m := range members {
		if goal <= 0 || counts[m.UserID] >= goal {
			qualifiers = append(qualifiers, m.UserID)
		}
	}
	// Nobody met the goal: refund everyone equally instead of burning the pot.
	if len(qualifiers) == 0 {
		for _, m := range members {
			qualifiers = append(qualifiers, m.UserID)
		}
	}

	pot := int64(len(members)) * group.StakeMinorUnits
	payouts := splitPot(pot, qualifiers)

	shares := make([]ParticipantShare, 0, len(members))
	for _, m := range members {
		shares = append(shares, ParticipantShare{
			UserID:              m.UserID,
			Username:            m.User.Username,
			ApplicationsCount:   counts[m.UserID],
			MetGoal:             goal <= 0 || counts[m.UserID] >= goal,
			AmountWonMinorUnits: payouts[m.UserID],
		})
	}
	participantsJSON, err := json.Marshal(shares)
	if err != nil {
		return err
	}

	settledAt := e.settledAt(win)
	entries := make([]models.SettlementLog, 0, len(members))
	for _, share := range shares {
		entries = append(entries, models.SettlementLog{
			GroupID:                   group.ID,
			CycleKey:                  win.Key,
			UserID:                    share.UserID,
			GroupNameSnapshot:         group.Name,
			GoalCycleSnapshot:         group.GoalCycle,
			GoalStartDaySnapshot:      group.GoalStartDay,
			ApplicationGoalSnapshot:   group.ApplicationGoal,
			StakeMinorUnitsSnapshot:   group.StakeMinorUnits,
			CycleStartsAt:             win.StartsAt,
			CycleEndsAt:               win.EndsAt,
			SettledAt:                 settledAt,
			ParticipantCount:          len(members),
			QualifiedParticipantCount: len(qualifiers),
			PotMinorUnits:             pot,
			AmountWonMinorUnits:       share.AmountWonMinorUnits,
			ApplicationsCountSnapshot: share.ApplicationsCount,
			MetGoalSnapshot:           share.MetGoal,
			ParticipantsJSON:          string(participantsJSON),
		})
	}

	if err := e.store.InsertSettlementLogs(entries); err != nil {
		if errors.Is(err, ErrDuplicate) {
			// A concurrent sweep settled the cycle between our existence
			// check and the insert. Its rows are just as valid as ours.
			e.log.Debugw("cycle already settled by concurrent sweep",
				"group_id", group.ID, "cycle_key", win.Key)
			return nil
		}
		return err
	}

	e.log.Infow("cycle settled",
		"group_id", group.ID,
		"cycle_key", win.Key,
		"participants", len(members),
		"qualified", len(qualifiers),
		"pot_minor_units", pot)

	e.notifyMembers(group, win, shares)
	return nil
}

// notifyMembers tells each participant what the settlement paid them. The
// dedupe key covers (group, cycle), so the members who lost the insert race
// are still notified by whichever sweep won it. Notification failures do not
// unwind the settlement.
func (e *SettlementEngine) notifyMembers(group *models.Group, win CycleWindow, shares []ParticipantShare) {
	if e.notifier == nil {
		return
	}
	for _, share := range shares {
		groupID := group.ID
		message := fmt.Sprintf("The pot for %s settled; you won nothing this time.", win.Label)
		if share.AmountWonMinorUnits > 0 {
			message = fmt.Sprintf("The pot for %s settled; %d minor units are yours.", win.Label, share.AmountWonMinorUnits)
		}
		key := fmt.Sprintf("settlement:%d:%s", group.ID, win.Key)
		if _, err := e.notifier.CreateIfAbsent(share.UserID, key, NotificationDraft{
			GroupID: &groupID,
			Type:    NotificationTypeSettlement,
			Title:   fmt.Sprintf("%s settled", group.Name),
			Message: message,
		}); err != nil {
			e.log.Warnw("settlement notification failed",
				"group_id", group.ID, "cycle_key", win.Key, "user_id", share.UserID, "err", err)
		}
	}
}

// settledAt is local noon of the window's end calendar day. A sweep that
// runs days late records the same timestamp as one that ran on time.
func (e *SettlementEngine) settledAt(win CycleWindow) time.Time {
	p := ZonedParts(win.EndsAt, e.calc.Location())
	p.Hour, p.Minute, p.Second = 12, 0, 0
	return ZonedTime(p, e.calc.Location())
}

// splitPot divides pot across qualifiers with largest-remainder rounding so
// the payouts sum to the pot exactly. Qualifiers are ordered by the decimal
// string of their user ID; the first pot%n of them receive the extra minor
// unit, which keeps the division deterministic for replay.
func splitPot(pot int64, qualifiers []uint) map[uint]int64 {
	ordered := make([]uint, len(qualifiers))
	copy(ordered, qualifiers)
	sort.Slice(ordered, func(i, j int) bool {
		return strconv.FormatUint(uint64(ordered[i]), 10) < strconv.FormatUint(uint64(ordered[j]), 10)
	})

	n := int64(len(ordered))
	payouts := make(map[uint]int64, len(ordered))
	if n == 0 {
		return payouts
	}
	base := pot / n
	remainder := pot % n
	for i, userID := range ordered {
		amount := base
		if int64(i) < remainder {
			amount++
		}
		payouts[userID] = amount
	}
	return payouts
}
