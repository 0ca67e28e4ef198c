package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobpact/jobpact/models"
)

// CycleKind enumerates supported goal cycles.
type CycleKind string

const (
	CycleDaily    CycleKind = "daily"
	CycleWeekly   CycleKind = "weekly"
	CycleBiweekly CycleKind = "biweekly"
)

// cycleKeyDateLayout is the local start date encoded into a cycle key.
const cycleKeyDateLayout = "2006-01-02"

// ParseCycleKind validates a stored goal cycle value.
func ParseCycleKind(s string) (CycleKind, error) {
	switch CycleKind(s) {
	case CycleDaily, CycleWeekly, CycleBiweekly:
		return CycleKind(s), nil
	}
	return "", fmt.Errorf("unknown goal cycle %q", s)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday validates a stored start-of-week day.
func ParseWeekday(s string) (time.Weekday, error) {
	if d, ok := weekdayNames[strings.ToLower(s)]; ok {
		return d, nil
	}
	return time.Sunday, fmt.Errorf("unknown start day %q", s)
}

// CycleConfig is the snapshot of a group's cycle settings the engine
// computes windows from.
type CycleConfig struct {
	GroupID    uint
	Kind       CycleKind
	StartDay   time.Weekday // ignored for daily cycles
	Anchor     time.Time    // group creation instant; biweekly parity anchor
	Goal       int
	StakeMinor int64
}

// ConfigFor extracts a validated CycleConfig from a group row. Invalid
// cycle settings are a caller bug: groups are validated at the HTTP
// boundary before they are ever persisted.
func ConfigFor(g *models.Group) (CycleConfig, error) {
	kind, err := ParseCycleKind(g.GoalCycle)
	if err != nil {
		return CycleConfig{}, err
	}
	day := time.Monday
	if kind != CycleDaily {
		day, err = ParseWeekday(g.GoalStartDay)
		if err != nil {
			return CycleConfig{}, err
		}
	}
	return CycleConfig{
		GroupID:    g.ID,
		Kind:       kind,
		StartDay:   day,
		Anchor:     g.CreatedAt,
		Goal:       g.ApplicationGoal,
		StakeMinor: g.StakeMinorUnits,
	}, nil
}

// CycleWindow is one concrete cycle instance. StartsAt is inclusive, EndsAt
// exclusive; Key is the stable external identifier of the window.
type CycleWindow struct {
	Kind     CycleKind `json:"kind"`
	Label    string    `json:"label"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Key      string    `json:"cycle_key"`
}

// Contains reports whether the instant falls inside the window.
func (w CycleWindow) Contains(t time.Time) bool {
	return !t.Before(w.StartsAt) && t.Before(w.EndsAt)
}

// CycleCalculator derives cycle windows in one fixed application-wide time
// zone. Cycle boundaries are the same instants for every member of a group
// regardless of where the member lives.
type CycleCalculator struct {
	loc *time.Location
}

func NewCycleCalculator(loc *time.Location) *CycleCalculator {
	if loc == nil {
		loc = time.UTC
	}
	return &CycleCalculator{loc: loc}
}

// Location returns the calculator's fixed zone.
func (c *CycleCalculator) Location() *time.Location { return c.loc }

// Window returns the cycle window containing now for the given config.
// For any two instants inside the same window the result is identical.
func (c *CycleCalculator) Window(cfg CycleConfig, now time.Time) CycleWindow {
	var start time.Time
	var days int

	switch cfg.Kind {
	case CycleDaily:
		start = localMidnight(now, c.loc)
		days = 1
	case CycleWeekly:
		start = c.weekStart(now, cfg.StartDay)
		days = 7
	case CycleBiweekly:
		start = c.weekStart(now, cfg.StartDay)
		anchorStart := c.weekStart(cfg.Anchor, cfg.StartDay)
		// Whole weeks between the anchor week and the candidate week decide
		// parity: odd means the candidate belongs to the second half of a
		// biweekly span, so the span started one week earlier. Reproducible
		// from the anchor alone, so recomputation never re-pairs weeks.
		weeks := civilDaysBetween(anchorStart, start, c.loc) / 7
		if (weeks%2+2)%2 == 1 {
			start = addLocalDays(start, -7, c.loc)
		}
		days = 14
	default:
		// ParseCycleKind gates every entry path; reaching this is a bug.
		panic(fmt.Sprintf("engine: invalid cycle kind %q", cfg.Kind))
	}

	end := addLocalDays(start, days, c.loc)
	return c.window(cfg.Kind, start, end)
}

// ParseWindow reconstructs a window from its key alone. The key encodes the
// parity-resolved local start date, so daily, weekly and biweekly windows
// all round-trip without the original reference instant or anchor.
func (c *CycleCalculator) ParseWindow(key string) (CycleWindow, error) {
	idx := strings.IndexByte(key, '-')
	if idx <= 0 || idx == len(key)-1 {
		return CycleWindow{}, fmt.Errorf("malformed cycle key %q", key)
	}
	kind, err := ParseCycleKind(key[:idx])
	if err != nil {
		return CycleWindow{}, fmt.Errorf("malformed cycle key %q: %w", key, err)
	}
	startDate, err := time.ParseInLocation(cycleKeyDateLayout, key[idx+1:], c.loc)
	if err != nil {
		return CycleWindow{}, fmt.Errorf("malformed cycle key %q: %w", key, err)
	}

	start := localMidnight(startDate, c.loc)
	days := 1
	switch kind {
	case CycleWeekly:
		days = 7
	case CycleBiweekly:
		days = 14
	}
	return c.window(kind, start, addLocalDays(start, days, c.loc)), nil
}

// weekStart returns local midnight of the most recent startDay on or before
// ref's local calendar day.
func (c *CycleCalculator) weekStart(ref time.Time, startDay time.Weekday) time.Time {
	day := localMidnight(ref, c.loc)
	back := (int(day.Weekday()) - int(startDay) + 7) % 7
	if back == 0 {
		return day
	}
	return addLocalDays(day, -back, c.loc)
}

func (c *CycleCalculator) window(kind CycleKind, start, end time.Time) CycleWindow {
	return CycleWindow{
		Kind:     kind,
		Label:    windowLabel(kind, start, end),
		StartsAt: start,
		EndsAt:   end,
		Key:      string(kind) + "-" + start.Format(cycleKeyDateLayout),
	}
}

func windowLabel(kind CycleKind, start, end time.Time) string {
	if kind == CycleDaily {
		return start.Format("Mon, Jan 2 2006")
	}
	lastDay := end.AddDate(0, 0, -1)
	return start.Format("Jan 2") + " – " + lastDay.Format("Jan 2, 2006")
}
