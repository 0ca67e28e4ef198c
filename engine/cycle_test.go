package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newYorkLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return loc
}

func TestWindowDaily(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)
	cfg := CycleConfig{Kind: CycleDaily}

	now := time.Date(2026, 2, 12, 15, 30, 0, 0, loc)
	win := calc.Window(cfg, now)

	assert.Equal(t, "daily-2026-02-12", win.Key)
	assert.Equal(t, time.Date(2026, 2, 12, 0, 0, 0, 0, loc), win.StartsAt)
	assert.Equal(t, time.Date(2026, 2, 13, 0, 0, 0, 0, loc), win.EndsAt)
	assert.True(t, win.Contains(now))
	assert.False(t, win.Contains(win.EndsAt))
}

func TestWindowWeeklyStartsOnConfiguredDay(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)
	cfg := CycleConfig{Kind: CycleWeekly, StartDay: time.Monday}

	// Thursday Feb 12 2026 falls in the week starting Monday Feb 9.
	now := time.Date(2026, 2, 12, 9, 0, 0, 0, loc)
	win := calc.Window(cfg, now)

	assert.Equal(t, "weekly-2026-02-09", win.Key)
	assert.Equal(t, time.Date(2026, 2, 9, 0, 0, 0, 0, loc), win.StartsAt)
	assert.Equal(t, time.Date(2026, 2, 16, 0, 0, 0, 0, loc), win.EndsAt)
}

func TestWindowStableWithinCycle(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)
	cfg := CycleConfig{Kind: CycleWeekly, StartDay: time.Monday}

	first := calc.Window(cfg, time.Date(2026, 2, 9, 0, 0, 0, 0, loc))
	mid := calc.Window(cfg, time.Date(2026, 2, 12, 23, 59, 59, 0, loc))
	last := calc.Window(cfg, time.Date(2026, 2, 15, 23, 59, 59, 0, loc))

	assert.Equal(t, first, mid)
	assert.Equal(t, first, last)

	next := calc.Window(cfg, time.Date(2026, 2, 16, 0, 0, 0, 0, loc))
	assert.Equal(t, "weekly-2026-02-16", next.Key)
}

func TestWindowBiweeklyParity(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)
	cfg := CycleConfig{
		Kind:     CycleBiweekly,
		StartDay: time.Monday,
		// Anchor week starts Monday Feb 2 2026.
		Anchor: time.Date(2026, 2, 4, 10, 0, 0, 0, loc),
	}

	// Both weeks of the span resolve to the same 14-day window.
	firstWeek := calc.Window(cfg, time.Date(2026, 2, 3, 12, 0, 0, 0, loc))
	secondWeek := calc.Window(cfg, time.Date(2026, 2, 12, 12, 0, 0, 0, loc))

	assert.Equal(t, "biweekly-2026-02-02", firstWeek.Key)
	assert.Equal(t, firstWeek, secondWeek)
	assert.Equal(t, 14, civilDaysBetween(firstWeek.StartsAt, firstWeek.EndsAt, loc))

	// The following span starts two weeks after the anchor week.
	thirdWeek := calc.Window(cfg, time.Date(2026, 2, 17, 12, 0, 0, 0, loc))
	assert.Equal(t, "biweekly-2026-02-16", thirdWeek.Key)
}

func TestWindowBiweeklyAnchorBeforeParityShift(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)
	cfg := CycleConfig{
		Kind:     CycleBiweekly,
		StartDay: time.Monday,
		Anchor:   time.Date(2026, 1, 5, 8, 0, 0, 0, loc), // Monday
	}

	// An odd number of weeks past the anchor belongs to the second half of a
	// span, so the window start shifts back one week.
	win := calc.Window(cfg, time.Date(2026, 1, 14, 8, 0, 0, 0, loc))
	assert.Equal(t, "biweekly-2026-01-05", win.Key)
}

func TestParseWindowRoundTrip(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)

	cases := []CycleConfig{
		{Kind: CycleDaily},
		{Kind: CycleWeekly, StartDay: time.Thursday},
		{Kind: CycleBiweekly, StartDay: time.Sunday, Anchor: time.Date(2026, 1, 4, 0, 0, 0, 0, loc)},
	}
	now := time.Date(2026, 2, 12, 18, 0, 0, 0, loc)
	for _, cfg := range cases {
		win := calc.Window(cfg, now)
		parsed, err := calc.ParseWindow(win.Key)
		require.NoError(t, err, "key %s", win.Key)
		assert.Equal(t, win, parsed, "key %s", win.Key)
	}
}

func TestParseWindowRejectsMalformedKeys(t *testing.T) {
	calc := NewCycleCalculator(newYorkLocation(t))

	for _, key := range []string{"", "weekly", "weekly-", "-2026-02-09", "monthly-2026-02-09", "weekly-2026-13-40"} {
		_, err := calc.ParseWindow(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestWindowAcrossDaylightSaving(t *testing.T) {
	loc := newYorkLocation(t)
	calc := NewCycleCalculator(loc)

	// March 8 2026 is the spring-forward day in New York: the calendar day is
	// 23 real hours but still exactly one daily window.
	win := calc.Window(CycleConfig{Kind: CycleDaily}, time.Date(2026, 3, 8, 15, 0, 0, 0, loc))
	assert.Equal(t, "daily-2026-03-08", win.Key)
	assert.Equal(t, 23*time.Hour, win.EndsAt.Sub(win.StartsAt))

	// A weekly window spanning the transition still ends at local midnight.
	weekly := calc.Window(CycleConfig{Kind: CycleWeekly, StartDay: time.Monday}, time.Date(2026, 3, 4, 12, 0, 0, 0, loc))
	assert.Equal(t, "weekly-2026-03-02", weekly.Key)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, loc), weekly.EndsAt)
	assert.Equal(t, 7, civilDaysBetween(weekly.StartsAt, weekly.EndsAt, loc))
}

func TestParseCycleKindAndWeekday(t *testing.T) {
	kind, err := ParseCycleKind("biweekly")
	require.NoError(t, err)
	assert.Equal(t, CycleBiweekly, kind)

	_, err = ParseCycleKind("monthly")
	assert.Error(t, err)

	day, err := ParseWeekday("Thursday")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, day)

	_, err = ParseWeekday("someday")
	assert.Error(t, err)
}
