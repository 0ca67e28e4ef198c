package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAddLocalDaysPreservesWallClockAcrossDST(t *testing.T) {
	loc := newYorkLocation(t)

	// Saturday before the 2026 spring-forward; adding one calendar day lands
	// on local midnight of the 23-hour day, not 24 elapsed hours later.
	before := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)
	after := addLocalDays(before, 1, loc)
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, loc), after)

	across := addLocalDays(before, 2, loc)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, loc), across)
	assert.Equal(t, 47*time.Hour, across.Sub(before))

	assert.Equal(t, before, addLocalDays(across, -2, loc))
}

func TestCivilDaysBetween(t *testing.T) {
	loc := newYorkLocation(t)

	a := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	b := time.Date(2026, 3, 9, 0, 0, 0, 0, loc) // week with a DST shift in it
	assert.Equal(t, 7, civilDaysBetween(a, b, loc))
	assert.Equal(t, -7, civilDaysBetween(b, a, loc))
	assert.Equal(t, 0, civilDaysBetween(a, a.Add(6*time.Hour), loc))

	// Instants near midnight count by local calendar day, not elapsed time.
	lateNight := time.Date(2026, 3, 2, 23, 50, 0, 0, loc)
	earlyMorning := time.Date(2026, 3, 3, 0, 10, 0, 0, loc)
	assert.Equal(t, 1, civilDaysBetween(lateNight, earlyMorning, loc))
}

func TestZonedPartsRoundTrip(t *testing.T) {
	loc := newYorkLocation(t)
	instant := time.Date(2026, 11, 1, 12, 0, 0, 0, loc) // fall-back day

	parts := ZonedParts(instant, loc)
	assert.Equal(t, 2026, parts.Year)
	assert.Equal(t, time.November, parts.Month)
	assert.Equal(t, 1, parts.Day)
	assert.Equal(t, 12, parts.Hour)
	assert.True(t, ZonedTime(parts, loc).Equal(instant))
}
