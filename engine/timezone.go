// Package engine implements the cycle and settlement ledger: recurring cycle
// windows in one fixed civil time zone, the per-member application counter
// with its append-only audit log, exactly-once settlement of finished cycles,
// and deduplicated notifications. All persistence goes through the Store
// interface so the engine can degrade from the database to a volatile
// in-process store without failing writes.
package engine

import "time"

// CivilParts is a wall-clock reading (no zone offset) in the engine's fixed
// time zone.
type CivilParts struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
}

// ZonedParts breaks an absolute instant into wall-clock parts in loc.
func ZonedParts(t time.Time, loc *time.Location) CivilParts {
	lt := t.In(loc)
	return CivilParts{
		Year:   lt.Year(),
		Month:  lt.Month(),
		Day:    lt.Day(),
		Hour:   lt.Hour(),
		Minute: lt.Minute(),
		Second: lt.Second(),
	}
}

// ZonedTime converts wall-clock parts in loc back to an absolute instant.
// time.Date resolves the zone's actual offset for the given wall clock,
// including across daylight-saving transitions, so a window that spans a
// DST change still starts and ends at local midnight.
func ZonedTime(p CivilParts, loc *time.Location) time.Time {
	return time.Date(p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second, 0, loc)
}

// localMidnight returns 00:00 of t's calendar day in loc.
func localMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// addLocalDays moves a local wall-clock time by whole calendar days,
// preserving the wall clock rather than adding fixed 24h spans. A day that
// contains a DST shift is still one calendar day.
func addLocalDays(t time.Time, days int, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+days, lt.Hour(), lt.Minute(), lt.Second(), 0, loc)
}

// civilDaysBetween counts whole calendar days from a's local date to b's
// local date. Negative when b is earlier. Computed on the proleptic calendar
// in UTC so DST shifts cannot make a 7-day span look like 6.96 days.
func civilDaysBetween(a, b time.Time, loc *time.Location) int {
	la, lb := a.In(loc), b.In(loc)
	ua := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(lb.Year(), lb.Month(), lb.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}
