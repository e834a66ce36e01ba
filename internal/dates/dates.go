// Package dates contains the calendar arithmetic shared by budgets, expense
// filters and analytics. All boundaries are inclusive.
package dates

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout is the key format used to bucket by month.
const MonthLayout = "2006-01"

// Range is a closed interval [Start, End].
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t lies within the range, both ends included.
func (r Range) Contains(t time.Time) bool {
	return InRange(t, r.Start, r.End)
}

// Days returns the number of calendar days the range touches, at least 1.
func (r Range) Days() int64 {
	start := StartOfDay(r.Start)
	end := StartOfDay(r.End)
	days := int64(math.Round(end.Sub(start).Hours()/24)) + 1
	if days < 1 {
		return 1
	}
	return days
}

// InRange reports whether start <= t <= end.
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// Overlaps reports whether two closed ranges share at least one instant.
func Overlaps(a, b Range) bool {
	return !a.Start.After(b.End) && !a.End.Before(b.Start)
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's day.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// StartOfMonth returns midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last instant of t's month.
func EndOfMonth(t time.Time) time.Time {
	// Day 0 of the following month normalises to the last day of this one.
	last := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
	return EndOfDay(last)
}

// StartOfYear returns midnight on January 1st of t's year.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}

// EndOfYear returns the last instant of December 31st of t's year.
func EndOfYear(t time.Time) time.Time {
	return EndOfDay(time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, t.Location()))
}

// AddMonths moves t by n calendar months, clamping to the last day of the
// target month instead of overflowing (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}

// MonthKey returns t's month as "YYYY-MM".
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

// ParseDate accepts a calendar date ("2006-01-02", interpreted in UTC) or an
// RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return t, nil
}

// Quick range names accepted by QuickRange.
const (
	RangeLast7Days  = "7d"
	RangeLast30Days = "30d"
	RangeLast90Days = "90d"
	RangeThisMonth  = "this_month"
	RangeThisYear   = "this_year"
)

// QuickRange resolves a named preset relative to now.
func QuickRange(name string, now time.Time) (Range, error) {
	end := EndOfDay(now)
	switch name {
	case RangeLast7Days:
		return Range{Start: StartOfDay(now.AddDate(0, 0, -6)), End: end}, nil
	case RangeLast30Days:
		return Range{Start: StartOfDay(now.AddDate(0, 0, -29)), End: end}, nil
	case RangeLast90Days:
		return Range{Start: StartOfDay(now.AddDate(0, 0, -89)), End: end}, nil
	case RangeThisMonth:
		return Range{Start: StartOfMonth(now), End: EndOfMonth(now)}, nil
	case RangeThisYear:
		return Range{Start: StartOfYear(now), End: EndOfYear(now)}, nil
	default:
		return Range{}, fmt.Errorf("unknown range %q", name)
	}
}
