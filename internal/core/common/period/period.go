// Package period provides half-open time ranges and calendar-date helpers.
package period

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Range is the half-open interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Range, error) {
	if !end.After(start) {
		return Range{}, fmt.Errorf("range end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Range{Start: start, End: end}, nil
}

// Overlaps reports whether r and o share any instant; touching endpoints do not overlap.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Minutes is a half-open interval of minutes since midnight, used for same-day bookings.
type Minutes struct {
	Start int
	End   int
}

func (m Minutes) Overlaps(o Minutes) bool {
	return m.Start < o.End && o.Start < m.End
}

func (m Minutes) Valid() bool {
	return m.Start >= 0 && m.End <= 24*60 && m.Start < m.End
}

// Day truncates t to midnight in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Weekdays lists every Monday-Friday date in the inclusive range [from, to].
func Weekdays(from, to time.Time) []time.Time {
	from, to = Day(from), Day(to)
	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if !IsWeekend(d) {
			days = append(days, d)
		}
	}
	return days
}

// DateSpan turns the inclusive calendar dates [from, to] into a half-open Range.
func DateSpan(from, to time.Time) Range {
	return Range{Start: Day(from), End: Day(to).AddDate(0, 0, 1)}
}
