package temporal

import (
	"fmt"
	"time"
)

// Day is a timezone-local calendar date with no time of day. Days compare
// by (year, month, day).
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar date of i in loc. ok is false for NoInstant.
func DayOf(i Instant, loc *time.Location) (Day, bool) {
	if !i.valid {
		return Day{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	return DayFromTime(i.t.In(loc)), true
}

// DayFromTime returns the calendar date of t in t's own location.
func DayFromTime(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay reads a YYYY-MM-DD string and rejects dates that do not exist.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayFromTime(t), nil
}

// AddDays moves d by n calendar days.
func (d Day) AddDays(n int) Day {
	return DayFromTime(d.midnight(time.UTC).AddDate(0, 0, n))
}

// Weekday returns the day of the week d falls on.
func (d Day) Weekday() time.Weekday {
	return d.midnight(time.UTC).Weekday()
}

func (d Day) midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Day) Before(o Day) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Day) After(o Day) bool {
	return o.Before(d)
}

// InRange reports whether from <= d <= to.
func (d Day) InRange(from, to Day) bool {
	return !d.Before(from) && !to.Before(d)
}

func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Span is the interval over which an event counts as "on" a day. A
// NoInstant End means the event ends on its start day.
type Span struct {
	Start Instant
	End   Instant
}

// Days returns the first and last calendar day of s in loc. ok is false
// when Start is NoInstant.
func (s Span) Days(loc *time.Location) (first, last Day, ok bool) {
	first, ok = DayOf(s.Start, loc)
	if !ok {
		return Day{}, Day{}, false
	}
	last = first
	if end, endOK := DayOf(s.End, loc); endOK {
		last = end
	}
	return first, last, true
}

// Contains reports whether day falls within s, inclusive at both ends, with
// both instants truncated to calendar days in loc. A span without a start
// contains no day.
func (s Span) Contains(day Day, loc *time.Location) bool {
	first, last, ok := s.Days(loc)
	if !ok {
		return false
	}
	return day.InRange(first, last)
}
