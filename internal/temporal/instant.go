package temporal

import "time"

// Instant is an absolute point in time. The zero value is NoInstant, which
// is distinct from every valid instant including the Unix epoch.
type Instant struct {
	t     time.Time
	valid bool
}

// NoInstant marks a date that could not be parsed.
var NoInstant = Instant{}

// InstantOf wraps t as a valid Instant.
func InstantOf(t time.Time) Instant {
	return Instant{t: t.UTC(), valid: true}
}

// Valid reports whether i denotes a point in time.
func (i Instant) Valid() bool { return i.valid }

// Time returns i as a UTC time.Time. It is the zero time for NoInstant.
func (i Instant) Time() time.Time { return i.t }

// UnixMilli returns milliseconds since the Unix epoch. It is 0 for NoInstant;
// check Valid first.
func (i Instant) UnixMilli() int64 {
	if !i.valid {
		return 0
	}
	return i.t.UnixMilli()
}

// Before reports whether i is strictly earlier than o. Both must be valid.
func (i Instant) Before(o Instant) bool { return i.t.Before(o.t) }

// After reports whether i is strictly later than o. Both must be valid.
func (i Instant) After(o Instant) bool { return i.t.After(o.t) }

// Equal reports whether i and o are the same instant, or both NoInstant.
func (i Instant) Equal(o Instant) bool {
	if i.valid != o.valid {
		return false
	}
	return !i.valid || i.t.Equal(o.t)
}

// Sub returns i-o.
func (i Instant) Sub(o Instant) time.Duration { return i.t.Sub(o.t) }

func (i Instant) String() string {
	if !i.valid {
		return "<no instant>"
	}
	return i.t.Format(time.RFC3339)
}

// Build folds out-of-range minutes into hours and hours into days, then
// reads the result as UTC wall-clock fields. It is total: any Components
// value produces a valid Instant.
//
// Day carries use calendar arithmetic, so 2025-01-31 with hour 28 lands on
// 2025-02-01 04:00.
func Build(c Components) Instant {
	hour := c.Hour + floorDiv(c.Minute, 60)
	minute := floorMod(c.Minute, 60)

	carry := floorDiv(hour, 24)
	hour = floorMod(hour, 24)

	midnight := time.Date(c.Year, time.Month(c.Month), c.Day, 0, 0, 0, 0, time.UTC)
	if carry != 0 {
		midnight = midnight.AddDate(0, 0, carry)
	}
	y, m, d := midnight.Date()

	return Instant{
		t:     time.Date(y, m, d, hour, minute, 0, 0, time.UTC),
		valid: true,
	}
}

// Resolve parses date and clock and builds the canonical instant. It returns
// NoInstant when the date is unparseable.
func Resolve(date, clock string) Instant {
	c, ok := Parse(date, clock)
	if !ok {
		return NoInstant
	}
	return Build(c)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
