package temporal

import (
	"sync"
	"time"
)

const (
	dateLayout  = "02/01/2006"
	clockLayout = "15:04"
)

// Display is an instant rendered for one timezone. Both fields are empty
// when there was nothing to render; callers then show the raw record text.
type Display struct {
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

// Empty reports whether d carries no rendered value.
func (d Display) Empty() bool {
	return d.LocalDate == "" && d.LocalTime == ""
}

// FormatIn renders i in loc as DD/MM/YYYY and 24-hour HH:MM. Conversion goes
// through the zone's rules, so DST and fractional offsets are honoured. A nil
// loc is treated as UTC.
func FormatIn(i Instant, loc *time.Location) Display {
	if !i.valid {
		return Display{}
	}
	if loc == nil {
		loc = time.UTC
	}
	local := i.t.In(loc)
	return Display{
		LocalDate: local.Format(dateLayout),
		LocalTime: local.Format(clockLayout),
	}
}

// Format renders i in the IANA zone named tz. An unknown zone yields an
// empty Display, the same as an absent instant.
func Format(i Instant, tz string) Display {
	loc, err := LoadZone(tz)
	if err != nil {
		return Display{}
	}
	return FormatIn(i, loc)
}

// RangeText joins start and end times as "HH:MM - HH:MM", or returns the
// start time alone when end has no time.
func RangeText(start, end Display) string {
	if end.LocalTime == "" {
		return start.LocalTime
	}
	return start.LocalTime + " - " + end.LocalTime
}

var zoneCache sync.Map // map[string]*time.Location

// LoadZone returns the location for an IANA identifier such as
// "Europe/Madrid". "" and "UTC" both name UTC. Loaded locations are cached;
// *time.Location values are immutable and safe to share.
func LoadZone(name string) (*time.Location, error) {
	if v, ok := zoneCache.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	zoneCache.Store(name, loc)
	return loc, nil
}
