// Package temporal turns the loosely formatted date/time strings found on
// assessment records into canonical instants, renders those instants for a
// viewer timezone, and decides calendar-day membership of event spans.
//
// Every function in this package is pure. Timezones are always explicit
// parameters; nothing here reads the process environment.
//
// The pipeline is:
//
//	c, ok := temporal.Parse("2025-01-31", "28:43 PM") // RawTimeParser
//	inst := temporal.Build(c)                         // InstantBuilder
//	disp := temporal.FormatIn(inst, loc)              // LocalFormatter
//	temporal.Span{Start: inst}.Contains(day, loc)     // CalendarDayMatcher
//
// Resolve combines the first two steps and propagates parse failure as
// NoInstant.
package temporal

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	isoDateRe   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	slashDateRe = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	clockRe     = regexp.MustCompile(`(?i)^\s*(\d{1,2}):(\d{2})(?:\s*([AP]M))?\s*$`)
)

// Components are the numeric wall-clock fields read from a date/time pair.
// Hour and Minute are not range checked: values such as 28 or 75 are kept
// as-is and folded by Build.
type Components struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// Overflows reports whether the hour or minute lies outside its normal range
// and will be carried forward by Build.
func (c Components) Overflows() bool {
	return c.Hour < 0 || c.Hour >= 24 || c.Minute < 0 || c.Minute >= 60
}

// Parse reads a date string in either YYYY-MM-DD or DD/MM/YYYY layout and a
// clock string of the form H:MM or HH:MM with an optional AM/PM marker.
//
// The second result is false when the date has neither layout; the returned
// Components are then zero and must not be used. An unreadable clock string
// does not fail the parse: it yields midnight.
func Parse(date, clock string) (Components, bool) {
	year, month, day, ok := parseDate(date)
	if !ok {
		return Components{}, false
	}
	hour, minute, _ := ParseClock(clock)
	return Components{
		Year:   year,
		Month:  month,
		Day:    day,
		Hour:   hour,
		Minute: minute,
	}, true
}

func parseDate(s string) (year, month, day int, ok bool) {
	if m := isoDateRe.FindStringSubmatch(s); m != nil {
		return atoi(m[1]), atoi(m[2]), atoi(m[3]), true
	}
	if m := slashDateRe.FindStringSubmatch(s); m != nil {
		return atoi(m[3]), atoi(m[2]), atoi(m[1]), true
	}
	return 0, 0, 0, false
}

// ParseClock reads hour and minute from s. When s does not match the clock
// grammar the result is 0, 0, false.
//
// A period marker is honoured only when the hour is at most 12: "2:30 PM" is
// 14:30 and "12:30 AM" is 00:30. With a larger hour the marker is ignored and
// the hour is taken as 24-hour form, so "20:30 PM" is 20:30.
func ParseClock(s string) (hour, minute int, ok bool) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	hour, minute = atoi(m[1]), atoi(m[2])

	if m[3] != "" && hour <= 12 {
		switch strings.ToUpper(m[3]) {
		case "PM":
			if hour != 12 {
				hour += 12
			}
		case "AM":
			if hour == 12 {
				hour = 0
			}
		}
	}
	return hour, minute, true
}

// atoi is only called on regexp groups made of 1-4 ASCII digits.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
