package calendar

import (
	"strings"
	"time"

	"assesscal/internal/temporal"
)

const (
	// GridDays is the number of cells in a calendar page: four weeks.
	GridDays = 28

	// DefaultDayLimit caps the "selected day" panel.
	DefaultDayLimit = 5
)

// Cell is one day of the calendar grid.
type Cell struct {
	Day     temporal.Day `json:"-"`
	Date    string       `json:"date"`
	Weekday string       `json:"weekday"`
	Entries []Entry      `json:"entries"`
}

// DayPanel lists the entries on one selected day.
type DayPanel struct {
	Day     temporal.Day `json:"-"`
	Date    string       `json:"date"`
	Entries []Entry      `json:"entries"`
	// Total counts all matches, including those cut by the limit.
	Total int `json:"total"`
}

// ParseWeekStart maps a config value to a weekday. Anything other than
// "sunday" starts weeks on Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// GridStart returns the first day of the week containing anchor.
func GridStart(anchor temporal.Day, weekStart time.Weekday) temporal.Day {
	back := (int(anchor.Weekday()) - int(weekStart) + 7) % 7
	return anchor.AddDays(-back)
}

// NextPage returns the anchor of the page after the one containing anchor.
func NextPage(anchor temporal.Day, weekStart time.Weekday) temporal.Day {
	return GridStart(anchor, weekStart).AddDays(GridDays)
}

// PrevPage returns the anchor of the page before the one containing anchor.
func PrevPage(anchor temporal.Day, weekStart time.Weekday) temporal.Day {
	return GridStart(anchor, weekStart).AddDays(-GridDays)
}

// Grid builds the GridDays cells of the page containing anchor. Each cell
// lists the entries whose span covers that day in loc, in input order.
func Grid(entries []Entry, anchor temporal.Day, weekStart time.Weekday, loc *time.Location) []Cell {
	first := GridStart(anchor, weekStart)
	cells := make([]Cell, GridDays)
	for i := range cells {
		d := first.AddDays(i)
		cells[i] = Cell{
			Day:     d,
			Date:    d.String(),
			Weekday: d.Weekday().String(),
			Entries: OnDay(entries, d, loc),
		}
	}
	return cells
}

// OnDay returns every entry whose span covers day in loc, keeping input
// order.
func OnDay(entries []Entry, day temporal.Day, loc *time.Location) []Entry {
	out := make([]Entry, 0)
	for _, e := range entries {
		if e.Span.Contains(day, loc) {
			out = append(out, e)
		}
	}
	return out
}

// EventsOn builds the selected-day panel: matching entries in arrival order,
// at most limit of them. A limit <= 0 means DefaultDayLimit.
func EventsOn(entries []Entry, day temporal.Day, loc *time.Location, limit int) DayPanel {
	if limit <= 0 {
		limit = DefaultDayLimit
	}
	all := OnDay(entries, day, loc)
	shown := all
	if len(shown) > limit {
		shown = shown[:limit]
	}
	return DayPanel{
		Day:     day,
		Date:    day.String(),
		Entries: shown,
		Total:   len(all),
	}
}
