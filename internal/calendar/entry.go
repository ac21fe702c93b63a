// Package calendar is the single place list, detail and calendar views get
// their date handling from. It resolves a record's raw date/time fields
// through internal/temporal, renders them for the viewer's timezone, and
// buckets records into calendar days.
package calendar

import (
	"time"

	appLog "assesscal/internal/log"
	"assesscal/internal/metrics"
	"assesscal/internal/model"
	"assesscal/internal/temporal"
)

// Field names used in logs and metrics.
const (
	FieldStart = "start"
	FieldClose = "close"
	FieldEnd   = "end"
)

// Entry is a record together with its resolved instants and their display
// form in one timezone.
type Entry struct {
	Record model.Record `json:"record"`

	Start temporal.Display `json:"start"`
	Close temporal.Display `json:"close"`
	End   temporal.Display `json:"end"`

	// Range is "HH:MM - HH:MM", or the start time alone without an end.
	Range string `json:"range"`

	Span    temporal.Span    `json:"-"`
	CloseAt temporal.Instant `json:"-"`
}

// Normalize resolves rec's start, close and end pairs and renders them in
// loc.
//
// The close date defaults to the start date. The end date does too when
// only an end time is given; with no end fields at all the end is absent.
func Normalize(rec model.Record, loc *time.Location) Entry {
	start := resolveField(rec.ID, FieldStart, rec.StartDate, rec.StartTime)

	closeAt := temporal.NoInstant
	if rec.HasClose() {
		closeAt = resolveField(rec.ID, FieldClose, orDefault(rec.CloseDate, rec.StartDate), rec.CloseTime)
	} else {
		metrics.ObserveField(FieldClose, metrics.OutcomeAbsent)
	}

	end := temporal.NoInstant
	if rec.HasEnd() {
		end = resolveField(rec.ID, FieldEnd, orDefault(rec.EndDate, rec.StartDate), rec.EndTime)
	} else {
		metrics.ObserveField(FieldEnd, metrics.OutcomeAbsent)
	}

	e := Entry{
		Record:  rec,
		Start:   temporal.FormatIn(start, loc),
		Close:   temporal.FormatIn(closeAt, loc),
		End:     temporal.FormatIn(end, loc),
		Span:    temporal.Span{Start: start, End: end},
		CloseAt: closeAt,
	}
	e.Range = temporal.RangeText(e.Start, e.End)
	return e
}

// NormalizeAll normalizes records in order.
func NormalizeAll(recs []model.Record, loc *time.Location) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, r := range recs {
		out = append(out, Normalize(r, loc))
	}
	return out
}

func resolveField(id, field, date, clock string) temporal.Instant {
	c, ok := temporal.Parse(date, clock)
	if !ok {
		metrics.ObserveField(field, metrics.OutcomeUnparseable)
		appLog.Debug("record date unparseable", "id", id, "field", field, "date", date)
		return temporal.NoInstant
	}

	switch _, _, clockOK := temporal.ParseClock(clock); {
	case !clockOK:
		metrics.ObserveField(field, metrics.OutcomeClockFallback)
	case c.Overflows():
		metrics.ObserveField(field, metrics.OutcomeOverflow)
		appLog.Debug("record time folded", "id", id, "field", field, "time", clock)
	default:
		metrics.ObserveField(field, metrics.OutcomeOK)
	}
	return temporal.Build(c)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
