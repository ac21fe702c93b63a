// Package feed renders normalized entries as an iCalendar subscription so
// evaluators can follow the schedule from their own calendar client.
package feed

import (
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"assesscal/internal/calendar"
)

const productID = "-//assesscal//assessment schedule//EN"

// Options controls feed rendering.
type Options struct {
	// Name is shown by calendar clients as the calendar title.
	Name string
	// Timezone is advertised via X-WR-TIMEZONE; event times are always
	// written in UTC.
	Timezone string
	// Now stamps DTSTAMP. Zero means time.Now.
	Now time.Time
}

// Build converts entries into a VCALENDAR. Entries without a start instant
// are skipped; an entry without an end gets DTEND equal to DTSTART.
func Build(entries []calendar.Entry, opts Options) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}

	stamp := opts.Now
	if stamp.IsZero() {
		stamp = time.Now()
	}
	stamp = stamp.UTC()

	for _, e := range entries {
		if !e.Span.Start.Valid() {
			continue
		}
		start := e.Span.Start.Time()
		end := start
		if e.Span.End.Valid() {
			end = e.Span.End.Time()
		}

		ev := cal.AddEvent(eventUID(e))
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(e.Record.Title)
		if e.Record.Kind != "" {
			ev.SetDescription(e.Record.Kind)
		}
	}
	return cal
}

// Write serializes the feed for entries to w.
func Write(w io.Writer, entries []calendar.Entry, opts Options) error {
	_, err := io.WriteString(w, Build(entries, opts).Serialize())
	return err
}

// uidNamespace scopes the name-based UIDs minted for records without an ID.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://assesscal.invalid/feed/event"))

// eventUID is the record ID when present. Otherwise it is a name-based UUID
// over title and start, so the UID survives reordering between refreshes.
func eventUID(e calendar.Entry) string {
	if e.Record.ID != "" {
		return e.Record.ID + "@assesscal"
	}
	name := e.Record.Title + "\x00" + e.Span.Start.String()
	return uuid.NewSHA1(uidNamespace, []byte(name)).String() + "@assesscal"
}
