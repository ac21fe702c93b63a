package provider

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "assesscal/internal/log"
	"assesscal/internal/model"
)

const (
	defaultMaxOccurrences = 500

	recordDateLayout = "2006-01-02"
	recordTimeLayout = "15:04"
)

// Window bounds recurrence expansion for ICS payloads.
type Window struct {
	From, To time.Time

	// MaxOccurrences caps the instances produced per recurring event. Zero
	// means defaultMaxOccurrences.
	MaxOccurrences int
}

// icsEvent is one VEVENT pulled out of an ICS payload.
type icsEvent struct {
	UID      string
	Summary  string
	Category string

	Start  time.Time
	End    time.Time
	HasEnd bool
	AllDay bool

	RRule      string
	ExDates    []time.Time
	Recurrence *time.Time // RECURRENCE-ID, set on overridden instances
}

// DecodeICS converts an ICS payload into records. Recurring events are
// expanded inside w; every instance becomes its own record. Instants are
// written as UTC "YYYY-MM-DD" / "HH:MM" strings so they go through the same
// normalization as provider JSON.
func DecodeICS(body []byte, w Window) ([]model.Record, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if w.To.Before(w.From) {
		return nil, errors.New("ics window ends before it starts")
	}
	if w.MaxOccurrences <= 0 {
		w.MaxOccurrences = defaultMaxOccurrences
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var bases []icsEvent
	// overrideUIDs keeps payload order for orphan output.
	var overrideUIDs []string
	overrides := make(map[string][]icsEvent)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			appLog.Error("ics vevent skipped", err)
			continue
		}
		if ev.Recurrence != nil {
			if _, seen := overrides[ev.UID]; !seen {
				overrideUIDs = append(overrideUIDs, ev.UID)
			}
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		bases = append(bases, ev)
	}

	out := make([]model.Record, 0, len(bases))
	recurring := make(map[string]bool)
	for _, ev := range bases {
		if ev.RRule == "" {
			if overlaps(ev, w) {
				out = append(out, toRecord(ev, ev.UID))
			}
			continue
		}
		recurring[ev.UID] = true
		out = append(out, expandRecurring(ev, overrides[ev.UID], w)...)
	}
	for _, uid := range overrideUIDs {
		if !recurring[uid] {
			out = append(out, orphanOverrides(overrides[uid], w)...)
		}
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (icsEvent, error) {
	var ev icsEvent

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return ev, errors.New("missing UID")
	}
	ev.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Summary = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyCategories); p != nil {
		ev.Category = strings.TrimSpace(strings.Split(p.Value, ",")[0])
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	ev.AllDay = !strings.Contains(dtStart.Value, "T")
	if vs := dtStart.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		ev.AllDay = true
	}

	var err error
	if ev.AllDay {
		ev.Start, err = ve.GetAllDayStartAt()
	} else {
		ev.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, err
	}

	if ve.GetProperty(ical.ComponentPropertyDtEnd) != nil {
		if ev.AllDay {
			ev.End, err = ve.GetAllDayEndAt()
		} else {
			ev.End, err = ve.GetEndAt()
		}
		ev.HasEnd = err == nil
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.RRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, ev.Start.Location()); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parseICSTime(p.Value, ev.Start.Location()); err == nil {
			ev.Recurrence = &t
		}
	}
	return ev, nil
}

func expandRecurring(ev icsEvent, overrides []icsEvent, w Window) []model.Record {
	r, err := ruleFor(ev)
	if err != nil {
		appLog.Error("ics RRULE rejected", err, "uid", ev.UID, "rrule", ev.RRule)
		return nil
	}

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex)
	}

	var dur time.Duration
	if ev.HasEnd && ev.End.After(ev.Start) {
		dur = ev.End.Sub(ev.Start)
	}

	// Instances that start before the window but are still running at
	// w.From count too, so the lower bound is widened by the duration.
	loc := ev.Start.Location()
	starts := set.Between(w.From.Add(-dur).In(loc), w.To.In(loc), true)
	if len(starts) > w.MaxOccurrences {
		appLog.Error("ics occurrences truncated", errors.New("max occurrences reached"),
			"uid", ev.UID, "cap", w.MaxOccurrences)
		starts = starts[:w.MaxOccurrences]
	}

	used := make([]bool, len(overrides))
	out := make([]model.Record, 0, len(starts))
	for _, start := range starts {
		inst := ev
		inst.Start = start
		inst.End = start.Add(dur)
		if i, ok := findOverride(overrides, start); ok {
			used[i] = true
			inst = overrides[i]
		}
		if overlaps(inst, w) {
			out = append(out, toRecord(inst, instanceID(ev.UID, start)))
		}
	}

	// An override may move an instance from outside the window into it.
	for i, o := range overrides {
		if used[i] || !overlaps(o, w) {
			continue
		}
		rid := *o.Recurrence
		if len(set.Between(rid, rid, true)) == 0 {
			appLog.Debug("ics override matches no instance", "uid", o.UID, "recurrence_id", rid)
			continue
		}
		out = append(out, toRecord(o, instanceID(o.UID, rid)))
	}
	return out
}

// orphanOverrides renders RECURRENCE-ID events whose base event is absent
// from the payload, as sent for single-instance invitations.
func orphanOverrides(overrides []icsEvent, w Window) []model.Record {
	out := make([]model.Record, 0, len(overrides))
	for _, o := range overrides {
		appLog.Debug("ics override without base event", "uid", o.UID, "recurrence_id", *o.Recurrence)
		if overlaps(o, w) {
			out = append(out, toRecord(o, instanceID(o.UID, *o.Recurrence)))
		}
	}
	return out
}

func instanceID(uid string, start time.Time) string {
	return uid + "/" + start.UTC().Format("20060102T150405Z")
}

// ruleFor builds ev's RRULE anchored at its DTSTART.
func ruleFor(ev icsEvent) (*rrule.RRule, error) {
	opt, err := rrule.StrToROption(ev.RRule)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = ev.Start
	return rrule.NewRRule(*opt)
}

func findOverride(overrides []icsEvent, start time.Time) (int, bool) {
	for i, o := range overrides {
		if o.Recurrence.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

func overlaps(ev icsEvent, w Window) bool {
	end := ev.Start
	if ev.HasEnd {
		end = ev.End
	}
	return !end.Before(w.From) && !w.To.Before(ev.Start)
}

// toRecord renders ev as a provider record. All-day events keep their
// calendar date and an empty clock; DTEND of an all-day event is exclusive,
// so the record ends on the previous day.
func toRecord(ev icsEvent, id string) model.Record {
	rec := model.Record{
		ID:    id,
		Title: ev.Summary,
		Kind:  ev.Category,
	}
	if ev.AllDay {
		rec.StartDate = ev.Start.Format(recordDateLayout)
		if ev.HasEnd && ev.End.After(ev.Start) {
			rec.EndDate = ev.End.AddDate(0, 0, -1).Format(recordDateLayout)
		}
		return rec
	}

	start := ev.Start.UTC()
	rec.StartDate = start.Format(recordDateLayout)
	rec.StartTime = start.Format(recordTimeLayout)
	if ev.HasEnd {
		end := ev.End.UTC()
		rec.EndDate = end.Format(recordDateLayout)
		rec.EndTime = end.Format(recordTimeLayout)
	}
	return rec
}

// parseICSTime parses the basic DATE / DATE-TIME / UTC forms used by EXDATE
// and RECURRENCE-ID. Floating values are read in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
