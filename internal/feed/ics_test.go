package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assesscal/internal/calendar"
	"assesscal/internal/model"
)

func TestWrite_RoundTripsThroughParser(t *testing.T) {
	entries := calendar.NormalizeAll([]model.Record{
		{ID: "ev-1", Title: "Go assessment", Kind: "event", StartDate: "2025-03-01", StartTime: "9:00 AM", EndDate: "2025-03-03", EndTime: "17:00"},
		{ID: "ev-2", Title: "Overflowing review", StartDate: "2025-01-31", StartTime: "28:43 PM"},
		{ID: "ev-3", Title: "Broken", StartDate: "someday"},
	}, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entries, Options{
		Name:     "Assessments",
		Timezone: "Europe/Madrid",
		Now:      time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	assert.Contains(t, buf.String(), "X-WR-CALNAME:Assessments")
	assert.Contains(t, buf.String(), "X-WR-TIMEZONE:Europe/Madrid")

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2, "entries without a start instant are skipped")

	assert.Equal(t, "ev-1@assesscal", events[0].GetProperty(ical.ComponentPropertyUniqueId).Value)
	assert.Equal(t, "Go assessment", events[0].GetProperty(ical.ComponentPropertySummary).Value)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)))
	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2025, 3, 3, 17, 0, 0, 0, time.UTC)))

	start, err = events[1].GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2025, 2, 1, 4, 43, 0, 0, time.UTC)))
	end, err = events[1].GetEndAt()
	require.NoError(t, err)
	assert.True(t, end.Equal(start), "no end means DTEND equals DTSTART")
}

func TestEventUIDWithoutID(t *testing.T) {
	a := calendar.Normalize(model.Record{Title: "Untracked", StartDate: "2025-03-01", StartTime: "10:00"}, time.UTC)
	b := calendar.Normalize(model.Record{Title: "Untracked", StartDate: "2025-03-01", StartTime: "10:00"}, time.UTC)
	c := calendar.Normalize(model.Record{Title: "Untracked", StartDate: "2025-03-02", StartTime: "10:00"}, time.UTC)

	assert.Equal(t, eventUID(a), eventUID(b))
	assert.NotEqual(t, eventUID(a), eventUID(c))
	assert.True(t, strings.HasSuffix(eventUID(a), "@assesscal"))
	assert.Equal(t, "x@assesscal", eventUID(calendar.Entry{Record: model.Record{ID: "x"}}))

	id, err := uuid.Parse(strings.TrimSuffix(eventUID(a), "@assesscal"))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
	want := uuid.NewSHA1(uidNamespace, []byte("Untracked\x00"+a.Span.Start.String()))
	assert.Equal(t, want, id)
	assert.NotEqual(t, uuid.NewSHA1(uuid.NameSpaceOID, []byte("Untracked\x00"+a.Span.Start.String())), id)
}
