package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) Day {
	return Day{Year: y, Month: m, Day: d}
}

func TestDay_Ordering(t *testing.T) {
	t.Parallel()

	assert.False(t, day(2026, 1, 1).Before(day(2026, 1, 1)))
	assert.True(t, day(2026, 1, 1).Before(day(2026, 1, 15)))
	assert.True(t, day(2026, 1, 31).Before(day(2026, 2, 1)))
	assert.True(t, day(2025, 12, 31).Before(day(2026, 1, 1)))
	assert.True(t, day(2026, 2, 1).After(day(2026, 1, 31)))
}

func TestDay_Arithmetic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, day(2025, 3, 2), day(2025, 2, 28).AddDays(2))
	assert.Equal(t, day(2024, 12, 31), day(2025, 1, 1).AddDays(-1))
	assert.Equal(t, time.Saturday, day(2025, 3, 1).Weekday())
	assert.Equal(t, "2025-03-01", day(2025, 3, 1).String())

	madrid := mustZone(t, "Europe/Madrid")
	mid := day(2025, 3, 1).midnight(madrid)
	assert.True(t, mid.Equal(utc(2025, time.February, 28, 23, 0)))
}

func TestParseDay(t *testing.T) {
	t.Parallel()

	got, err := ParseDay("2025-03-01")
	require.NoError(t, err)
	assert.Equal(t, day(2025, 3, 1), got)

	_, err = ParseDay("2025-02-30")
	assert.Error(t, err)
	_, err = ParseDay("01/03/2025")
	assert.Error(t, err)
}

func TestSpan_InclusiveRange(t *testing.T) {
	t.Parallel()

	span := Span{
		Start: Resolve("2025-03-01", "09:00"),
		End:   Resolve("2025-03-03", "17:00"),
	}
	tests := []struct {
		day  Day
		want bool
	}{
		{day(2025, 2, 28), false},
		{day(2025, 3, 1), true},
		{day(2025, 3, 2), true},
		{day(2025, 3, 3), true},
		{day(2025, 3, 4), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.day.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, span.Contains(tt.day, time.UTC))
		})
	}
}

func TestSpan_WithoutEndMatchesStartDayOnly(t *testing.T) {
	t.Parallel()

	span := Span{Start: Resolve("2025-03-01", "23:30")}

	matches := 0
	for d := day(2025, 2, 20); d.Before(day(2025, 3, 10)); d = d.AddDays(1) {
		if span.Contains(d, time.UTC) {
			matches++
			assert.Equal(t, day(2025, 3, 1), d)
		}
	}
	assert.Equal(t, 1, matches)
}

func TestSpan_UnparseableStartMatchesNothing(t *testing.T) {
	t.Parallel()

	span := Span{
		Start: Resolve("not-a-date", "10:00"),
		End:   Resolve("2025-03-03", "10:00"),
	}
	for d := day(2025, 2, 25); d.Before(day(2025, 3, 10)); d = d.AddDays(1) {
		assert.False(t, span.Contains(d, time.UTC), d.String())
	}
	_, _, ok := span.Days(time.UTC)
	assert.False(t, ok)
}

func TestSpan_UsesGridZone(t *testing.T) {
	t.Parallel()

	// 23:30 UTC on 1 March is already 2 March in Tokyo.
	span := Span{Start: Resolve("2025-03-01", "23:30")}
	tokyo := mustZone(t, "Asia/Tokyo")

	assert.True(t, span.Contains(day(2025, 3, 1), time.UTC))
	assert.False(t, span.Contains(day(2025, 3, 1), tokyo))
	assert.True(t, span.Contains(day(2025, 3, 2), tokyo))
}

func TestDayOf(t *testing.T) {
	t.Parallel()

	_, ok := DayOf(NoInstant, time.UTC)
	assert.False(t, ok)

	got, ok := DayOf(Resolve("2025-01-31", "28:43"), nil)
	require.True(t, ok)
	assert.Equal(t, day(2025, 2, 1), got)
}
