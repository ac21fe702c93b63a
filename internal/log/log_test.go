package log

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestInfoWritesKeyValues(t *testing.T) {
	buf := capture(t)

	Info("snapshot refreshed", "records", 3, "source", "http")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, `msg="snapshot refreshed"`)
	assert.Contains(t, out, "records=3")
	assert.Contains(t, out, "source=http")
}

func TestErrorIncludesErr(t *testing.T) {
	buf := capture(t)

	Error("refresh failed", errors.New("boom"), "attempt", 2)

	out := buf.String()
	assert.Contains(t, out, "level=error")
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "attempt=2")
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)

	Debug("hidden")
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	Debug("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	SetLevel(LevelError)
	Info("hidden too")
	assert.Empty(t, buf.String())
}

func TestFieldsSkipsMalformedPairs(t *testing.T) {
	got := fields("a", 1, 2, "b", "dangling")
	assert.Equal(t, 1, len(got))
	assert.Equal(t, 1, got["a"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelError, ParseLevel(" ERROR "))
	assert.Equal(t, LevelInfo, ParseLevel("warn"))
}
