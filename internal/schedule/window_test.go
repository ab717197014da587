package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func TestWithinHours(t *testing.T) {
	w := NewWindow(9, 18, 15, "UTC")

	cases := []struct {
		at   string
		want bool
	}{
		{"2024-01-01T08:59:59Z", false},
		{"2024-01-01T09:00:00Z", true},
		{"2024-01-01T12:30:00Z", true},
		{"2024-01-01T17:59:59Z", true},
		{"2024-01-01T18:00:00Z", false},
		{"2024-01-01T23:00:00Z", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, w.WithinHours(mustParse(t, tc.at)), tc.at)
	}
}

func TestWithinHoursUsesZone(t *testing.T) {
	w := NewWindow(9, 18, 15, "Asia/Kolkata")
	// 04:00Z is 09:30 IST
	assert.True(t, w.WithinHours(mustParse(t, "2024-01-01T04:00:00Z")))
	// 12:30Z is 18:00 IST
	assert.False(t, w.WithinHours(mustParse(t, "2024-01-01T12:30:00Z")))
}

func TestUnknownZoneFallsBackToLocal(t *testing.T) {
	w := NewWindow(9, 18, 15, "Mars/Olympus")
	assert.Equal(t, time.Local, w.Location())
	assert.Empty(t, w.Zone())
}

func TestSlotKey(t *testing.T) {
	w := NewWindow(9, 18, 15, "UTC")

	assert.Equal(t, "2024-01-01T10:00", w.SlotKey(mustParse(t, "2024-01-01T10:05:00Z")))
	assert.Equal(t, "2024-01-01T10:00", w.SlotKey(mustParse(t, "2024-01-01T10:14:59Z")))
	assert.Equal(t, "2024-01-01T10:15", w.SlotKey(mustParse(t, "2024-01-01T10:20:00Z")))
	assert.Equal(t, "2024-01-01T10:45", w.SlotKey(mustParse(t, "2024-01-01T10:59:00Z")))

	assert.Equal(t,
		w.SlotKey(mustParse(t, "2024-01-01T10:05:00Z")),
		w.SlotKey(mustParse(t, "2024-01-01T10:10:00Z")))
	assert.NotEqual(t,
		w.SlotKey(mustParse(t, "2024-01-01T10:10:00Z")),
		w.SlotKey(mustParse(t, "2024-01-01T10:20:00Z")))
}

func TestSlotKeySameInstantDifferentOffsets(t *testing.T) {
	w := NewWindow(9, 18, 30, "Asia/Kolkata")
	a := mustParse(t, "2024-01-01T04:40:00Z")
	b := mustParse(t, "2024-01-01T10:10:00+05:30")
	assert.Equal(t, w.SlotKey(a), w.SlotKey(b))
	assert.Equal(t, "2024-01-01T10:00", w.SlotKey(a))
}

func TestStartOfDay(t *testing.T) {
	w := NewWindow(9, 18, 15, "Asia/Kolkata")
	got := w.StartOfDay(mustParse(t, "2024-01-01T20:00:00Z"))
	assert.Equal(t, mustParse(t, "2024-01-01T18:30:00Z"), got.UTC())
}
