package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayIsAnchoredToManila(t *testing.T) {
	// 17:30 UTC is already the next day in Manila (+08:00).
	now := time.Date(2024, 1, 1, 17, 30, 0, 0, time.UTC)
	assert.Equal(t, "2024-01-02", Today(now))
	assert.Equal(t, "2024-01-01", DateKey(time.Date(2024, 1, 1, 15, 59, 0, 0, time.UTC)))
}

func TestRangeContains(t *testing.T) {
	r, err := NewRange("2024-01-01", "2024-01-03")
	require.NoError(t, err)
	assert.True(t, r.Contains("2024-01-01"))
	assert.True(t, r.Contains("2024-01-03T23:59:59+08:00"))
	assert.False(t, r.Contains("2024-01-04"))
	assert.False(t, r.Contains("2023-12-31"))
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, r.Days())
}

func TestNewRangeRejectsInverted(t *testing.T) {
	_, err := NewRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = NewRange("yesterday", "2024-01-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestPresets(t *testing.T) {
	// Wednesday 2024-03-13 10:00 Manila.
	now := time.Date(2024, 3, 13, 2, 0, 0, 0, time.UTC)
	week := ThisWeek(now)
	assert.Equal(t, Range{Start: "2024-03-11", End: "2024-03-13"}, week)
	assert.Equal(t, Range{Start: "2024-03-01", End: "2024-03-13"}, ThisMonth(now))
	assert.Equal(t, Range{Start: "2024-03-07", End: "2024-03-13"}, LastNDays(now, 7))
	assert.Equal(t, Range{Start: "2024-03-08", End: "2024-03-10"}, PreviousPeriod(week))

	_, err := Preset("fortnight", now)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2024, 3, 13, 6, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{now.Add(-30 * time.Second), "just now"},
		{now.Add(-5 * time.Minute), "5 minutes ago"},
		{now.Add(-1 * time.Minute), "1 minute ago"},
		{now.Add(-3 * time.Hour), "3 hours ago"},
		{now.Add(-24 * time.Hour), "yesterday"},
		{now.Add(-4 * 24 * time.Hour), "4 days ago"},
		{now.Add(-10 * 24 * time.Hour), "Mar 3, 2024"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatRelative(tc.at, now))
	}
}

func TestWithinEditWindow(t *testing.T) {
	now := time.Date(2024, 3, 13, 6, 0, 0, 0, time.UTC)
	assert.True(t, WithinEditWindow(now.Add(-23*time.Hour), now))
	assert.False(t, WithinEditWindow(now.Add(-25*time.Hour), now))
	assert.False(t, WithinEditWindow(time.Time{}, now))
}

func TestKeyOfConvertsTimestampsToManila(t *testing.T) {
	assert.Equal(t, "2024-01-02", KeyOf("2024-01-01T16:30:00Z"))
	assert.Equal(t, "2024-01-01", KeyOf("2024-01-01T15:59:59.999Z"))
	assert.Equal(t, "2024-01-01", KeyOf("2024-01-01"))
	assert.Equal(t, "2024-01-01", KeyOf("2024-01-01 09:00"))
}
