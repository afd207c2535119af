// Package dates holds the single date policy of the ledger: every "today",
// date key and day boundary is computed in Asia/Manila.
package dates

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Zone is the IANA zone that anchors all business days.
	Zone = "Asia/Manila"
	// KeyLayout is the layout of date keys (YYYY-MM-DD).
	KeyLayout = "2006-01-02"
	// EditWindow is how long a sale stays editable after creation.
	EditWindow = 24 * time.Hour
)

// ErrInvalidRange is returned for malformed or inverted ranges.
var ErrInvalidRange = errors.New("dates: invalid range")

var manila = loadManila()

func loadManila() *time.Location {
	loc, err := time.LoadLocation(Zone)
	if err != nil {
		return time.FixedZone(Zone, 8*60*60)
	}
	return loc
}

// Location returns the business time zone.
func Location() *time.Location {
	return manila
}

// Clock supplies the current instant. Packages take a Clock instead of
// calling time.Now directly.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Now returns the clock's instant, falling back to the wall clock.
func (c Clock) Now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}

// Today returns the Manila date key of now.
func Today(now time.Time) string {
	return DateKey(now)
}

// DateKey returns the Manila date portion of t.
func DateKey(t time.Time) string {
	return t.In(manila).Format(KeyLayout)
}

// KeyOf normalises a backend date string to a Manila date key. RFC 3339
// timestamps are converted to Manila before truncation; anything else is
// cut to its first ten characters.
func KeyOf(value string) string {
	if len(value) > len(KeyLayout) {
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return DateKey(t)
		}
		return value[:len(KeyLayout)]
	}
	return value
}

// ParseKey parses a date key as midnight in Manila.
func ParseKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(KeyLayout, key, manila)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: parse %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay returns Manila midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	local := t.In(manila)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, manila)
}

// DaysBetween counts whole days from one key to another.
func DaysBetween(fromKey, toKey string) (int, error) {
	from, err := ParseKey(fromKey)
	if err != nil {
		return 0, err
	}
	to, err := ParseKey(toKey)
	if err != nil {
		return 0, err
	}
	// Manila has no DST, rounding absorbs leap seconds.
	return int(to.Sub(from).Round(time.Hour).Hours() / 24), nil
}

// WithinEditWindow reports whether a sale created at created may still be
// edited at now.
func WithinEditWindow(created, now time.Time) bool {
	if created.IsZero() {
		return false
	}
	return now.Sub(created) < EditWindow
}
