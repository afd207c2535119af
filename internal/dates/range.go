package dates

import (
	"fmt"
	"time"
)

// Range is an inclusive window of date keys.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// NewRange validates and builds a range.
func NewRange(start, end string) (Range, error) {
	r := Range{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// Validate checks both bounds parse and start is not after end.
func (r Range) Validate() error {
	start, err := ParseKey(r.Start)
	if err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	end, err := ParseKey(r.End)
	if err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains compares the Manila date portion of key against the bounds.
func (r Range) Contains(key string) bool {
	key = KeyOf(key)
	return key >= r.Start && key <= r.End
}

// ContainsTime reports whether t falls on a Manila day inside the range.
func (r Range) ContainsTime(t time.Time) bool {
	return r.Contains(DateKey(t))
}

// Len returns the number of days in the range.
func (r Range) Len() int {
	n, err := DaysBetween(r.Start, r.End)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}

// Days enumerates every key in the range, oldest first.
func (r Range) Days() []string {
	start, err := ParseKey(r.Start)
	if err != nil {
		return nil
	}
	n := r.Len()
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, start.AddDate(0, 0, i).Format(KeyLayout))
	}
	return keys
}

// String renders the range for headers and file names.
func (r Range) String() string {
	if r.Start == r.End {
		return r.Start
	}
	return r.Start + "_" + r.End
}

// TodayRange is the single-day range of now.
func TodayRange(now time.Time) Range {
	key := Today(now)
	return Range{Start: key, End: key}
}

// LastNDays ends today and spans n days.
func LastNDays(now time.Time, n int) Range {
	if n < 1 {
		n = 1
	}
	end := StartOfDay(now)
	return Range{Start: end.AddDate(0, 0, -(n - 1)).Format(KeyLayout), End: end.Format(KeyLayout)}
}

// ThisWeek starts on Monday of the current week and ends today.
func ThisWeek(now time.Time) Range {
	day := StartOfDay(now)
	offset := (int(day.Weekday()) + 6) % 7
	return Range{Start: day.AddDate(0, 0, -offset).Format(KeyLayout), End: day.Format(KeyLayout)}
}

// ThisMonth starts on the first of the month and ends today.
func ThisMonth(now time.Time) Range {
	day := StartOfDay(now)
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, manila)
	return Range{Start: first.Format(KeyLayout), End: day.Format(KeyLayout)}
}

// PreviousPeriod returns the range of equal length that ends the day before r.
func PreviousPeriod(r Range) Range {
	start, err := ParseKey(r.Start)
	if err != nil {
		return Range{}
	}
	n := r.Len()
	end := start.AddDate(0, 0, -1)
	return Range{Start: end.AddDate(0, 0, -(n - 1)).Format(KeyLayout), End: end.Format(KeyLayout)}
}

// Preset resolves a named range ("today", "week", "month", "7d", "30d").
func Preset(name string, now time.Time) (Range, error) {
	switch name {
	case "", "today":
		return TodayRange(now), nil
	case "week":
		return ThisWeek(now), nil
	case "month":
		return ThisMonth(now), nil
	case "7d":
		return LastNDays(now, 7), nil
	case "30d":
		return LastNDays(now, 30), nil
	default:
		return Range{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidRange, name)
	}
}
