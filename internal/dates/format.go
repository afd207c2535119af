package dates

import (
	"fmt"
	"time"
)

const absoluteLayout = "Jan 2, 2006 3:04 PM"

// FormatAbsolute renders t in Manila, e.g. "Mar 5, 2024 2:30 PM".
func FormatAbsolute(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(manila).Format(absoluteLayout)
}

// FormatDate renders only the calendar date, e.g. "Mar 5, 2024".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(manila).Format("Jan 2, 2006")
}

// FormatRelative renders t relative to now. Anything older than a week is
// written as an absolute date.
func FormatRelative(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := now.Sub(t)
	if d < 0 {
		return FormatAbsolute(t)
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case DateKey(t) == DateKey(now):
		return plural(int(d/time.Hour), "hour") + " ago"
	}
	days, err := DaysBetween(DateKey(t), DateKey(now))
	if err != nil {
		return FormatAbsolute(t)
	}
	switch {
	case days <= 1:
		return "yesterday"
	case days < 7:
		return plural(days, "day") + " ago"
	default:
		return FormatDate(t)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
