package services

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date format used everywhere.
// All streak and daily-limit logic is date-keyed, never time-keyed.
const DateLayout = "2006-01-02"

// Clock yields the caller's current local calendar date. Injected so tests
// and the rollover scheduler can pin "today".
type Clock interface {
	Today() string
}

// SystemClock resolves "today" in a fixed location (defaults to server local time).
type SystemClock struct {
	Location *time.Location
}

func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.Local
	}
	return &SystemClock{Location: loc}
}

func (c *SystemClock) Today() string {
	return time.Now().In(c.Location).Format(DateLayout)
}

// FixedClock always returns the same date (test helper)
type FixedClock string

func (c FixedClock) Today() string { return string(c) }

// ParseDate validates a calendar-date string
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// AddDays shifts a date string by n calendar days
func AddDays(date string, n int) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format(DateLayout)
}

// Yesterday returns the calendar day before date
func Yesterday(date string) string {
	return AddDays(date, -1)
}

// WeekStart returns the Monday of the week containing date
func WeekStart(date string) string {
	t, err := ParseDate(date)
	if err != nil {
		return date
	}
	offset := (int(t.Weekday()) + 6) % 7 // Monday = 0
	return t.AddDate(0, 0, -offset).Format(DateLayout)
}

// NextMonday returns the Monday strictly after date
func NextMonday(date string) string {
	return AddDays(WeekStart(date), 7)
}

// DaysBetween returns b - a in calendar days (negative if b is before a)
func DaysBetween(a, b string) int {
	ta, errA := ParseDate(a)
	tb, errB := ParseDate(b)
	if errA != nil || errB != nil {
		return 0
	}
	return int(tb.Sub(ta).Hours() / 24)
}
