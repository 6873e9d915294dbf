// Package timeutil provides calendar helpers bound to an explicit location.
// Streaks and daily analytics buckets are both computed here so they always
// agree on where a day starts.
// Only the standard library is used; time.Location already covers zones.
package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the key format for daily buckets.
const DateLayout = "2006-01-02"

// Calendar interprets instants as calendar dates in one location.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a Calendar for loc. A nil location means UTC.
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

// LoadCalendar resolves an IANA zone name such as "Africa/Maputo".
func LoadCalendar(name string) (Calendar, error) {
	if name == "" {
		return NewCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Calendar{}, fmt.Errorf("timeutil: load location %q: %w", name, err)
	}
	return NewCalendar(loc), nil
}

// UTC is the default calendar.
var UTC = NewCalendar(time.UTC)

// Location returns the calendar's location.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// StartOfDay returns local midnight of the day containing t.
func (c Calendar) StartOfDay(t time.Time) time.Time {
	local := t.In(c.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.Location())
}

// DateKey formats the local calendar date of t as YYYY-MM-DD.
func (c Calendar) DateKey(t time.Time) string {
	return t.In(c.Location()).Format(DateLayout)
}

// DaysBetween counts calendar-day boundaries crossed going from a to b.
// 23:59 to 00:01 the next day is 1; 00:01 to 23:59 the same day is 0.
// The result is negative when b is on an earlier date than a.
func (c Calendar) DaysBetween(a, b time.Time) int {
	la := a.In(c.Location())
	lb := b.In(c.Location())
	// Dates are rebuilt in UTC so DST shifts never produce 23h or 25h days.
	da := time.Date(la.Year(), la.Month(), la.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(lb.Year(), lb.Month(), lb.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// LastNDays returns the date keys of the n days ending with the day of now,
// oldest first.
func (c Calendar) LastNDays(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	start := c.StartOfDay(now)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = start.AddDate(0, 0, i-(n-1)).Format(DateLayout)
	}
	return keys
}

// WindowStart returns local midnight n-1 days before now, so a window of n
// days includes today.
func (c Calendar) WindowStart(now time.Time, n int) time.Time {
	if n < 1 {
		n = 1
	}
	return c.StartOfDay(now).AddDate(0, 0, -(n - 1))
}
