package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_DaysBetween(t *testing.T) {
	cal := UTC
	base := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name string
		to   time.Time
		want int
	}{
		{"same instant", base, 0},
		{"just past midnight", base.Add(2 * time.Minute), 1},
		{"same day earlier", time.Date(2024, 3, 10, 0, 1, 0, 0, time.UTC), 0},
		{"47 hours later", base.Add(47 * time.Hour), 2},
		{"three days later", time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC), 3},
		{"previous day", time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.DaysBetween(base, tt.to))
		})
	}
}

func TestCalendar_DaysBetweenRespectsLocation(t *testing.T) {
	// 22:30 UTC and 23:30 UTC are different days at UTC+2.
	cal := NewCalendar(time.FixedZone("CAT", 2*60*60))
	a := time.Date(2024, 3, 10, 21, 30, 0, 0, time.UTC)
	b := time.Date(2024, 3, 10, 22, 30, 0, 0, time.UTC)

	assert.Equal(t, 0, UTC.DaysBetween(a, b))
	assert.Equal(t, 1, cal.DaysBetween(a, b))
}

func TestCalendar_DateKeyAndWindow(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)

	assert.Equal(t, "2024-03-10", UTC.DateKey(now))
	assert.Equal(t, []string{"2024-03-08", "2024-03-09", "2024-03-10"}, UTC.LastNDays(now, 3))
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), UTC.WindowStart(now, 3))
	assert.Nil(t, UTC.LastNDays(now, 0))
}

func TestLoadCalendar(t *testing.T) {
	cal, err := LoadCalendar("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cal.Location())

	_, err = LoadCalendar("Not/AZone")
	assert.Error(t, err)
}
