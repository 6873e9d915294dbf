package user

import (
	"time"

	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK POLICY
// Как считать "разницу в днях" между последней активностью и текущей.
// ══════════════════════════════════════════════════════════════════════════════

// StreakPolicy вычисляет число дней между двумя моментами.
type StreakPolicy interface {
	Name() string
	DayDiff(last, now time.Time) int
}

// Имена политик для конфигурации.
const (
	PolicyCalendar   = "calendar"
	PolicyRolling24h = "rolling24h"
)

// CalendarDayPolicy сравнивает календарные даты в заданной зоне.
// 23:59 и 00:01 следующего дня - соседние дни.
type CalendarDayPolicy struct {
	Calendar timeutil.Calendar
}

// Name реализует StreakPolicy.
func (p CalendarDayPolicy) Name() string { return PolicyCalendar }

// DayDiff реализует StreakPolicy.
func (p CalendarDayPolicy) DayDiff(last, now time.Time) int {
	return p.Calendar.DaysBetween(last, now)
}

// Rolling24hPolicy считает полные 24-часовые окна с момента последней активности.
// 23:59 и 00:01 следующего дня - тот же "день".
type Rolling24hPolicy struct{}

// Name реализует StreakPolicy.
func (Rolling24hPolicy) Name() string { return PolicyRolling24h }

// DayDiff реализует StreakPolicy.
func (Rolling24hPolicy) DayDiff(last, now time.Time) int {
	d := now.Sub(last)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// NewStreakPolicy создаёт политику по имени из конфигурации.
func NewStreakPolicy(name string, cal timeutil.Calendar) StreakPolicy {
	if name == PolicyRolling24h {
		return Rolling24hPolicy{}
	}
	return CalendarDayPolicy{Calendar: cal}
}

// NextStreak вычисляет новую серию.
//   - нет прошлой активности: 1
//   - тот же день (или часы отстают): без изменений
//   - следующий день: +1
//   - пропуск: сброс в 1
func NextStreak(policy StreakPolicy, current int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	diff := policy.DayDiff(*last, now)
	switch {
	case diff <= 0:
		return current
	case diff == 1:
		return current + 1
	default:
		return 1
	}
}
