package analytics

import (
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// Окно графика прогресса в днях.
const (
	DefaultChartDays = 30
	MaxChartDays     = 365
)

// ChartPoint - точка графика за один календарный день.
type ChartPoint struct {
	Date               string  `json:"date"`
	Attempts           int     `json:"attempts"`
	Correct            int     `json:"correct"`
	XPEarned           int     `json:"xp_earned"`
	CumulativeXP       int     `json:"cumulative_xp"`
	CumulativeAccuracy float64 `json:"cumulative_accuracy"`
}

// BuildProgressChart строит ряд из days точек, старые сначала, последний - сегодня.
// Накопленные значения считаются по попыткам внутри окна и переносятся
// на пустые дни; дневные счётчики пустых дней - нули.
func BuildProgressChart(attempts []*attempt.Attempt, cal timeutil.Calendar, now time.Time, days int) []ChartPoint {
	keys := cal.LastNDays(now, days)
	if len(keys) == 0 {
		return nil
	}
	index := make(map[string]int, len(keys))
	points := make([]ChartPoint, len(keys))
	for i, k := range keys {
		index[k] = i
		points[i].Date = k
	}

	for _, a := range attempts {
		i, ok := index[cal.DateKey(a.CreatedAt)]
		if !ok {
			continue
		}
		points[i].Attempts++
		if a.IsCorrect {
			points[i].Correct++
		}
		points[i].XPEarned += a.XPEarned
	}

	var cumXP, cumCorrect, cumTotal int
	for i := range points {
		cumXP += points[i].XPEarned
		cumCorrect += points[i].Correct
		cumTotal += points[i].Attempts
		points[i].CumulativeXP = cumXP
		points[i].CumulativeAccuracy = shared.AccuracyOf(cumCorrect, cumTotal).Rounded()
	}
	return points
}
