package analytics

import (
	"sort"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

// Параметры глобальной статистики.
const (
	HardestMinAttempts = 5
	HardestLimit       = 5
	PopularLimit       = 5
)

// Totals - глобальные счётчики.
type Totals struct {
	TotalUsers       int     `json:"total_users"`
	TotalSimulations int     `json:"total_simulations"`
	TotalAttempts    int     `json:"total_attempts"`
	GlobalAccuracy   float64 `json:"global_accuracy"`
}

// SimulationDifficulty - успешность одной симуляции.
type SimulationDifficulty struct {
	SimulationID  int64   `json:"simulation_id"`
	Title         string  `json:"title"`
	Difficulty    string  `json:"difficulty"`
	TotalAttempts int     `json:"total_attempts"`
	SuccessRate   float64 `json:"success_rate"`

	correct int
}

// CategoryCount - число попыток в категории.
type CategoryCount struct {
	Category     string `json:"category"`
	AttemptCount int    `json:"attempt_count"`
}

// GlobalStats - глобальная статистика платформы.
type GlobalStats struct {
	Totals            Totals                 `json:"global_stats"`
	MostDifficult     []SimulationDifficulty `json:"most_difficult"`
	PopularCategories []CategoryCount        `json:"popular_categories"`
}

// TotalsOf собирает глобальные счётчики.
func TotalsOf(activeUsers, activeSimulations, totalAttempts, correctAttempts int) Totals {
	return Totals{
		TotalUsers:       activeUsers,
		TotalSimulations: activeSimulations,
		TotalAttempts:    totalAttempts,
		GlobalAccuracy:   shared.AccuracyOf(correctAttempts, totalAttempts).Rounded(),
	}
}

// HardestSimulations возвращает симуляции с минимальной долей правильных
// ответов среди тех, у кого не меньше minAttempts попыток.
// При равенстве - по ID симуляции.
func HardestSimulations(attempts []*attempt.Attempt, sims map[int64]*simulation.Simulation, minAttempts, limit int) []SimulationDifficulty {
	bySim := make(map[int64]*SimulationDifficulty)
	for _, a := range attempts {
		sim, ok := sims[a.SimulationID]
		if !ok {
			continue
		}
		s := bySim[a.SimulationID]
		if s == nil {
			s = &SimulationDifficulty{SimulationID: sim.ID, Title: sim.Title, Difficulty: string(sim.Difficulty)}
			bySim[a.SimulationID] = s
		}
		s.TotalAttempts++
		if a.IsCorrect {
			s.correct++
		}
	}

	out := make([]SimulationDifficulty, 0, len(bySim))
	for _, s := range bySim {
		if s.TotalAttempts < minAttempts {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		// a/b < c/d  <=>  a*d < c*b, без деления.
		li := out[i].correct * out[j].TotalAttempts
		lj := out[j].correct * out[i].TotalAttempts
		if li != lj {
			return li < lj
		}
		return out[i].SimulationID < out[j].SimulationID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].SuccessRate = shared.AccuracyOf(out[i].correct, out[i].TotalAttempts).Rounded()
	}
	return out
}

// PopularCategories возвращает категории с наибольшим числом попыток.
// При равенстве - по алфавиту.
func PopularCategories(attempts []*attempt.Attempt, sims map[int64]*simulation.Simulation, limit int) []CategoryCount {
	counts := make(map[string]int)
	for _, a := range attempts {
		if sim, ok := sims[a.SimulationID]; ok {
			counts[sim.Category]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, AttemptCount: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AttemptCount != out[j].AttemptCount {
			return out[i].AttemptCount > out[j].AttemptCount
		}
		return out[i].Category < out[j].Category
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
