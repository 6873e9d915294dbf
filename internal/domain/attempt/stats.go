package attempt

import "github.com/phishguard/phishguard-hub/internal/domain/shared"

// Stats - агрегированные счётчики пользователя по журналу попыток.
type Stats struct {
	Total          int
	Correct        int
	TotalTimeSpent int
	// FastestCorrect - минимальное время правильного ответа, -1 если нет.
	FastestCorrect int
}

// EmptyStats возвращает статистику пользователя без попыток.
func EmptyStats() Stats {
	return Stats{FastestCorrect: -1}
}

// Accuracy возвращает долю правильных ответов в процентах.
func (s Stats) Accuracy() shared.Accuracy {
	return shared.AccuracyOf(s.Correct, s.Total)
}

// Add учитывает ещё одну попытку.
func (s Stats) Add(a *Attempt) Stats {
	s.Total++
	s.TotalTimeSpent += a.TimeSpent
	if a.IsCorrect {
		s.Correct++
		if s.FastestCorrect < 0 || a.TimeSpent < s.FastestCorrect {
			s.FastestCorrect = a.TimeSpent
		}
	}
	return s
}

// StatsOf считает статистику по списку попыток.
func StatsOf(attempts []*Attempt) Stats {
	s := EmptyStats()
	for _, a := range attempts {
		s = s.Add(a)
	}
	return s
}
