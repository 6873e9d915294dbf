package simulation

import (
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING
// ══════════════════════════════════════════════════════════════════════════════

// ScoringRules задаёт бонус за скорость.
type ScoringRules struct {
	SpeedBonusXP   int
	SpeedThreshold time.Duration
}

// DefaultScoringRules: +5 XP за правильный ответ быстрее 30 секунд.
func DefaultScoringRules() ScoringRules {
	return ScoringRules{
		SpeedBonusXP:   5,
		SpeedThreshold: 30 * time.Second,
	}
}

// Score - результат оценки ответа.
type Score struct {
	IsCorrect bool
	XPEarned  int
	BaseXP    int
	BonusXP   int
}

// Evaluate оценивает ответ пользователя. Чистая функция.
// Сравнение без учёта регистра; пробелы по краям отбрасываются.
// Отрицательное время должно быть отклонено вызывающим кодом.
func (r ScoringRules) Evaluate(submitted, canonical string, difficulty Difficulty, elapsed time.Duration) Score {
	correct := strings.EqualFold(strings.TrimSpace(submitted), strings.TrimSpace(canonical))
	if !correct {
		return Score{}
	}

	s := Score{IsCorrect: true, BaseXP: difficulty.BaseXP()}
	if elapsed < r.SpeedThreshold {
		s.BonusXP = r.SpeedBonusXP
	}
	s.XPEarned = s.BaseXP + s.BonusXP
	return s
}

// Score оценивает ответ на эту симуляцию.
func (s *Simulation) Score(rules ScoringRules, submitted string, elapsed time.Duration) Score {
	return rules.Evaluate(submitted, s.CorrectAction, s.Difficulty, elapsed)
}
