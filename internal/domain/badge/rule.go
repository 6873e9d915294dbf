package badge

import (
	"fmt"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULES
// Правило - вариант с тегом Kind. Каждый вариант обрабатывается в switch,
// неизвестный вид отклоняется при загрузке каталога.
// ══════════════════════════════════════════════════════════════════════════════

// RuleKind - вид правила.
type RuleKind string

const (
	KindMinAttempts RuleKind = "min_attempts"
	KindMinAccuracy RuleKind = "min_accuracy"
	KindMinStreak   RuleKind = "min_streak"
	KindMinLevel    RuleKind = "min_level"
	KindFastCorrect RuleKind = "fast_correct"
)

// Rule - условие получения значка.
type Rule struct {
	Kind     RuleKind `yaml:"kind" json:"kind"`
	Attempts int      `yaml:"attempts,omitempty" json:"attempts,omitempty"`
	Percent  float64  `yaml:"percent,omitempty" json:"percent,omitempty"`
	Days     int      `yaml:"days,omitempty" json:"days,omitempty"`
	Level    int      `yaml:"level,omitempty" json:"level,omitempty"`
	Seconds  int      `yaml:"seconds,omitempty" json:"seconds,omitempty"`
}

// MinAttempts: не меньше n попыток.
func MinAttempts(n int) Rule { return Rule{Kind: KindMinAttempts, Attempts: n} }

// MinAccuracy: точность не ниже pct при минимум minAttempts попытках.
func MinAccuracy(pct float64, minAttempts int) Rule {
	return Rule{Kind: KindMinAccuracy, Percent: pct, Attempts: minAttempts}
}

// MinStreak: серия не меньше n дней.
func MinStreak(n int) Rule { return Rule{Kind: KindMinStreak, Days: n} }

// MinLevel: уровень не ниже n.
func MinLevel(n int) Rule { return Rule{Kind: KindMinLevel, Level: n} }

// FastCorrect: есть правильный ответ быстрее seconds секунд.
func FastCorrect(seconds int) Rule { return Rule{Kind: KindFastCorrect, Seconds: seconds} }

// Snapshot - статистика пользователя, по которой проверяются правила.
type Snapshot struct {
	TotalAttempts   int
	CorrectAttempts int
	StreakDays      int
	TotalXP         shared.XP
	Level           shared.Level
	FastestCorrect  int // -1, если правильных ответов нет
}

// Accuracy возвращает точность в процентах.
func (s Snapshot) Accuracy() shared.Accuracy {
	return shared.AccuracyOf(s.CorrectAttempts, s.TotalAttempts)
}

// WithReward возвращает снимок после начисления награды: XP растёт,
// уровень пересчитывается.
func (s Snapshot) WithReward(xp int) Snapshot {
	s.TotalXP += shared.XP(xp)
	s.Level = s.TotalXP.Level()
	return s
}

// Matches проверяет правило на снимке.
func (r Rule) Matches(s Snapshot) bool {
	switch r.Kind {
	case KindMinAttempts:
		return s.TotalAttempts >= r.Attempts
	case KindMinAccuracy:
		if s.TotalAttempts < r.Attempts || s.TotalAttempts == 0 {
			return false
		}
		// correct/total >= pct/100 без округления.
		return float64(s.CorrectAttempts)*100 >= r.Percent*float64(s.TotalAttempts)
	case KindMinStreak:
		return s.StreakDays >= r.Days
	case KindMinLevel:
		return int(s.Level) >= r.Level
	case KindFastCorrect:
		return s.FastestCorrect >= 0 && s.FastestCorrect < r.Seconds
	default:
		return false
	}
}

// Validate проверяет параметры правила.
func (r Rule) Validate() error {
	bad := func(msg string) error {
		return shared.WrapError("badge", "Validate", shared.ErrInvalidInput, msg, shared.ErrInvalidBadgeRule)
	}
	switch r.Kind {
	case KindMinAttempts:
		if r.Attempts < 1 {
			return bad("min_attempts needs attempts >= 1")
		}
	case KindMinAccuracy:
		if r.Percent <= 0 || r.Percent > 100 {
			return bad("min_accuracy needs percent in (0, 100]")
		}
		if r.Attempts < 1 {
			return bad("min_accuracy needs attempts >= 1")
		}
	case KindMinStreak:
		if r.Days < 1 {
			return bad("min_streak needs days >= 1")
		}
	case KindMinLevel:
		if r.Level < 2 {
			return bad("min_level needs level >= 2")
		}
	case KindFastCorrect:
		if r.Seconds < 1 {
			return bad("fast_correct needs seconds >= 1")
		}
	default:
		return bad(fmt.Sprintf("unknown rule kind %q", r.Kind))
	}
	return nil
}

// Criteria возвращает правило в виде для API (unlock_criteria).
func (r Rule) Criteria() map[string]any {
	switch r.Kind {
	case KindMinAttempts:
		return map[string]any{"total_attempts": r.Attempts}
	case KindMinAccuracy:
		return map[string]any{"accuracy": r.Percent, "min_attempts": r.Attempts}
	case KindMinStreak:
		return map[string]any{"streak_days": r.Days}
	case KindMinLevel:
		return map[string]any{"level": r.Level}
	case KindFastCorrect:
		return map[string]any{"fast_completion": r.Seconds}
	default:
		return map[string]any{}
	}
}
