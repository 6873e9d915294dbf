// Package simulation содержит доменную модель учебных фишинговых писем.
// Симуляции - справочные данные: движок только читает их, жизненным циклом
// управляет импорт (cmd/seed).
package simulation

import (
	"strings"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Difficulty определяет уровень сложности симуляции.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Difficulties возвращает все уровни сложности в порядке возрастания.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced}
}

// IsValid проверяет, что уровень сложности известен.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// BaseXP возвращает базовую награду за правильный ответ.
// Для неизвестной сложности - 0, без паники.
func (d Difficulty) BaseXP() int {
	switch d {
	case DifficultyBeginner:
		return 10
	case DifficultyIntermediate:
		return 20
	case DifficultyAdvanced:
		return 30
	default:
		return 0
	}
}

// ParseDifficulty нормализует строку и проверяет её.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", shared.ErrUnknownDifficulty
	}
	return d, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Simulation - фишинговое письмо с эталонным ответом.
type Simulation struct {
	ID          int64
	Title       string
	SenderName  string
	SenderEmail string
	Subject     string
	Content     string
	Difficulty  Difficulty
	Category    string

	// Решение. Раскрывается только после отправки ответа.
	CorrectAction string
	Explanation   string
	Indicators    []string

	IsActive  bool
	CreatedAt time.Time
}

// Validate проверяет инварианты симуляции перед импортом.
func (s *Simulation) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return shared.ValidationError("simulation", "Validate", "title is required")
	}
	if strings.TrimSpace(s.CorrectAction) == "" {
		return shared.ValidationError("simulation", "Validate", "correct action is required")
	}
	if strings.TrimSpace(s.Category) == "" {
		return shared.ValidationError("simulation", "Validate", "category is required")
	}
	if !s.Difficulty.IsValid() {
		return shared.ErrUnknownDifficulty
	}
	return nil
}
