// Package attempt содержит журнал попыток - единственный источник правды
// для всей статистики. Попытки только добавляются и никогда не изменяются.
package attempt

import (
	"strings"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// MaxActionLength - ограничение длины ответа (как у колонки в БД).
const MaxActionLength = 50

// Attempt - ответ одного пользователя на одну симуляцию.
// Уникальна по (UserID, SimulationID).
type Attempt struct {
	ID           int64
	UserID       int64
	SimulationID int64
	UserAction   string
	IsCorrect    bool
	TimeSpent    int // секунды
	XPEarned     int
	CreatedAt    time.Time
}

// Submission - входные данные ответа до оценки.
type Submission struct {
	UserID       int64
	SimulationID int64
	Action       string
	TimeSpent    int
}

// Validate отклоняет некорректный ввод до любых записей.
func (s Submission) Validate() error {
	if s.UserID <= 0 {
		return shared.ErrInvalidUser
	}
	if s.SimulationID <= 0 {
		return shared.ErrInvalidSimulation
	}
	action := strings.TrimSpace(s.Action)
	if action == "" {
		return shared.ErrActionRequired
	}
	if len(action) > MaxActionLength {
		return shared.ValidationError("attempt", "Validate", "action is too long")
	}
	if s.TimeSpent < 0 {
		return shared.ErrNegativeTimeSpent
	}
	return nil
}

// Elapsed возвращает затраченное время как Duration.
func (s Submission) Elapsed() time.Duration {
	return time.Duration(s.TimeSpent) * time.Second
}

// New создаёт запись попытки из оценённого ответа.
func New(s Submission, correct bool, xp int, now time.Time) *Attempt {
	return &Attempt{
		UserID:       s.UserID,
		SimulationID: s.SimulationID,
		UserAction:   strings.ToLower(strings.TrimSpace(s.Action)),
		IsCorrect:    correct,
		TimeSpent:    s.TimeSpent,
		XPEarned:     xp,
		CreatedAt:    now,
	}
}
