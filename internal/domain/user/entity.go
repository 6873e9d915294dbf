// Package user содержит доменную модель обучающегося: XP, уровень, серию дней.
// Запись в эти поля выполняет только транзакция прогресса.
package user

import (
	"strings"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// User - обучающийся с кэшированным прогрессом.
// Инвариант: CurrentLevel == TotalXP.Level() после любой мутации.
type User struct {
	ID           int64
	Username     string
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool

	TotalXP      shared.XP
	CurrentLevel shared.Level
	StreakDays   int
	LastActivity *time.Time

	CreatedAt time.Time
}

// NewUserParams - параметры создания пользователя.
type NewUserParams struct {
	Username     string
	Email        string
	Name         string
	PasswordHash string
	InitialXP    int
	Now          time.Time
}

// NewUser создаёт активного пользователя с согласованным уровнем.
func NewUser(p NewUserParams) (*User, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, shared.ValidationError("user", "New", "username is required")
	}
	if !strings.Contains(p.Email, "@") {
		return nil, shared.ValidationError("user", "New", "invalid email")
	}
	if p.InitialXP < 0 {
		return nil, shared.ErrNegativeXP
	}
	xp := shared.XP(p.InitialXP)
	return &User{
		Username:     strings.TrimSpace(p.Username),
		Email:        strings.ToLower(strings.TrimSpace(p.Email)),
		Name:         p.Name,
		PasswordHash: p.PasswordHash,
		IsActive:     true,
		TotalXP:      xp,
		CurrentLevel: xp.Level(),
		CreatedAt:    p.Now,
	}, nil
}

// AddXP начисляет XP и пересчитывает уровень.
// Возвращает true, если уровень вырос.
func (u *User) AddXP(amount int) (bool, error) {
	xp, err := u.TotalXP.Add(amount)
	if err != nil {
		return false, err
	}
	old := u.CurrentLevel
	u.TotalXP = xp
	u.CurrentLevel = xp.Level()
	return u.CurrentLevel > old, nil
}

// RecordActivity обновляет серию дней по заданной политике.
// LastActivity всегда становится now.
func (u *User) RecordActivity(policy StreakPolicy, now time.Time) {
	u.StreakDays = NextStreak(policy, u.StreakDays, u.LastActivity, now)
	t := now
	u.LastActivity = &t
}

// LevelProgress возвращает прогресс до следующего уровня в процентах.
func (u *User) LevelProgress() float64 {
	return u.TotalXP.ProgressPercent(u.CurrentLevel)
}

// XPForNextLevel возвращает, сколько XP осталось до следующего уровня.
func (u *User) XPForNextLevel() int {
	return u.TotalXP.ToNextLevel(u.CurrentLevel)
}

// CheckInvariants проверяет согласованность кэшированных полей.
func (u *User) CheckInvariants() error {
	if !u.TotalXP.IsValid() {
		return shared.ErrNegativeXP
	}
	if u.StreakDays < 0 {
		return shared.NewDomainError("user", "CheckInvariants", shared.ErrNegativeValue, "streak cannot be negative")
	}
	if u.CurrentLevel != u.TotalXP.Level() {
		return shared.NewDomainError("user", "CheckInvariants", shared.ErrValidation, "level does not match XP")
	}
	return nil
}
