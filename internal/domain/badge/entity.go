// Package badge содержит каталог значков и правила их получения.
// Каталог версионируется и загружается при старте; ленивого создания нет.
package badge

import (
	"time"
)

// Rarity - редкость значка (только для отображения).
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// IsValid проверяет редкость.
func (r Rarity) IsValid() bool {
	switch r {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
		return true
	default:
		return false
	}
}

// Badge - определение значка. Key - стабильный идентификатор из каталога,
// ID присваивает хранилище.
type Badge struct {
	ID          int64  `yaml:"-"`
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Rarity      Rarity `yaml:"rarity"`
	XPReward    int    `yaml:"xp_reward"`
	Rule        Rule   `yaml:"rule"`
	Position    int    `yaml:"-"`
	IsActive    bool   `yaml:"-"`

	CreatedAt time.Time `yaml:"-"`
}

// UserBadge - факт однократного получения значка.
type UserBadge struct {
	UserID   int64
	Badge    *Badge
	EarnedAt time.Time
}
