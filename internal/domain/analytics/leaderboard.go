package analytics

import (
	"sort"

	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// Лимиты лидерборда.
const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardEntry - строка лидерборда (публичные поля пользователя).
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     int64  `json:"user_id"`
	Username   string `json:"username"`
	Name       string `json:"name,omitempty"`
	TotalXP    int    `json:"total_xp"`
	Level      int    `json:"current_level"`
	StreakDays int    `json:"streak_days"`
}

// ClampLimit приводит лимит к допустимому диапазону.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// BuildLeaderboard ранжирует пользователей: total_xp по убыванию,
// при равенстве - ID по возрастанию. Ранг - позиция с 1.
func BuildLeaderboard(users []*user.User, limit int) []LeaderboardEntry {
	sorted := make([]*user.User, 0, len(users))
	for _, u := range users {
		if u.IsActive {
			sorted = append(sorted, u)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalXP != sorted[j].TotalXP {
			return sorted[i].TotalXP > sorted[j].TotalXP
		}
		return sorted[i].ID < sorted[j].ID
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]LeaderboardEntry, len(sorted))
	for i, u := range sorted {
		out[i] = LeaderboardEntry{
			Rank:       i + 1,
			UserID:     u.ID,
			Username:   u.Username,
			Name:       u.Name,
			TotalXP:    u.TotalXP.Int(),
			Level:      u.CurrentLevel.Int(),
			StreakDays: u.StreakDays,
		}
	}
	return out
}
