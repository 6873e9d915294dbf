package query

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Топ пользователей по XP. При равенстве XP выше тот, кто зарегистрирован раньше.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardHandler обрабатывает запрос лидерборда.
type GetLeaderboardHandler struct {
	users user.Repository
	cache cached
}

// NewGetLeaderboardHandler создаёт обработчик.
func NewGetLeaderboardHandler(users user.Repository) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{users: users}
}

// WithCache включает кэширование. В кэше лежит полный топ-100,
// любой меньший лимит - его префикс.
func (h *GetLeaderboardHandler) WithCache(c port.Cache, ttl time.Duration) *GetLeaderboardHandler {
	h.cache = cached{cache: c, ttl: ttl}
	return h
}

// Handle возвращает не больше limit записей (по умолчанию 10, максимум 100).
func (h *GetLeaderboardHandler) Handle(ctx context.Context, limit int) ([]analytics.LeaderboardEntry, error) {
	limit = analytics.ClampLimit(limit, analytics.DefaultLeaderboardLimit, analytics.MaxLeaderboardLimit)

	if !h.cache.enabled() {
		users, err := h.users.TopByXP(ctx, limit)
		if err != nil {
			return nil, err
		}
		return analytics.BuildLeaderboard(users, limit), nil
	}

	var top []analytics.LeaderboardEntry
	if !h.cache.load(ctx, port.CacheKeyLeaderboard, &top) {
		users, err := h.users.TopByXP(ctx, analytics.MaxLeaderboardLimit)
		if err != nil {
			return nil, err
		}
		top = analytics.BuildLeaderboard(users, analytics.MaxLeaderboardLimit)
		h.cache.store(ctx, port.CacheKeyLeaderboard, top)
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}
