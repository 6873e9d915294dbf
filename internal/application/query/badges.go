package query

import (
	"context"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// BadgesHandler отвечает на запросы о значках.
type BadgesHandler struct {
	users  user.Repository
	badges badge.Repository
}

// NewBadgesHandler создаёт обработчик.
func NewBadgesHandler(users user.Repository, badges badge.Repository) *BadgesHandler {
	return &BadgesHandler{users: users, badges: badges}
}

// All возвращает активные значки в порядке каталога.
func (h *BadgesHandler) All(ctx context.Context) ([]BadgeDTO, error) {
	active, err := h.badges.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	return badgeDTOs(active), nil
}

// Earned возвращает значки пользователя, новые сначала.
func (h *BadgesHandler) Earned(ctx context.Context, userID int64) ([]EarnedBadgeDTO, error) {
	if err := userExists(ctx, h.users, userID); err != nil {
		return nil, err
	}
	earned, err := h.badges.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return earnedDTOs(earned), nil
}
