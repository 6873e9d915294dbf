package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ADMIN STATS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// CountsDTO - общее и активное количество.
type CountsDTO struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// AdminStats - сводка для администратора.
type AdminStats struct {
	Users       CountsDTO `json:"users"`
	Simulations CountsDTO `json:"simulations"`
	Badges      CountsDTO `json:"badges"`
	Attempts    int       `json:"attempts"`
}

// GetAdminStatsHandler обрабатывает запрос админской статистики.
type GetAdminStatsHandler struct {
	repos port.Repositories
}

// NewGetAdminStatsHandler создаёт обработчик.
func NewGetAdminStatsHandler(repos port.Repositories) *GetAdminStatsHandler {
	return &GetAdminStatsHandler{repos: repos}
}

// Handle собирает счётчики.
func (h *GetAdminStatsHandler) Handle(ctx context.Context) (*AdminStats, error) {
	var (
		users    user.Counts
		sims     simulation.Counts
		badges   badge.Counts
		attempts int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = h.repos.Users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		sims, err = h.repos.Simulations.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		badges, err = h.repos.Badges.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		attempts, _, err = h.repos.Attempts.CountAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &AdminStats{
		Users:       CountsDTO(users),
		Simulations: CountsDTO(sims),
		Badges:      CountsDTO(badges),
		Attempts:    attempts,
	}, nil
}
