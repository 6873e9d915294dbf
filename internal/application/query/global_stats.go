package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET GLOBAL STATS QUERY
// Счётчики платформы, самые сложные симуляции и популярные категории.
// ══════════════════════════════════════════════════════════════════════════════

// GetGlobalStatsHandler обрабатывает запрос глобальной статистики.
type GetGlobalStatsHandler struct {
	repos port.Repositories
	cache cached
}

// NewGetGlobalStatsHandler создаёт обработчик.
func NewGetGlobalStatsHandler(repos port.Repositories) *GetGlobalStatsHandler {
	return &GetGlobalStatsHandler{repos: repos}
}

// WithCache включает кэширование результата.
func (h *GetGlobalStatsHandler) WithCache(c port.Cache, ttl time.Duration) *GetGlobalStatsHandler {
	h.cache = cached{cache: c, ttl: ttl}
	return h
}

// Handle читает счётчики и журнал параллельно.
func (h *GetGlobalStatsHandler) Handle(ctx context.Context) (*analytics.GlobalStats, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.global_stats")
	defer span.End()

	var hit analytics.GlobalStats
	if h.cache.load(ctx, port.CacheKeyGlobalStats, &hit) {
		return &hit, nil
	}
	stats, err := h.compute(ctx)
	if err != nil {
		return nil, err
	}
	h.cache.store(ctx, port.CacheKeyGlobalStats, stats)
	return stats, nil
}

func (h *GetGlobalStatsHandler) compute(ctx context.Context) (*analytics.GlobalStats, error) {
	var (
		users          user.Counts
		simCounts      simulation.Counts
		total, correct int
		attempts       []*attempt.Attempt
		sims           []*simulation.Simulation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = h.repos.Users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		simCounts, err = h.repos.Simulations.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		total, correct, err = h.repos.Attempts.CountAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		attempts, err = h.repos.Attempts.ListAll(gctx, attempt.Filter{})
		return err
	})
	g.Go(func() (err error) {
		sims, err = h.repos.Simulations.ListAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := simulationIndex(sims)
	return &analytics.GlobalStats{
		Totals:            analytics.TotalsOf(users.Active, simCounts.Active, total, correct),
		MostDifficult:     analytics.HardestSimulations(attempts, index, analytics.HardestMinAttempts, analytics.HardestLimit),
		PopularCategories: analytics.PopularCategories(attempts, index, analytics.PopularLimit),
	}, nil
}
