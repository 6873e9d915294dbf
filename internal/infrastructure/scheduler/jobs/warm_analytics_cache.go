// Package jobs содержит фоновые задачи планировщика.
package jobs

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
)

// LeaderboardLoader - запрос лидерборда, заполняющий кэш при промахе.
type LeaderboardLoader interface {
	Handle(ctx context.Context, limit int) ([]analytics.LeaderboardEntry, error)
}

// GlobalStatsLoader - запрос глобальной статистики с тем же поведением.
type GlobalStatsLoader interface {
	Handle(ctx context.Context) (*analytics.GlobalStats, error)
}

// ═══════════════════════════════════════════════════════════════════════════
// WARM ANALYTICS CACHE JOB
// После каждой попытки кэш аналитики сбрасывается. Задача заранее
// пересчитывает его, чтобы первый читатель не платил за агрегацию.
// ═══════════════════════════════════════════════════════════════════════════

// WarmAnalyticsCacheJob прогревает кэш лидерборда и глобальной статистики.
type WarmAnalyticsCacheJob struct {
	leaderboard LeaderboardLoader
	stats       GlobalStatsLoader
}

// NewWarmAnalyticsCacheJob создаёт задачу.
func NewWarmAnalyticsCacheJob(leaderboard LeaderboardLoader, stats GlobalStatsLoader) *WarmAnalyticsCacheJob {
	return &WarmAnalyticsCacheJob{leaderboard: leaderboard, stats: stats}
}

func (j *WarmAnalyticsCacheJob) Name() string { return "warm_analytics_cache" }

func (j *WarmAnalyticsCacheJob) Description() string {
	return "Recompute cached leaderboard and global statistics"
}

// Run запрашивает оба представления параллельно. Лидерборд берётся
// максимального размера: в кэше всегда хранится полный топ.
func (j *WarmAnalyticsCacheJob) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := j.leaderboard.Handle(gctx, analytics.MaxLeaderboardLimit)
		return err
	})
	g.Go(func() error {
		_, err := j.stats.Handle(gctx)
		return err
	})
	return g.Wait()
}
