package query

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DASHBOARD QUERY
// Полный дашборд пользователя: сводка, разбивки, активность за 7 дней,
// значки и последние попытки. Считается заново на каждый запрос.
// ══════════════════════════════════════════════════════════════════════════════

// DashboardDTO - ответ дашборда.
type DashboardDTO struct {
	analytics.Dashboard
	EarnedBadges    []EarnedBadgeDTO `json:"earned_badges"`
	AvailableBadges []BadgeDTO       `json:"available_badges"`
}

// GetDashboardHandler обрабатывает запрос дашборда.
type GetDashboardHandler struct {
	repos    port.Repositories
	calendar timeutil.Calendar
	clock    func() time.Time
}

// NewGetDashboardHandler создаёт обработчик.
func NewGetDashboardHandler(repos port.Repositories, cal timeutil.Calendar, clock func() time.Time) *GetDashboardHandler {
	return &GetDashboardHandler{repos: repos, calendar: cal, clock: clockOrNow(clock)}
}

// Handle загружает данные параллельно и собирает дашборд.
func (h *GetDashboardHandler) Handle(ctx context.Context, userID int64) (*DashboardDTO, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.dashboard")
	defer span.End()

	u, err := h.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		attempts   []*attempt.Attempt
		sims       []*simulation.Simulation
		categories []string
		earned     []*badge.UserBadge
		active     []*badge.Badge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		attempts, err = h.repos.Attempts.ListByUser(gctx, userID, time.Time{})
		return err
	})
	g.Go(func() (err error) {
		sims, err = h.repos.Simulations.ListAll(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = h.repos.Simulations.Categories(gctx)
		return err
	})
	g.Go(func() (err error) {
		earned, err = h.repos.Badges.ListByUser(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		active, err = h.repos.Badges.ListActive(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := analytics.BuildDashboard(analytics.DashboardInput{
		User:        u,
		Attempts:    attempts,
		Simulations: simulationIndex(sims),
		Categories:  categories,
		Earned:      earned,
		Active:      active,
		Calendar:    h.calendar,
		Now:         h.clock(),
	})
	return &DashboardDTO{
		Dashboard:       d,
		EarnedBadges:    earnedDTOs(d.EarnedBadges),
		AvailableBadges: badgeDTOs(d.AvailableBadges),
	}, nil
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock != nil {
		return clock
	}
	return func() time.Time { return time.Now().UTC() }
}

// userExists возвращает ErrUserNotFound для неизвестного пользователя.
func userExists(ctx context.Context, users user.Repository, id int64) error {
	_, err := users.GetByID(ctx, id)
	return err
}
