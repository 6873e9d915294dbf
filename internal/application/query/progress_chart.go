package query

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS CHART QUERY
// Ряд по дням за окно: дневные счётчики и накопленные XP и точность.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressChartHandler обрабатывает запрос графика.
type GetProgressChartHandler struct {
	users    user.Repository
	attempts attempt.Repository
	calendar timeutil.Calendar
	clock    func() time.Time
}

// NewGetProgressChartHandler создаёт обработчик.
func NewGetProgressChartHandler(users user.Repository, attempts attempt.Repository, cal timeutil.Calendar, clock func() time.Time) *GetProgressChartHandler {
	return &GetProgressChartHandler{users: users, attempts: attempts, calendar: cal, clock: clockOrNow(clock)}
}

// Handle строит график за days дней (по умолчанию 30, максимум 365).
func (h *GetProgressChartHandler) Handle(ctx context.Context, userID int64, days int) ([]analytics.ChartPoint, error) {
	if err := userExists(ctx, h.users, userID); err != nil {
		return nil, err
	}
	days = analytics.ClampLimit(days, analytics.DefaultChartDays, analytics.MaxChartDays)
	now := h.clock()

	attempts, err := h.attempts.ListByUser(ctx, userID, h.calendar.WindowStart(now, days))
	if err != nil {
		return nil, err
	}
	return analytics.BuildProgressChart(attempts, h.calendar, now, days), nil
}
