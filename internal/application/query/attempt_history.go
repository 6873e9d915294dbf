package query

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ATTEMPT HISTORY QUERY
// Постраничная история ответов пользователя, новые сначала.
// ══════════════════════════════════════════════════════════════════════════════

// Лимиты страницы истории.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// AttemptDTO - строка истории.
type AttemptDTO struct {
	ID              int64     `json:"id"`
	SimulationID    int64     `json:"simulation_id"`
	SimulationTitle string    `json:"simulation_title"`
	Difficulty      string    `json:"difficulty"`
	Category        string    `json:"category"`
	UserAction      string    `json:"user_action"`
	IsCorrect       bool      `json:"is_correct"`
	TimeSpent       int       `json:"time_spent"`
	XPEarned        int       `json:"xp_earned"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttemptPage - страница истории.
type AttemptPage struct {
	Attempts []AttemptDTO `json:"attempts"`
	Page     int          `json:"page"`
	PerPage  int          `json:"per_page"`
	Total    int          `json:"total"`
	Pages    int          `json:"pages"`
}

// GetAttemptHistoryHandler обрабатывает запрос истории.
type GetAttemptHistoryHandler struct {
	repos port.Repositories
}

// NewGetAttemptHistoryHandler создаёт обработчик.
func NewGetAttemptHistoryHandler(repos port.Repositories) *GetAttemptHistoryHandler {
	return &GetAttemptHistoryHandler{repos: repos}
}

// Handle возвращает страницу page (с 1) по perPage записей.
func (h *GetAttemptHistoryHandler) Handle(ctx context.Context, userID int64, page, perPage int) (*AttemptPage, error) {
	if err := userExists(ctx, h.repos.Users, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	perPage = analytics.ClampLimit(perPage, DefaultPerPage, MaxPerPage)

	rows, total, err := h.repos.Attempts.PageByUser(ctx, userID, attempt.Page{Number: page, PerPage: perPage})
	if err != nil {
		return nil, err
	}
	sims, err := h.repos.Simulations.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	index := simulationIndex(sims)

	out := &AttemptPage{
		Attempts: make([]AttemptDTO, 0, len(rows)),
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		Pages:    (total + perPage - 1) / perPage,
	}
	for _, a := range rows {
		dto := AttemptDTO{
			ID:           a.ID,
			SimulationID: a.SimulationID,
			UserAction:   a.UserAction,
			IsCorrect:    a.IsCorrect,
			TimeSpent:    a.TimeSpent,
			XPEarned:     a.XPEarned,
			CreatedAt:    a.CreatedAt,
		}
		if s, ok := index[a.SimulationID]; ok {
			dto.SimulationTitle = s.Title
			dto.Difficulty = string(s.Difficulty)
			dto.Category = s.Category
		}
		out.Attempts = append(out.Attempts, dto)
	}
	return out, nil
}
