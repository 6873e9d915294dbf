package query

import (
	"context"

	"github.com/phishguard/phishguard-hub/internal/domain/analytics"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIMULATION CATALOG QUERIES
// Список активных симуляций, одна симуляция, категории и уровни сложности.
// ══════════════════════════════════════════════════════════════════════════════

// Лимиты списка симуляций.
const (
	DefaultSimulationLimit = 50
	MaxSimulationLimit     = 100
)

// ListSimulationsQuery - фильтры списка.
type ListSimulationsQuery struct {
	Difficulty string
	Category   string
	Limit      int
}

// SimulationsHandler отвечает на запросы каталога симуляций.
type SimulationsHandler struct {
	sims simulation.Repository
}

// NewSimulationsHandler создаёт обработчик.
func NewSimulationsHandler(sims simulation.Repository) *SimulationsHandler {
	return &SimulationsHandler{sims: sims}
}

// List возвращает активные симуляции по возрастанию ID.
func (h *SimulationsHandler) List(ctx context.Context, q ListSimulationsQuery) ([]SimulationDTO, error) {
	filter := simulation.ListFilter{
		Category: q.Category,
		Limit:    analytics.ClampLimit(q.Limit, DefaultSimulationLimit, MaxSimulationLimit),
	}
	if q.Difficulty != "" {
		d, err := simulation.ParseDifficulty(q.Difficulty)
		if err != nil {
			return nil, err
		}
		filter.Difficulty = d
	}

	sims, err := h.sims.ListActive(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]SimulationDTO, 0, len(sims))
	for _, s := range sims {
		out = append(out, simulationDTO(s))
	}
	return out, nil
}

// Get возвращает активную симуляцию без ответа.
func (h *SimulationsHandler) Get(ctx context.Context, id int64) (*SimulationDTO, error) {
	if id <= 0 {
		return nil, shared.ErrSimulationNotFound
	}
	s, err := h.sims.GetActive(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := simulationDTO(s)
	return &dto, nil
}

// Categories возвращает категории активных симуляций по алфавиту.
func (h *SimulationsHandler) Categories(ctx context.Context) ([]string, error) {
	return h.sims.Categories(ctx)
}

// Difficulties возвращает уровни сложности по возрастанию.
func (h *SimulationsHandler) Difficulties() []string {
	out := make([]string, 0, 3)
	for _, d := range simulation.Difficulties() {
		out = append(out, string(d))
	}
	return out
}
