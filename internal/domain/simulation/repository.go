package simulation

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// ListFilter - фильтр списка активных симуляций.
type ListFilter struct {
	Difficulty Difficulty
	Category   string
	Limit      int
}

// Counts - счётчики для админской статистики.
type Counts struct {
	Total  int
	Active int
}

// Repository - каталог симуляций.
type Repository interface {
	// GetActive возвращает активную симуляцию.
	// Возвращает ErrSimulationNotFound для отсутствующей или выключенной.
	GetActive(ctx context.Context, id int64) (*Simulation, error)

	// ListActive возвращает активные симуляции по возрастанию ID.
	ListActive(ctx context.Context, filter ListFilter) ([]*Simulation, error)

	// ListAll возвращает все симуляции, включая выключенные.
	// Нужен аналитике: старые попытки ссылаются на выключенные симуляции.
	ListAll(ctx context.Context) ([]*Simulation, error)

	// Categories возвращает категории активных симуляций по алфавиту.
	Categories(ctx context.Context) ([]string, error)

	// Count возвращает общее число и число активных симуляций.
	Count(ctx context.Context) (Counts, error)

	// Upsert создаёт или обновляет симуляцию по заголовку (импорт).
	Upsert(ctx context.Context, sim *Simulation) error
}
