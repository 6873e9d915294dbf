package attempt

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// Page - параметры пагинации (страницы с 1).
type Page struct {
	Number  int
	PerPage int
}

// Offset возвращает смещение для запроса.
func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.PerPage
}

// Filter - фильтр для агрегирующих выборок.
type Filter struct {
	UserID int64     // 0 - все пользователи
	Since  time.Time // нулевое значение - без ограничения
}

// Repository - журнал попыток.
type Repository interface {
	// Insert добавляет попытку и заполняет ID.
	// shared.ErrAttemptDuplicate при нарушении уникальности (user, simulation).
	Insert(ctx context.Context, a *Attempt) error

	// Exists проверяет, отвечал ли пользователь на симуляцию.
	// Это только предварительная проверка: гарантию даёт ограничение в Insert.
	Exists(ctx context.Context, userID, simulationID int64) (bool, error)

	// StatsByUser считает агрегаты пользователя.
	StatsByUser(ctx context.Context, userID int64) (Stats, error)

	// ListByUser возвращает попытки пользователя начиная с since,
	// от старых к новым.
	ListByUser(ctx context.Context, userID int64, since time.Time) ([]*Attempt, error)

	// PageByUser возвращает страницу истории (новые сначала) и общее число.
	PageByUser(ctx context.Context, userID int64, page Page) ([]*Attempt, int, error)

	// ListAll возвращает попытки по фильтру, от старых к новым.
	ListAll(ctx context.Context, filter Filter) ([]*Attempt, error)

	// CountAll возвращает общее число попыток и правильных ответов.
	CountAll(ctx context.Context) (total, correct int, err error)
}
