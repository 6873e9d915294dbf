package badge

import (
	"context"
	"time"
)

// Counts - счётчики значков.
type Counts struct {
	Total  int
	Active int
}

// Repository - хранилище значков и выданных наград.
type Repository interface {
	// SyncCatalog идемпотентно сохраняет каталог (upsert по ключу и имени).
	// Значки, которых нет в каталоге, выключаются. Проставляет ID.
	SyncCatalog(ctx context.Context, c *Catalog) error

	// HasBadge проверяет, выдан ли значок пользователю.
	HasBadge(ctx context.Context, userID int64, key string) (bool, error)

	// Award выдаёт значок. Возвращает false без ошибки, если он уже выдан.
	Award(ctx context.Context, userID int64, key string, at time.Time) (bool, error)

	// ListActive возвращает активные значки в порядке каталога.
	ListActive(ctx context.Context) ([]*Badge, error)

	// ListByUser возвращает значки пользователя, новые сначала.
	ListByUser(ctx context.Context, userID int64) ([]*UserBadge, error)

	// Count возвращает общее число и число активных значков.
	Count(ctx context.Context) (Counts, error)
}
