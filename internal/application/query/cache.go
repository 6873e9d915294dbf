package query

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/application/port"
)

// cached - необязательный кэш результата запроса.
// Ошибки кэша не ломают запрос: при сбое данные читаются из хранилища.
type cached struct {
	cache port.Cache
	ttl   time.Duration
}

func (c cached) enabled() bool { return c.cache != nil && c.ttl > 0 }

func (c cached) load(ctx context.Context, key string, dest any) bool {
	if !c.enabled() {
		return false
	}
	return c.cache.Get(ctx, key, dest) == nil
}

func (c cached) store(ctx context.Context, key string, value any) {
	if !c.enabled() {
		return
	}
	_ = c.cache.Set(ctx, key, value, c.ttl)
}
