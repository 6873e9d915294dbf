package port

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss - ключа нет или он истёк.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache - кэш готовых ответов аналитики. Значения сериализуются в JSON.
// Кэш необязателен: любой сбой означает чтение из хранилища.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Ключи кэша, которые сбрасываются после каждой попытки.
const (
	CacheKeyLeaderboard = "analytics:leaderboard"
	CacheKeyGlobalStats = "analytics:global_stats"
)
