package query

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// jsonCache хранит значения в JSON, как Redis.
type jsonCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newJSONCache() *jsonCache { return &jsonCache{data: map[string][]byte{}} }

func (c *jsonCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return port.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *jsonCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	c.sets++
	return nil
}

func (c *jsonCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestGetLeaderboardHandler_Cached(t *testing.T) {
	w := newWorld(t)
	cache := newJSONCache()
	h := NewGetLeaderboardHandler(w.repos.Users).WithCache(cache, time.Minute)
	ctx := context.Background()

	board, err := h.Handle(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "ben", board[0].Username)
	assert.Equal(t, 1, cache.sets)

	// Новый лидер не виден, пока кэш не сброшен.
	dan, err := user.NewUser(user.NewUserParams{Username: "dan", Email: "dan@example.com", InitialXP: 900, Now: now})
	require.NoError(t, err)
	require.NoError(t, w.repos.Users.Create(ctx, dan))

	board, err = h.Handle(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "ben", board[0].Username)
	assert.Equal(t, 1, cache.sets)

	require.NoError(t, cache.Delete(ctx, port.CacheKeyLeaderboard))
	board, err = h.Handle(ctx, 0)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, "dan", board[0].Username)
	assert.Equal(t, 1, board[0].Rank)
}

func TestGetGlobalStatsHandler_Cached(t *testing.T) {
	w := newWorld(t)
	cache := newJSONCache()
	h := NewGetGlobalStatsHandler(w.repos).WithCache(cache, time.Minute)
	ctx := context.Background()

	first, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Totals.TotalAttempts)

	w.attempt(t, w.users[0].ID, 1, true, 10, now)

	second, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Totals.TotalAttempts)

	require.NoError(t, cache.Delete(ctx, port.CacheKeyGlobalStats))
	third, err := h.Handle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Totals.TotalAttempts)
}
