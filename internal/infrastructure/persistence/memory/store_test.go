package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newUser(t *testing.T, s *Store, name string) *user.User {
	t.Helper()
	u, err := user.NewUser(user.NewUserParams{Username: name, Email: name + "@example.com", Now: t0})
	require.NoError(t, err)
	require.NoError(t, s.Repos().Users.Create(context.Background(), u))
	return u
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r port.Repositories) error {
		require.NoError(t, r.Attempts.Insert(ctx, &attempt.Attempt{UserID: u.ID, SimulationID: 1, CreatedAt: t0}))
		u.TotalXP = 50
		require.NoError(t, r.Users.SaveProgress(ctx, u))
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := s.Repos().Attempts.Exists(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.False(t, exists)

	got, err := s.Repos().Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.XP(0), got.TotalXP)
}

func TestWithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := New()
	u := newUser(t, s, "bob")

	err := s.WithinTx(ctx, func(ctx context.Context, r port.Repositories) error {
		return r.Attempts.Insert(ctx, &attempt.Attempt{UserID: u.ID, SimulationID: 1, CreatedAt: t0})
	})
	require.NoError(t, err)

	exists, err := s.Repos().Attempts.Exists(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAttempts_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Attempts

	require.NoError(t, repo.Insert(ctx, &attempt.Attempt{UserID: 1, SimulationID: 2}))
	err := repo.Insert(ctx, &attempt.Attempt{UserID: 1, SimulationID: 2})
	assert.True(t, shared.IsDuplicateAttempt(err))
}

func TestAttempts_PageByUser(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Attempts
	for sim := int64(1); sim <= 5; sim++ {
		require.NoError(t, repo.Insert(ctx, &attempt.Attempt{UserID: 1, SimulationID: sim, CreatedAt: t0.Add(time.Duration(sim) * time.Minute)}))
	}
	require.NoError(t, repo.Insert(ctx, &attempt.Attempt{UserID: 2, SimulationID: 1}))

	page, total, err := repo.PageByUser(ctx, 1, attempt.Page{Number: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(5), page[0].SimulationID)
	assert.Equal(t, int64(4), page[1].SimulationID)

	page, _, err = repo.PageByUser(ctx, 1, attempt.Page{Number: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].SimulationID)

	page, _, err = repo.PageByUser(ctx, 1, attempt.Page{Number: 9, PerPage: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestBadges_SyncAndAward(t *testing.T) {
	ctx := context.Background()
	repo := New().Repos().Badges

	cat := &badge.Catalog{Version: 1, Badges: []badge.Badge{
		{Key: "first", Name: "First", Rule: badge.MinAttempts(1), XPReward: 5},
		{Key: "old", Name: "Old", Rule: badge.MinAttempts(100)},
	}}
	require.NoError(t, cat.Validate())
	require.NoError(t, repo.SyncCatalog(ctx, cat))
	firstID := cat.Badges[0].ID
	assert.NotZero(t, firstID)

	// Следующая версия каталога убирает "old".
	next := &badge.Catalog{Version: 2, Badges: []badge.Badge{
		{Key: "first", Name: "First Steps", Rule: badge.MinAttempts(1), XPReward: 5},
	}}
	require.NoError(t, next.Validate())
	require.NoError(t, repo.SyncCatalog(ctx, next))
	assert.Equal(t, firstID, next.Badges[0].ID)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "First Steps", active[0].Name)

	counts, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, badge.Counts{Total: 2, Active: 1}, counts)

	ok, err := repo.Award(ctx, 7, "first", t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Award(ctx, 7, "first", t0)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Award(ctx, 7, "old", t0)
	assert.True(t, shared.IsNotFound(err))

	has, err := repo.HasBadge(ctx, 7, "first")
	require.NoError(t, err)
	assert.True(t, has)

	earned, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.Equal(t, t0, earned[0].EarnedAt)
}

func TestUsers_TopByXP(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := newUser(t, s, "a")
	b := newUser(t, s, "b")
	c := newUser(t, s, "c")

	for u, xp := range map[*user.User]int{a: 100, b: 300, c: 100} {
		_, err := u.AddXP(xp)
		require.NoError(t, err)
		require.NoError(t, s.Repos().Users.SaveProgress(ctx, u))
	}

	top, err := s.Repos().Users.TopByXP(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID}, []int64{top[0].ID, top[1].ID, top[2].ID})

	err = s.Repos().Users.Create(ctx, &user.User{Username: "a", Email: "other@example.com"})
	assert.True(t, shared.IsAlreadyExists(err))
}
