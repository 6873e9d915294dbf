package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/catalog"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/persistence/memory"
	"github.com/phishguard/phishguard-hub/pkg/logger"
)

// Seed simulation IDs follow the order of the embedded document.
const (
	simBankSuspended   = int64(1) // beginner, delete
	simBankUpgrade     = int64(5) // advanced, report
	simCEOWireTransfer = int64(6) // advanced, report
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	store   *memory.Store
	handler *SubmitAttemptHandler
	pub     *recordingPublisher
	metrics *observability.Metrics
	userID  int64
	now     time.Time
}

func newFixture(t *testing.T, initialXP int, tx port.Transactor) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	sims, err := catalog.LoadSimulations("")
	require.NoError(t, err)
	for _, s := range sims {
		require.NoError(t, store.Repos().Simulations.Upsert(ctx, s))
	}
	cat, err := catalog.LoadBadges("")
	require.NoError(t, err)
	require.NoError(t, store.Repos().Badges.SyncCatalog(ctx, cat))

	f := &fixture{
		store:   store,
		pub:     &recordingPublisher{},
		metrics: observability.NewMetrics(),
		now:     time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
	}

	u, err := user.NewUser(user.NewUserParams{Username: "learner", Email: "learner@example.com", InitialXP: initialXP, Now: f.now})
	require.NoError(t, err)
	require.NoError(t, store.Repos().Users.Create(ctx, u))
	f.userID = u.ID

	if tx == nil {
		tx = store
	}
	cfg := DefaultSubmitAttemptConfig()
	cfg.Clock = func() time.Time { return f.now }
	f.handler = NewSubmitAttemptHandler(tx, cat, f.pub, f.metrics, logger.Nop(), cfg)
	return f
}

func (f *fixture) submit(simID int64, action string, secs int) (*SubmitAttemptResult, error) {
	return f.handler.Handle(context.Background(), SubmitAttemptCommand{
		UserID:       f.userID,
		SimulationID: simID,
		Action:       action,
		TimeSpent:    secs,
	})
}

func (f *fixture) user(t *testing.T) *user.User {
	t.Helper()
	u, err := f.store.Repos().Users.GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	return u
}

func TestSubmitAttempt_CorrectAdvancedWithSpeedBonus(t *testing.T) {
	f := newFixture(t, 0, nil)

	res, err := f.submit(simBankUpgrade, "  REPORT ", 20)
	require.NoError(t, err)

	assert.True(t, res.IsCorrect)
	assert.Equal(t, 35, res.XPEarned)
	assert.Equal(t, 40, res.TotalXP)
	assert.Equal(t, 1, res.NewLevel)
	assert.False(t, res.LevelUp)
	assert.Equal(t, 1, res.StreakDays)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "first_steps", res.NewBadges[0].Key)
	assert.Equal(t, "report", res.CorrectAction)
	assert.NotEmpty(t, res.Explanation)
	assert.NotEmpty(t, res.PhishingIndicators)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, 1, res.Attempts)

	u := f.user(t)
	assert.Equal(t, shared.XP(40), u.TotalXP)
	require.NoError(t, u.CheckInvariants())

	assert.Equal(t, []shared.EventType{
		shared.EventAttemptSubmitted,
		shared.EventXPGained,
		shared.EventStreakUpdated,
		shared.EventBadgeAwarded,
	}, f.pub.types())
}

func TestSubmitAttempt_IncorrectStillCountsTowardBadges(t *testing.T) {
	f := newFixture(t, 0, nil)

	res, err := f.submit(simBankSuspended, "click", 5)
	require.NoError(t, err)

	assert.False(t, res.IsCorrect)
	assert.Zero(t, res.XPEarned)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, 5, res.TotalXP)
}

func TestSubmitAttempt_Duplicate(t *testing.T) {
	f := newFixture(t, 0, nil)

	_, err := f.submit(simBankUpgrade, "report", 20)
	require.NoError(t, err)

	_, err = f.submit(simBankUpgrade, "report", 20)
	require.Error(t, err)
	assert.True(t, shared.IsDuplicateAttempt(err))
	assert.Equal(t, shared.XP(40), f.user(t).TotalXP)

	stats, err := f.store.Repos().Attempts.StatsByUser(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

func TestSubmitAttempt_ConcurrentDuplicatesCommitOnce(t *testing.T) {
	f := newFixture(t, 0, nil)

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, dupes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.submit(simCEOWireTransfer, "report", 40)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case shared.IsDuplicateAttempt(err):
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, dupes)
	// 30 XP for the answer plus 5 for First Steps, granted once.
	assert.Equal(t, shared.XP(35), f.user(t).TotalXP)
}

func TestSubmitAttempt_BadgeRewardCanLevelUp(t *testing.T) {
	f := newFixture(t, 95, nil)

	res, err := f.submit(simBankSuspended, "delete", 45)
	require.NoError(t, err)

	assert.Equal(t, 10, res.XPEarned)
	assert.Equal(t, 110, res.TotalXP)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 2, res.NewLevel)
	assert.Contains(t, f.pub.types(), shared.EventLevelUp)
}

func TestSubmitAttempt_StreakAcrossDays(t *testing.T) {
	f := newFixture(t, 0, nil)

	res, err := f.submit(simBankSuspended, "delete", 45)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakDays)

	f.now = f.now.Add(2 * time.Hour)
	res, err = f.submit(2, "delete", 45)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakDays)

	f.now = f.now.Add(24 * time.Hour)
	res, err = f.submit(3, "report", 45)
	require.NoError(t, err)
	assert.Equal(t, 2, res.StreakDays)

	f.now = f.now.Add(72 * time.Hour)
	res, err = f.submit(4, "delete", 45)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StreakDays)
}

func TestSubmitAttempt_Rejections(t *testing.T) {
	f := newFixture(t, 0, nil)

	_, err := f.submit(simBankSuspended, "   ", 5)
	assert.True(t, shared.IsValidation(err))

	_, err = f.submit(simBankSuspended, "delete", -1)
	assert.True(t, shared.IsValidation(err))

	_, err = f.submit(999, "delete", 5)
	assert.True(t, shared.IsNotFound(err))

	_, err = f.handler.Handle(context.Background(), SubmitAttemptCommand{UserID: 999, SimulationID: simBankSuspended, Action: "delete"})
	assert.True(t, shared.IsNotFound(err))

	assert.Equal(t, shared.XP(0), f.user(t).TotalXP)
	assert.Empty(t, f.pub.types())
}

func TestSubmitAttempt_UnsyncedBadgeRollsBack(t *testing.T) {
	f := newFixture(t, 0, nil)
	ctx := context.Background()

	// The store loses first_steps while the handler's catalog still has it.
	full, err := catalog.LoadBadges("")
	require.NoError(t, err)
	partial := &badge.Catalog{Version: full.Version}
	for _, b := range full.Badges {
		if b.Key != "first_steps" {
			partial.Badges = append(partial.Badges, b)
		}
	}
	require.NoError(t, f.store.Repos().Badges.SyncCatalog(ctx, partial))

	_, err = f.submit(simBankSuspended, "delete", 10)
	require.Error(t, err)
	assert.True(t, shared.IsStorage(err))
	assert.False(t, shared.IsNotFound(err))

	stats, err := f.store.Repos().Attempts.StatsByUser(ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, stats.Total)

	exists, err := f.store.Repos().Attempts.Exists(ctx, f.userID, simBankSuspended)
	require.NoError(t, err)
	assert.False(t, exists)

	u := f.user(t)
	assert.Equal(t, shared.XP(0), u.TotalXP)
	assert.Zero(t, u.StreakDays)
	assert.Empty(t, f.pub.types())
}

// conflictingTx fails the first `failures` transactions with a write conflict.
type conflictingTx struct {
	mu       sync.Mutex
	inner    port.Transactor
	failures int
	calls    int
}

func (c *conflictingTx) WithinTx(ctx context.Context, fn port.TxFunc) error {
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.failures
	c.mu.Unlock()
	if fail {
		return shared.ConflictError("store", "WithinTx", assert.AnError)
	}
	return c.inner.WithinTx(ctx, fn)
}

func TestSubmitAttempt_RetriesConflicts(t *testing.T) {
	tx := &conflictingTx{failures: 2}
	f := newFixture(t, 0, tx)
	tx.inner = f.store

	res, err := f.submit(simBankUpgrade, "report", 20)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 40, res.TotalXP)
}

func TestSubmitAttempt_ConflictsExhausted(t *testing.T) {
	tx := &conflictingTx{failures: 100}
	f := newFixture(t, 0, tx)
	tx.inner = f.store

	_, err := f.submit(simBankUpgrade, "report", 20)
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.False(t, shared.IsDuplicateAttempt(err))
	assert.Equal(t, 3, tx.calls)
	assert.Equal(t, shared.XP(0), f.user(t).TotalXP)
}

func TestSubmitState_String(t *testing.T) {
	assert.Equal(t, "COMMITTED", StateCommitted.String())
	assert.Equal(t, "UNKNOWN", SubmitState(42).String())
}
