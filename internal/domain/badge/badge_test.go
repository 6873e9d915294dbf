package badge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

type fakeLedger struct {
	held     map[string]bool
	conflict map[string]bool
	awarded  []string
	failOn   string
}

func newLedger() *fakeLedger {
	return &fakeLedger{held: map[string]bool{}, conflict: map[string]bool{}}
}

func (l *fakeLedger) Has(_ context.Context, b Badge) (bool, error) {
	return l.held[b.Key], nil
}

func (l *fakeLedger) Award(_ context.Context, b Badge) (bool, error) {
	if b.Key == l.failOn {
		return false, errors.New("disk on fire")
	}
	if l.conflict[b.Key] {
		return false, nil
	}
	l.held[b.Key] = true
	l.awarded = append(l.awarded, b.Key)
	return true, nil
}

func mustCatalog(t *testing.T, badges ...Badge) *Catalog {
	t.Helper()
	c := &Catalog{Version: 1, Badges: badges}
	require.NoError(t, c.Validate())
	return c
}

func TestRule_Matches(t *testing.T) {
	snap := Snapshot{TotalAttempts: 5, CorrectAttempts: 4, StreakDays: 7, TotalXP: 1600, Level: 5, FastestCorrect: 9}

	assert.True(t, MinAttempts(5).Matches(snap))
	assert.False(t, MinAttempts(6).Matches(snap))
	assert.True(t, MinAccuracy(80, 5).Matches(snap))
	assert.False(t, MinAccuracy(80, 6).Matches(snap))
	assert.False(t, MinAccuracy(100, 5).Matches(snap))
	assert.True(t, MinStreak(7).Matches(snap))
	assert.True(t, MinLevel(5).Matches(snap))
	assert.False(t, MinLevel(6).Matches(snap))
	assert.True(t, FastCorrect(10).Matches(snap))
	assert.False(t, FastCorrect(9).Matches(snap))
	assert.False(t, FastCorrect(10).Matches(Snapshot{FastestCorrect: -1}))
	assert.False(t, Rule{Kind: "bogus"}.Matches(snap))
}

func TestRule_Criteria(t *testing.T) {
	assert.Equal(t, map[string]any{"total_attempts": 1}, MinAttempts(1).Criteria())
	assert.Equal(t, map[string]any{"accuracy": 80.0, "min_attempts": 5}, MinAccuracy(80, 5).Criteria())
}

func TestSnapshot_WithReward(t *testing.T) {
	s := Snapshot{TotalXP: 90, Level: 1}.WithReward(15)
	assert.Equal(t, shared.XP(105), s.TotalXP)
	assert.Equal(t, shared.Level(2), s.Level)
}

func TestCatalog_EvaluateAwardsInOrder(t *testing.T) {
	c := mustCatalog(t,
		Badge{Key: "first", Name: "First", XPReward: 5, Rule: MinAttempts(1)},
		Badge{Key: "five", Name: "Five", XPReward: 10, Rule: MinAttempts(5)},
		Badge{Key: "streak", Name: "Streak", XPReward: 20, Rule: MinStreak(1)},
	)
	ledger := newLedger()

	got, err := c.Evaluate(context.Background(), Snapshot{TotalAttempts: 1, CorrectAttempts: 1, StreakDays: 1, TotalXP: 35, Level: 1}, ledger)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "streak"}, ledger.awarded)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Key)
}

func TestCatalog_EvaluateFollowsCascade(t *testing.T) {
	// The level badge comes first, so only a second pass can see the level
	// reached through the attempts badge reward.
	c := mustCatalog(t,
		Badge{Key: "level2", Name: "Level 2", XPReward: 0, Rule: MinLevel(2)},
		Badge{Key: "first", Name: "First", XPReward: 70, Rule: MinAttempts(1)},
	)
	ledger := newLedger()

	got, err := c.Evaluate(context.Background(), Snapshot{TotalAttempts: 1, TotalXP: 35, Level: 1, FastestCorrect: -1}, ledger)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"first", "level2"}, ledger.awarded)
}

func TestCatalog_EvaluateSkipsHeldAndConflicts(t *testing.T) {
	c := mustCatalog(t,
		Badge{Key: "first", Name: "First", XPReward: 5, Rule: MinAttempts(1)},
		Badge{Key: "level2", Name: "Level 2", XPReward: 0, Rule: MinLevel(2)},
		Badge{Key: "raced", Name: "Raced", XPReward: 80, Rule: MinAttempts(1)},
	)
	ledger := newLedger()
	ledger.held["first"] = true
	ledger.conflict["raced"] = true

	got, err := c.Evaluate(context.Background(), Snapshot{TotalAttempts: 1, TotalXP: 35, Level: 1}, ledger)
	require.NoError(t, err)
	// Conflict grants no XP, so the level badge stays locked.
	assert.Empty(t, got)
	assert.Empty(t, ledger.awarded)
}

func TestCatalog_EvaluatePropagatesErrors(t *testing.T) {
	c := mustCatalog(t, Badge{Key: "first", Name: "First", Rule: MinAttempts(1)})
	ledger := newLedger()
	ledger.failOn = "first"

	_, err := c.Evaluate(context.Background(), Snapshot{TotalAttempts: 1, Level: 1}, ledger)
	assert.Error(t, err)
}

func TestCatalog_Validate(t *testing.T) {
	c := &Catalog{Version: 1, Badges: []Badge{{Key: "a", Name: "A", Rule: MinAttempts(1)}}}
	require.NoError(t, c.Validate())
	assert.Equal(t, RarityCommon, c.Badges[0].Rarity)
	assert.True(t, c.Badges[0].IsActive)
	assert.Equal(t, []string{"a"}, c.Keys())

	dupName := &Catalog{Version: 1, Badges: []Badge{
		{Key: "a", Name: "A", Rule: MinAttempts(1)},
		{Key: "b", Name: "A", Rule: MinAttempts(1)},
	}}
	assert.True(t, shared.IsValidation(dupName.Validate()))

	negative := &Catalog{Version: 1, Badges: []Badge{{Key: "a", Name: "A", XPReward: -1, Rule: MinAttempts(1)}}}
	assert.Error(t, negative.Validate())
}
