package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

func TestLoadBadges_Embedded(t *testing.T) {
	c, err := LoadBadges("")
	require.NoError(t, err)

	assert.Equal(t, 2, c.Version)
	require.Len(t, c.Badges, 10)
	assert.Equal(t, "first_steps", c.Badges[0].Key)
	assert.Equal(t, badge.MinAttempts(1), c.Badges[0].Rule)
	assert.Equal(t, 5, c.Badges[0].XPReward)
	assert.Equal(t, 1, c.Badges[0].Position)

	sharp, ok := c.ByKey("sharp_eye")
	require.True(t, ok)
	assert.Equal(t, badge.MinAccuracy(80, 5), sharp.Rule)

	lvl, ok := c.ByKey("level_up")
	require.True(t, ok)
	assert.Equal(t, badge.MinLevel(5), lvl.Rule)
}

func TestParseBadges_RejectsBadCatalogs(t *testing.T) {
	tests := map[string]string{
		"unknown kind": `
version: 1
badges:
  - {key: a, name: A, xp_reward: 1, rule: {kind: magic}}`,
		"duplicate key": `
version: 1
badges:
  - {key: a, name: A, rule: {kind: min_attempts, attempts: 1}}
  - {key: a, name: B, rule: {kind: min_attempts, attempts: 2}}`,
		"missing version": `
badges:
  - {key: a, name: A, rule: {kind: min_attempts, attempts: 1}}`,
		"unknown field": `
version: 1
badges:
  - {key: a, name: A, colour: red, rule: {kind: min_attempts, attempts: 1}}`,
		"bad accuracy": `
version: 1
badges:
  - {key: a, name: A, rule: {kind: min_accuracy, percent: 120, attempts: 1}}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBadges([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := ParseBadges([]byte("version: 1\nbadges:\n  - {key: a, name: A, rule: {kind: magic}}"))
	assert.ErrorIs(t, err, shared.ErrInvalidBadgeRule)
}

func TestLoadSimulations_Embedded(t *testing.T) {
	sims, err := LoadSimulations("")
	require.NoError(t, err)
	require.NotEmpty(t, sims)

	seen := map[simulation.Difficulty]bool{}
	subjects := map[string]string{}
	for _, s := range sims {
		assert.NoError(t, s.Validate())
		assert.True(t, s.IsActive)
		assert.NotEmpty(t, s.Indicators)
		assert.NotEmpty(t, s.Subject, s.Title)
		seen[s.Difficulty] = true
		subjects[s.Title] = s.Subject
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, "Action required: 2024 salary adjustment", subjects["HR salary adjustment form"])
	assert.Equal(t, "URGENT: your account has been suspended", subjects["Bank account suspended"])
}

func TestLoadSimulations_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sims.yaml")
	doc := `
simulations:
  - title: Test
    difficulty: Advanced
    category: Work
    correct_action: Report
    inactive: true
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	sims, err := LoadSimulations(path)
	require.NoError(t, err)
	require.Len(t, sims, 1)
	assert.Equal(t, simulation.DifficultyAdvanced, sims[0].Difficulty)
	assert.Equal(t, "work", sims[0].Category)
	assert.Equal(t, "report", sims[0].CorrectAction)
	assert.False(t, sims[0].IsActive)

	_, err = LoadSimulations(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
