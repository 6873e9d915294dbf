package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

func TestScoringRules_Evaluate(t *testing.T) {
	rules := DefaultScoringRules()

	tests := []struct {
		name      string
		submitted string
		canonical string
		diff      Difficulty
		elapsed   time.Duration
		want      Score
	}{
		{"advanced fast", "report", "report", DifficultyAdvanced, 20 * time.Second, Score{true, 35, 30, 5}},
		{"advanced slow", "report", "report", DifficultyAdvanced, 30 * time.Second, Score{true, 30, 30, 0}},
		{"beginner case insensitive", "DELETE", "delete", DifficultyBeginner, 45 * time.Second, Score{true, 10, 10, 0}},
		{"intermediate trimmed", " report ", "Report", DifficultyIntermediate, 5 * time.Second, Score{true, 25, 20, 5}},
		{"wrong answer earns nothing", "click", "delete", DifficultyAdvanced, time.Second, Score{}},
		{"unknown difficulty gives bonus only", "delete", "delete", Difficulty("expert"), time.Second, Score{true, 5, 0, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Evaluate(tt.submitted, tt.canonical, tt.diff, tt.elapsed)
			assert.Equal(t, tt.want, got)
			// Same inputs, same output.
			assert.Equal(t, got, rules.Evaluate(tt.submitted, tt.canonical, tt.diff, tt.elapsed))
		})
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" Advanced ")
	assert.NoError(t, err)
	assert.Equal(t, DifficultyAdvanced, d)

	_, err = ParseDifficulty("legendary")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestSimulation_Validate(t *testing.T) {
	sim := &Simulation{Title: "BIM", CorrectAction: "delete", Category: "banking", Difficulty: DifficultyBeginner}
	assert.NoError(t, sim.Validate())

	sim.CorrectAction = " "
	assert.True(t, shared.IsValidation(sim.Validate()))
}
