package attempt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

func TestSubmission_Validate(t *testing.T) {
	ok := Submission{UserID: 1, SimulationID: 2, Action: "report", TimeSpent: 10}
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name string
		mut  func(*Submission)
		want error
	}{
		{"missing user", func(s *Submission) { s.UserID = 0 }, shared.ErrInvalidUser},
		{"missing simulation", func(s *Submission) { s.SimulationID = -1 }, shared.ErrInvalidSimulation},
		{"blank action", func(s *Submission) { s.Action = "   " }, shared.ErrActionRequired},
		{"negative time", func(s *Submission) { s.TimeSpent = -1 }, shared.ErrNegativeTimeSpent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ok
			tt.mut(&s)
			err := s.Validate()
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, shared.IsValidation(err))
		})
	}

	long := ok
	long.Action = strings.Repeat("x", MaxActionLength+1)
	assert.True(t, shared.IsValidation(long.Validate()))
}

func TestStatsOf(t *testing.T) {
	now := time.Now()
	attempts := []*Attempt{
		New(Submission{UserID: 1, SimulationID: 1, Action: "delete", TimeSpent: 40}, true, 10, now),
		New(Submission{UserID: 1, SimulationID: 2, Action: "click", TimeSpent: 5}, false, 0, now),
		New(Submission{UserID: 1, SimulationID: 3, Action: "Report", TimeSpent: 12}, true, 25, now),
	}

	s := StatsOf(attempts)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Correct)
	assert.Equal(t, 57, s.TotalTimeSpent)
	assert.Equal(t, 12, s.FastestCorrect)
	assert.Equal(t, 66.7, s.Accuracy().Rounded())
	assert.Equal(t, "report", attempts[2].UserAction)

	assert.Equal(t, -1, StatsOf(nil).FastestCorrect)
}

func TestPage_Offset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 1, PerPage: 10}.Offset())
	assert.Equal(t, 20, Page{Number: 3, PerPage: 10}.Offset())
	assert.Equal(t, 0, Page{Number: 0, PerPage: 10}.Offset())
}
