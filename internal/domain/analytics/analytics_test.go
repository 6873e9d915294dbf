package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

var now = time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)

func sims() map[int64]*simulation.Simulation {
	return map[int64]*simulation.Simulation{
		1: {ID: 1, Title: "Bank", Difficulty: simulation.DifficultyBeginner, Category: "banking", IsActive: true},
		2: {ID: 2, Title: "Invoice", Difficulty: simulation.DifficultyAdvanced, Category: "work", IsActive: true},
		3: {ID: 3, Title: "Parcel", Difficulty: simulation.DifficultyIntermediate, Category: "shopping", IsActive: true},
	}
}

func att(id, userID, simID int64, correct bool, xp, secs int, at time.Time) *attempt.Attempt {
	return &attempt.Attempt{ID: id, UserID: userID, SimulationID: simID, IsCorrect: correct, XPEarned: xp, TimeSpent: secs, CreatedAt: at}
}

func TestBuildDashboard(t *testing.T) {
	u := &user.User{ID: 7, IsActive: true, TotalXP: 150, CurrentLevel: 2, StreakDays: 3}
	first := &badge.Badge{ID: 1, Key: "first_steps"}
	second := &badge.Badge{ID: 2, Key: "sharp_eye"}

	d := BuildDashboard(DashboardInput{
		User: u,
		Attempts: []*attempt.Attempt{
			att(1, 7, 1, true, 15, 10, now.Add(-48*time.Hour)),
			att(2, 7, 2, false, 0, 40, now.Add(-time.Hour)),
			att(3, 7, 3, true, 25, 20, now.Add(-30*24*time.Hour)),
		},
		Simulations: sims(),
		Categories:  []string{"banking", "shopping", "work"},
		Earned:      []*badge.UserBadge{{UserID: 7, Badge: first, EarnedAt: now}},
		Active:      []*badge.Badge{first, second},
		Calendar:    timeutil.UTC,
		Now:         now,
	})

	assert.Equal(t, 3, d.Summary.TotalAttempts)
	assert.Equal(t, 2, d.Summary.CorrectAttempts)
	assert.Equal(t, 66.7, d.Summary.Accuracy)
	assert.Equal(t, 23.3, d.Summary.AverageTime)
	assert.Equal(t, 150, d.Summary.TotalXP)
	assert.Equal(t, 250, d.Summary.XPForNextLevel)
	assert.Equal(t, 1, d.Summary.BadgesEarned)

	assert.Equal(t, Breakdown{Total: 1, Correct: 1, Accuracy: 100}, d.ByDifficulty["beginner"])
	assert.Equal(t, Breakdown{Total: 1, Correct: 0, Accuracy: 0}, d.ByDifficulty["advanced"])
	assert.Equal(t, Breakdown{Total: 1, Correct: 1, Accuracy: 100}, d.ByCategory["shopping"])

	require.Len(t, d.DailyActivity, DashboardDays)
	assert.Equal(t, DayActivity{Total: 1, Correct: 0}, d.DailyActivity["2024-05-20"])
	assert.Equal(t, DayActivity{Total: 1, Correct: 1, XPEarned: 15}, d.DailyActivity["2024-05-18"])
	assert.Equal(t, DayActivity{}, d.DailyActivity["2024-05-14"])

	require.Len(t, d.AvailableBadges, 1)
	assert.Equal(t, "sharp_eye", d.AvailableBadges[0].Key)

	require.Len(t, d.RecentAttempts, 3)
	assert.Equal(t, int64(2), d.RecentAttempts[0].ID)
	assert.Equal(t, "Invoice", d.RecentAttempts[0].SimulationTitle)
	assert.Equal(t, int64(3), d.RecentAttempts[2].ID)
}

func TestBuildDashboard_NoAttempts(t *testing.T) {
	d := BuildDashboard(DashboardInput{
		User:     &user.User{ID: 1, TotalXP: 0, CurrentLevel: shared.MinLevel},
		Calendar: timeutil.UTC,
		Now:      now,
	})

	assert.Zero(t, d.Summary.TotalAttempts)
	assert.Zero(t, d.Summary.Accuracy)
	assert.Zero(t, d.Summary.AverageTime)
	assert.Len(t, d.ByDifficulty, 3)
	assert.Empty(t, d.RecentAttempts)
}

func TestBuildLeaderboard(t *testing.T) {
	users := []*user.User{
		{ID: 3, Username: "c", TotalXP: 200, CurrentLevel: 2, IsActive: true},
		{ID: 1, Username: "a", TotalXP: 500, CurrentLevel: 3, IsActive: true},
		{ID: 2, Username: "b", TotalXP: 200, CurrentLevel: 2, IsActive: true},
		{ID: 4, Username: "d", TotalXP: 900, CurrentLevel: 4, IsActive: false},
	}

	board := BuildLeaderboard(users, 10)
	require.Len(t, board, 3)
	assert.Equal(t, int64(1), board[0].UserID)
	assert.Equal(t, int64(2), board[1].UserID)
	assert.Equal(t, int64(3), board[2].UserID)
	assert.Equal(t, []int{1, 2, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank})

	assert.Len(t, BuildLeaderboard(users, 2), 2)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, ClampLimit(0, 10, 100))
	assert.Equal(t, 10, ClampLimit(-5, 10, 100))
	assert.Equal(t, 100, ClampLimit(1000, 10, 100))
	assert.Equal(t, 7, ClampLimit(7, 10, 100))
}

func TestHardestSimulations(t *testing.T) {
	var attempts []*attempt.Attempt
	id := int64(0)
	add := func(simID int64, correct bool) {
		id++
		attempts = append(attempts, att(id, id, simID, correct, 0, 10, now))
	}
	// sim 1: 5 попыток, 1 правильная (20%).
	for i := 0; i < 5; i++ {
		add(1, i == 0)
	}
	// sim 2: 5 попыток, 1 правильная (20%) - та же доля, больший ID.
	for i := 0; i < 5; i++ {
		add(2, i == 0)
	}
	// sim 3: 4 попытки - ниже порога.
	for i := 0; i < 4; i++ {
		add(3, false)
	}

	got := HardestSimulations(attempts, sims(), HardestMinAttempts, HardestLimit)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].SimulationID)
	assert.Equal(t, int64(2), got[1].SimulationID)
	assert.Equal(t, 20.0, got[0].SuccessRate)
	assert.Equal(t, 5, got[0].TotalAttempts)
}

func TestPopularCategories(t *testing.T) {
	attempts := []*attempt.Attempt{
		att(1, 1, 2, true, 0, 1, now),
		att(2, 2, 2, true, 0, 1, now),
		att(3, 1, 1, true, 0, 1, now),
		att(4, 1, 3, true, 0, 1, now),
	}

	got := PopularCategories(attempts, sims(), PopularLimit)
	assert.Equal(t, []CategoryCount{
		{Category: "work", AttemptCount: 2},
		{Category: "banking", AttemptCount: 1},
		{Category: "shopping", AttemptCount: 1},
	}, got)
}

func TestTotalsOf(t *testing.T) {
	assert.Equal(t, Totals{TotalUsers: 2, TotalSimulations: 8, TotalAttempts: 3, GlobalAccuracy: 66.7}, TotalsOf(2, 8, 3, 2))
	assert.Zero(t, TotalsOf(0, 0, 0, 0).GlobalAccuracy)
}

func TestBuildProgressChart(t *testing.T) {
	attempts := []*attempt.Attempt{
		att(1, 1, 1, true, 15, 10, now.Add(-48*time.Hour)),
		att(2, 1, 2, false, 0, 10, now.Add(-48*time.Hour)),
		att(3, 1, 3, true, 25, 10, now),
		att(4, 1, 1, true, 99, 10, now.Add(-10*24*time.Hour)), // вне окна
	}

	points := BuildProgressChart(attempts, timeutil.UTC, now, 3)
	require.Len(t, points, 3)

	assert.Equal(t, ChartPoint{Date: "2024-05-18", Attempts: 2, Correct: 1, XPEarned: 15, CumulativeXP: 15, CumulativeAccuracy: 50}, points[0])
	assert.Equal(t, ChartPoint{Date: "2024-05-19", CumulativeXP: 15, CumulativeAccuracy: 50}, points[1])
	assert.Equal(t, ChartPoint{Date: "2024-05-20", Attempts: 1, Correct: 1, XPEarned: 25, CumulativeXP: 40, CumulativeAccuracy: 66.7}, points[2])
}
