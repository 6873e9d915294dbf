// Package analytics строит производные представления по журналу попыток:
// дашборд, лидерборд, глобальную статистику и график прогресса.
// Только чтение, всё считается заново на каждый запрос.
package analytics

import (
	"sort"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// Параметры дашборда.
const (
	DashboardDays        = 7
	DashboardRecentLimit = 10
)

// Breakdown - итоги по группе попыток (сложность или категория).
type Breakdown struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// DayActivity - активность за один календарный день.
type DayActivity struct {
	Total    int `json:"total"`
	Correct  int `json:"correct"`
	XPEarned int `json:"xp_earned"`
}

// RecentAttempt - строка списка последних попыток.
type RecentAttempt struct {
	ID              int64     `json:"id"`
	SimulationID    int64     `json:"simulation_id"`
	SimulationTitle string    `json:"simulation_title"`
	Difficulty      string    `json:"difficulty"`
	Category        string    `json:"category"`
	IsCorrect       bool      `json:"is_correct"`
	TimeSpent       int       `json:"time_spent"`
	XPEarned        int       `json:"xp_earned"`
	CreatedAt       time.Time `json:"created_at"`
}

// UserSummary - сводка прогресса пользователя.
type UserSummary struct {
	TotalAttempts   int     `json:"total_attempts"`
	CorrectAttempts int     `json:"correct_attempts"`
	Accuracy        float64 `json:"accuracy"`
	AverageTime     float64 `json:"average_time"`
	TotalXP         int     `json:"total_xp"`
	CurrentLevel    int     `json:"current_level"`
	LevelProgress   float64 `json:"level_progress"`
	XPForNextLevel  int     `json:"xp_for_next_level"`
	StreakDays      int     `json:"streak_days"`
	BadgesEarned    int     `json:"badges_earned"`
}

// Dashboard - полный дашборд пользователя.
type Dashboard struct {
	Summary         UserSummary            `json:"user_stats"`
	ByDifficulty    map[string]Breakdown   `json:"difficulty_performance"`
	ByCategory      map[string]Breakdown   `json:"category_performance"`
	DailyActivity   map[string]DayActivity `json:"daily_activity"`
	EarnedBadges    []*badge.UserBadge     `json:"-"`
	AvailableBadges []*badge.Badge         `json:"-"`
	RecentAttempts  []RecentAttempt        `json:"recent_attempts"`
}

// DashboardInput - данные, загруженные запросом.
type DashboardInput struct {
	User        *user.User
	Attempts    []*attempt.Attempt
	Simulations map[int64]*simulation.Simulation
	Categories  []string
	Earned      []*badge.UserBadge
	Active      []*badge.Badge
	Calendar    timeutil.Calendar
	Now         time.Time
}

// BuildDashboard собирает дашборд. Порядок попыток на входе не важен.
func BuildDashboard(in DashboardInput) Dashboard {
	attempts := sortedNewestFirst(in.Attempts)
	stats := attempt.StatsOf(attempts)

	d := Dashboard{
		Summary: UserSummary{
			TotalAttempts:   stats.Total,
			CorrectAttempts: stats.Correct,
			Accuracy:        stats.Accuracy().Rounded(),
			AverageTime:     averageTime(stats),
			TotalXP:         in.User.TotalXP.Int(),
			CurrentLevel:    in.User.CurrentLevel.Int(),
			LevelProgress:   shared.Round1(in.User.LevelProgress()),
			XPForNextLevel:  in.User.XPForNextLevel(),
			StreakDays:      in.User.StreakDays,
			BadgesEarned:    len(in.Earned),
		},
		ByDifficulty:  make(map[string]Breakdown, 3),
		ByCategory:    make(map[string]Breakdown, len(in.Categories)),
		DailyActivity: make(map[string]DayActivity, DashboardDays),
		EarnedBadges:  in.Earned,
	}

	for _, diff := range simulation.Difficulties() {
		d.ByDifficulty[string(diff)] = Breakdown{}
	}
	for _, c := range in.Categories {
		d.ByCategory[c] = Breakdown{}
	}
	for _, key := range in.Calendar.LastNDays(in.Now, DashboardDays) {
		d.DailyActivity[key] = DayActivity{}
	}

	for _, a := range attempts {
		if sim, ok := in.Simulations[a.SimulationID]; ok {
			d.ByDifficulty[string(sim.Difficulty)] = addTo(d.ByDifficulty[string(sim.Difficulty)], a.IsCorrect)
			d.ByCategory[sim.Category] = addTo(d.ByCategory[sim.Category], a.IsCorrect)
		}

		key := in.Calendar.DateKey(a.CreatedAt)
		if day, ok := d.DailyActivity[key]; ok {
			day.Total++
			if a.IsCorrect {
				day.Correct++
			}
			day.XPEarned += a.XPEarned
			d.DailyActivity[key] = day
		}
	}
	finishBreakdowns(d.ByDifficulty)
	finishBreakdowns(d.ByCategory)

	held := make(map[int64]bool, len(in.Earned))
	for _, ub := range in.Earned {
		if ub.Badge != nil {
			held[ub.Badge.ID] = true
		}
	}
	d.AvailableBadges = make([]*badge.Badge, 0, len(in.Active))
	for _, b := range in.Active {
		if !held[b.ID] {
			d.AvailableBadges = append(d.AvailableBadges, b)
		}
	}

	limit := DashboardRecentLimit
	if len(attempts) < limit {
		limit = len(attempts)
	}
	d.RecentAttempts = make([]RecentAttempt, 0, limit)
	for _, a := range attempts[:limit] {
		d.RecentAttempts = append(d.RecentAttempts, recentOf(a, in.Simulations[a.SimulationID]))
	}
	return d
}

func recentOf(a *attempt.Attempt, sim *simulation.Simulation) RecentAttempt {
	r := RecentAttempt{
		ID:           a.ID,
		SimulationID: a.SimulationID,
		IsCorrect:    a.IsCorrect,
		TimeSpent:    a.TimeSpent,
		XPEarned:     a.XPEarned,
		CreatedAt:    a.CreatedAt,
	}
	if sim != nil {
		r.SimulationTitle = sim.Title
		r.Difficulty = string(sim.Difficulty)
		r.Category = sim.Category
	}
	return r
}

func addTo(b Breakdown, correct bool) Breakdown {
	b.Total++
	if correct {
		b.Correct++
	}
	return b
}

func finishBreakdowns(m map[string]Breakdown) {
	for k, b := range m {
		b.Accuracy = shared.AccuracyOf(b.Correct, b.Total).Rounded()
		m[k] = b
	}
}

func averageTime(s attempt.Stats) float64 {
	if s.Total == 0 {
		return 0
	}
	return shared.Round1(float64(s.TotalTimeSpent) / float64(s.Total))
}

// sortedNewestFirst копирует срез и сортирует: новые сначала, при равенстве - больший ID.
func sortedNewestFirst(in []*attempt.Attempt) []*attempt.Attempt {
	out := make([]*attempt.Attempt, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
