// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
	"github.com/phishguard/phishguard-hub/pkg/logger"
	"github.com/phishguard/phishguard-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ATTEMPT COMMAND
// The progression transaction: one submission records the attempt, grants XP,
// moves the streak and awards badges, all or nothing.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitState tracks how far a submission got.
type SubmitState int

const (
	StateReceived SubmitState = iota
	StateValidated
	StateScored
	StatePersisted
	StateBadgesEvaluated
	StateCommitted
	StateRejected
	StateFailed
)

var submitStateNames = [...]string{
	"RECEIVED", "VALIDATED", "SCORED", "PERSISTED", "BADGES_EVALUATED",
	"COMMITTED", "REJECTED", "FAILED",
}

// String returns the state name.
func (s SubmitState) String() string {
	if s < 0 || int(s) >= len(submitStateNames) {
		return "UNKNOWN"
	}
	return submitStateNames[s]
}

// SubmitAttemptCommand contains one user's answer to one simulation.
type SubmitAttemptCommand struct {
	UserID       int64
	SimulationID int64
	Action       string
	// TimeSpent is the client-reported time in seconds.
	TimeSpent int
}

func (c SubmitAttemptCommand) submission() attempt.Submission {
	return attempt.Submission{
		UserID:       c.UserID,
		SimulationID: c.SimulationID,
		Action:       c.Action,
		TimeSpent:    c.TimeSpent,
	}
}

// AwardedBadge describes a badge granted by a submission.
type AwardedBadge struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Rarity      badge.Rarity `json:"rarity"`
	XPReward    int          `json:"xp_reward"`
}

// SubmitAttemptResult is the committed outcome of a submission.
type SubmitAttemptResult struct {
	AttemptID  int64          `json:"attempt_id"`
	IsCorrect  bool           `json:"is_correct"`
	XPEarned   int            `json:"xp_earned"`
	LevelUp    bool           `json:"level_up"`
	NewLevel   int            `json:"new_level"`
	TotalXP    int            `json:"total_xp"`
	StreakDays int            `json:"streak_days"`
	NewBadges  []AwardedBadge `json:"new_badges"`

	// Debrief shown after every answer.
	Explanation        string   `json:"explanation"`
	CorrectAction      string   `json:"correct_action"`
	PhishingIndicators []string `json:"phishing_indicators"`

	State    SubmitState `json:"-"`
	Attempts int         `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAttemptConfig tunes the handler.
type SubmitAttemptConfig struct {
	Scoring simulation.ScoringRules
	Streak  user.StreakPolicy
	// MaxAttempts bounds transaction replays after write conflicts.
	MaxAttempts int
	Clock       func() time.Time
}

// DefaultSubmitAttemptConfig returns calendar-day streaks in UTC, default
// scoring and three transaction attempts.
func DefaultSubmitAttemptConfig() SubmitAttemptConfig {
	return SubmitAttemptConfig{
		Scoring:     simulation.DefaultScoringRules(),
		Streak:      user.CalendarDayPolicy{},
		MaxAttempts: 3,
		Clock:       func() time.Time { return time.Now().UTC() },
	}
}

// SubmitAttemptHandler handles SubmitAttemptCommand.
type SubmitAttemptHandler struct {
	store     port.Transactor
	catalog   *badge.Catalog
	publisher shared.EventPublisher
	metrics   *observability.Metrics
	log       *logger.Logger
	cfg       SubmitAttemptConfig
}

// NewSubmitAttemptHandler creates a new SubmitAttemptHandler.
// The catalog must already be synced with the badge store.
func NewSubmitAttemptHandler(
	store port.Transactor,
	catalog *badge.Catalog,
	publisher shared.EventPublisher,
	metrics *observability.Metrics,
	log *logger.Logger,
	cfg SubmitAttemptConfig,
) *SubmitAttemptHandler {
	def := DefaultSubmitAttemptConfig()
	if cfg.Streak == nil {
		cfg.Streak = def.Streak
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Clock == nil {
		cfg.Clock = def.Clock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitAttemptHandler{
		store:     store,
		catalog:   catalog,
		publisher: publisher,
		metrics:   metrics,
		log:       log.With(logger.Component("submit_attempt")),
		cfg:       cfg,
	}
}

// Handle runs the progression transaction, replaying it on write conflicts.
// Events are published only after commit and never fail the submission.
func (h *SubmitAttemptHandler) Handle(ctx context.Context, cmd SubmitAttemptCommand) (*SubmitAttemptResult, error) {
	started := time.Now()
	ctx, span := observability.StartSpan(ctx, "progression.submit",
		"user_id", fmt.Sprint(cmd.UserID),
		"simulation_id", fmt.Sprint(cmd.SimulationID),
	)
	defer span.End()

	log := h.log.With(logger.UserID(cmd.UserID), logger.SimulationID(cmd.SimulationID))

	sub := cmd.submission()
	if err := sub.Validate(); err != nil {
		h.finish(span, observability.OutcomeRejected, started, err)
		return nil, err
	}

	var (
		result *SubmitAttemptResult
		events []shared.Event
		tries  int
		state  = StateReceived
	)
	retrier := retry.TransactionRetrier(h.cfg.MaxAttempts, shared.IsRetryable,
		retry.WithOnRetry(func(n int, err error, delay time.Duration) {
			h.metrics.ObserveRetry()
			log.Warn("progression transaction conflict, retrying",
				logger.Int("attempt", n), logger.Duration("delay", delay), logger.Err(err))
		}),
	)

	err := retrier.Do(ctx, func(ctx context.Context) error {
		tries++
		var txErr error
		result, events, txErr = h.runOnce(ctx, sub, &state)
		return txErr
	})
	if err != nil {
		reached := state
		switch {
		case shared.IsDuplicateAttempt(err):
			h.finish(span, observability.OutcomeDuplicate, started, err)
		case shared.IsNotFound(err) || shared.IsValidation(err):
			h.finish(span, observability.OutcomeRejected, started, err)
		case shared.IsConflict(err):
			h.finish(span, observability.OutcomeConflict, started, err)
			log.Error("progression transaction gave up",
				logger.Int("attempts", tries), logger.String("state", reached.String()), logger.Err(err))
			return nil, shared.WrapError("attempt", "Submit", shared.ErrConflict,
				shared.ErrConflictExhausted.Message, err)
		default:
			h.finish(span, observability.OutcomeFailed, started, err)
			log.Error("progression transaction failed",
				logger.String("state", reached.String()), logger.Err(err))
		}
		return nil, err
	}

	state = StateCommitted
	result.State = state
	result.Attempts = tries
	h.metrics.ObserveProgress(h.totalGranted(result), result.LevelUp)
	for _, b := range result.NewBadges {
		h.metrics.ObserveBadge(b.Key)
	}
	outcome := observability.OutcomeIncorrect
	if result.IsCorrect {
		outcome = observability.OutcomeCorrect
	}
	h.finish(span, outcome, started, nil)

	h.publish(log, events)

	log.Info("attempt submitted",
		logger.Bool("correct", result.IsCorrect),
		logger.XPAmount(result.XPEarned),
		logger.LevelValue(result.NewLevel),
		logger.Int("badges", len(result.NewBadges)),
		logger.Latency(time.Since(started)),
	)
	return result, nil
}

// runOnce executes one transaction attempt. Everything it returns is built
// from this attempt's state, so a replay never sees leftovers.
// state records the last step reached, for failure logs.
func (h *SubmitAttemptHandler) runOnce(ctx context.Context, sub attempt.Submission, state *SubmitState) (*SubmitAttemptResult, []shared.Event, error) {
	var (
		res    *SubmitAttemptResult
		events []shared.Event
	)

	err := h.store.WithinTx(ctx, func(ctx context.Context, repos port.Repositories) error {
		res, events = nil, nil
		*state = StateReceived

		sim, err := repos.Simulations.GetActive(ctx, sub.SimulationID)
		if err != nil {
			return err
		}

		// Row lock: concurrent submissions of one user queue up here.
		u, err := repos.Users.GetForUpdate(ctx, sub.UserID)
		if err != nil {
			return err
		}
		if !u.IsActive {
			return shared.ErrUserNotFound
		}

		// Fast path; the unique constraint on Insert is the real guard.
		dup, err := repos.Attempts.Exists(ctx, sub.UserID, sub.SimulationID)
		if err != nil {
			return err
		}
		if dup {
			return shared.ErrAttemptDuplicate
		}
		*state = StateValidated

		score := sim.Score(h.cfg.Scoring, sub.Action, sub.Elapsed())
		now := h.cfg.Clock()
		*state = StateScored

		a := attempt.New(sub, score.IsCorrect, score.XPEarned, now)
		if err := repos.Attempts.Insert(ctx, a); err != nil {
			return err
		}

		oldLevel := u.CurrentLevel
		oldStreak := u.StreakDays
		if _, err := u.AddXP(score.XPEarned); err != nil {
			return err
		}
		u.RecordActivity(h.cfg.Streak, now)

		*state = StatePersisted

		stats, err := repos.Attempts.StatsByUser(ctx, u.ID)
		if err != nil {
			return err
		}
		snap := badge.Snapshot{
			TotalAttempts:   stats.Total,
			CorrectAttempts: stats.Correct,
			StreakDays:      u.StreakDays,
			TotalXP:         u.TotalXP,
			Level:           u.CurrentLevel,
			FastestCorrect:  stats.FastestCorrect,
		}

		ledger := &txLedger{repos: repos, user: u, at: now}
		awarded, err := h.catalog.Evaluate(ctx, snap, ledger)
		if err != nil {
			return err
		}

		*state = StateBadgesEvaluated

		// One write covers attempt XP, streak and badge rewards.
		if err := repos.Users.SaveProgress(ctx, u); err != nil {
			return err
		}

		res = &SubmitAttemptResult{
			AttemptID:          a.ID,
			IsCorrect:          score.IsCorrect,
			XPEarned:           score.XPEarned,
			LevelUp:            u.CurrentLevel > oldLevel,
			NewLevel:           u.CurrentLevel.Int(),
			TotalXP:            u.TotalXP.Int(),
			StreakDays:         u.StreakDays,
			NewBadges:          make([]AwardedBadge, 0, len(awarded)),
			Explanation:        sim.Explanation,
			CorrectAction:      sim.CorrectAction,
			PhishingIndicators: append([]string{}, sim.Indicators...),
			State:              StateBadgesEvaluated,
		}
		for _, b := range awarded {
			res.NewBadges = append(res.NewBadges, AwardedBadge{
				Key:         b.Key,
				Name:        b.Name,
				Description: b.Description,
				Icon:        b.Icon,
				Rarity:      b.Rarity,
				XPReward:    b.XPReward,
			})
		}

		events = buildEvents(u, a, oldLevel, oldStreak, awarded, h.totalGranted(res), now)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res, events, nil
}

// totalGranted is attempt XP plus badge rewards.
func (h *SubmitAttemptHandler) totalGranted(r *SubmitAttemptResult) int {
	total := r.XPEarned
	for _, b := range r.NewBadges {
		total += b.XPReward
	}
	return total
}

func (h *SubmitAttemptHandler) finish(span trace.Span, outcome string, started time.Time, err error) {
	h.metrics.ObserveSubmission(outcome, time.Since(started))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}

func (h *SubmitAttemptHandler) publish(log *logger.Logger, events []shared.Event) {
	if h.publisher == nil {
		return
	}
	for _, e := range events {
		err := h.publisher.Publish(e)
		h.metrics.ObserveEvent(string(e.EventType()), err)
		if err != nil {
			log.Warn("event publish failed",
				logger.String("event_type", string(e.EventType())), logger.Err(err))
		}
	}
}

func buildEvents(u *user.User, a *attempt.Attempt, oldLevel shared.Level, oldStreak int, awarded []badge.Badge, granted int, at time.Time) []shared.Event {
	events := []shared.Event{
		shared.NewAttemptSubmittedEvent(u.ID, a.SimulationID, a.IsCorrect, a.XPEarned, a.TimeSpent, at),
	}
	if granted > 0 {
		events = append(events, shared.NewXPGainedEvent(u.ID, granted, u.TotalXP.Int(), at))
	}
	if u.CurrentLevel > oldLevel {
		events = append(events, shared.NewLevelUpEvent(u.ID, oldLevel.Int(), u.CurrentLevel.Int(), at))
	}
	if u.StreakDays != oldStreak {
		events = append(events, shared.NewStreakUpdatedEvent(u.ID, u.StreakDays, at))
	}
	for _, b := range awarded {
		events = append(events, shared.NewBadgeAwardedEvent(u.ID, b.Key, b.Name, b.XPReward, at))
	}
	return events
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// txLedger awards badges inside the progression transaction and credits
// their XP to the locked user row.
type txLedger struct {
	repos port.Repositories
	user  *user.User
	at    time.Time
}

func (l *txLedger) Has(ctx context.Context, b badge.Badge) (bool, error) {
	has, err := l.repos.Badges.HasBadge(ctx, l.user.ID, b.Key)
	return has, ledgerError("Has", b.Key, err)
}

func (l *txLedger) Award(ctx context.Context, b badge.Badge) (bool, error) {
	ok, err := l.repos.Badges.Award(ctx, l.user.ID, b.Key, l.at)
	if err != nil || !ok {
		return false, ledgerError("Award", b.Key, err)
	}
	if _, err := l.user.AddXP(b.XPReward); err != nil {
		return false, err
	}
	return true, nil
}

// ledgerError reports a catalog badge missing from the store as a storage
// failure. The not-found chain is cut so it never maps to a 404.
func ledgerError(op, key string, err error) error {
	if err == nil || !shared.IsNotFound(err) {
		return err
	}
	return shared.StorageError("badge", op, fmt.Errorf("badge %q is not synced to the store: %v", key, err))
}
