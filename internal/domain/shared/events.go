package shared

import (
	"encoding/json"
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. They are emitted only after the progression
// transaction commits.
const (
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventXPGained         EventType = "progress.xp_gained"
	EventLevelUp          EventType = "progress.level_up"
	EventStreakUpdated    EventType = "progress.streak_updated"
	EventBadgeAwarded     EventType = "badge.awarded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event for a user aggregate.
func NewBaseEvent(eventType EventType, userID int64, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: strconv.FormatInt(userID, 10),
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// Correlation returns the correlation ID, empty when unset.
func (e BaseEvent) Correlation() string {
	return e.CorrelationID
}

// ═══════════════════════════════════════════════════════════════════════════
// Progression Events
// ═══════════════════════════════════════════════════════════════════════════

// AttemptSubmittedEvent is emitted once per committed attempt.
type AttemptSubmittedEvent struct {
	BaseEvent
	SimulationID int64 `json:"simulation_id"`
	IsCorrect    bool  `json:"is_correct"`
	XPEarned     int   `json:"xp_earned"`
	TimeSpent    int   `json:"time_spent"`
}

// Payload implements Event interface.
func (e AttemptSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"simulation_id": e.SimulationID,
		"is_correct":    e.IsCorrect,
		"xp_earned":     e.XPEarned,
		"time_spent":    e.TimeSpent,
	}
}

// NewAttemptSubmittedEvent creates a new AttemptSubmittedEvent.
func NewAttemptSubmittedEvent(userID, simulationID int64, correct bool, xp, timeSpent int, at time.Time) AttemptSubmittedEvent {
	return AttemptSubmittedEvent{
		BaseEvent:    NewBaseEvent(EventAttemptSubmitted, userID, at),
		SimulationID: simulationID,
		IsCorrect:    correct,
		XPEarned:     xp,
		TimeSpent:    timeSpent,
	}
}

// XPGainedEvent is emitted when a submission raised the user's XP.
type XPGainedEvent struct {
	BaseEvent
	Amount   int `json:"amount"`
	NewTotal int `json:"new_total"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":    e.Amount,
		"new_total": e.NewTotal,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(userID int64, amount, newTotal int, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent: NewBaseEvent(EventXPGained, userID, at),
		Amount:    amount,
		NewTotal:  newTotal,
	}
}

// LevelUpEvent is emitted when the level rose during a submission.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int `json:"old_level"`
	NewLevel int `json:"new_level"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(userID int64, oldLevel, newLevel int, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, userID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
	}
}

// StreakUpdatedEvent carries the streak after a submission.
type StreakUpdatedEvent struct {
	BaseEvent
	StreakDays int `json:"streak_days"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"streak_days": e.StreakDays}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(userID int64, streak int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent:  NewBaseEvent(EventStreakUpdated, userID, at),
		StreakDays: streak,
	}
}

// BadgeAwardedEvent is emitted for each badge awarded in a submission.
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeKey  string `json:"badge_key"`
	BadgeName string `json:"badge_name"`
	XPReward  int    `json:"xp_reward"`
}

// Payload implements Event interface.
func (e BadgeAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_key":  e.BadgeKey,
		"badge_name": e.BadgeName,
		"xp_reward":  e.XPReward,
	}
}

// NewBadgeAwardedEvent creates a new BadgeAwardedEvent.
func NewBadgeAwardedEvent(userID int64, key, name string, reward int, at time.Time) BadgeAwardedEvent {
	return BadgeAwardedEvent{
		BaseEvent: NewBaseEvent(EventBadgeAwarded, userID, at),
		BadgeKey:  key,
		BadgeName: name,
		XPReward:  reward,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
