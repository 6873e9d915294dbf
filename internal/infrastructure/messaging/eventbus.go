// Package messaging delivers progression events after commit. The in-memory
// bus serves a single instance; the Redis bus fans events out to every
// instance through Pub/Sub and delivers them locally as well.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/pkg/circuitbreaker"
	"github.com/phishguard/phishguard-hub/pkg/logger"
	"github.com/phishguard/phishguard-hub/pkg/retry"
)

var (
	// ErrEventBusClosed is returned by operations on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")
	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("event handler panicked")
	errNilEvent     = errors.New("event cannot be nil")
	errNilHandler   = errors.New("handler cannot be nil")
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus dispatches events to handlers registered in this process.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	async       bool
	slots       chan struct{}
	log         *logger.Logger
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryConfig configures InMemoryEventBus.
type InMemoryConfig struct {
	// Async runs handlers on a bounded set of goroutines.
	Async   bool
	Workers int
	Logger  *logger.Logger
}

// DefaultInMemoryConfig returns async delivery with 8 workers.
func DefaultInMemoryConfig() InMemoryConfig {
	return InMemoryConfig{Async: true, Workers: 8}
}

// NewInMemoryEventBus creates a bus.
func NewInMemoryEventBus(cfg InMemoryConfig) *InMemoryEventBus {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	return &InMemoryEventBus{
		handlers: make(map[shared.EventType][]shared.EventHandler),
		async:    cfg.Async,
		slots:    make(chan struct{}, cfg.Workers),
		log:      cfg.Logger.With(logger.Component("eventbus")),
		closeCh:  make(chan struct{}),
	}
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	return nil
}

// SubscribeAll registers a handler for every event.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish hands the event to its handlers. Handler errors are logged, not
// returned: publishing never fails because a subscriber did.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	if b.async {
		// Registered under the read lock so Close cannot miss it.
		b.wg.Add(len(handlers))
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if b.async {
			go b.runAsync(event, h)
			continue
		}
		b.run(event, h)
	}
	return nil
}

func (b *InMemoryEventBus) runAsync(event shared.Event, h shared.EventHandler) {
	defer b.wg.Done()
	select {
	case b.slots <- struct{}{}:
		defer func() { <-b.slots }()
	case <-b.closeCh:
		return
	}
	b.run(event, h)
}

func (b *InMemoryEventBus) run(event shared.Event, h shared.EventHandler) {
	start := time.Now()
	if err := safeCall(event, h); err != nil {
		b.log.Error("event handler failed",
			logger.String("event_type", string(event.EventType())),
			logger.Latency(time.Since(start)),
			logger.Err(err),
		)
	}
}

func safeCall(event shared.Event, h shared.EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(event)
}

// Close stops accepting events and waits for running handlers.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
	close(b.closeCh)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// DefaultChannel is the Pub/Sub channel for progression events.
const DefaultChannel = "phishguard:events"

// RedisEventBus publishes events to Redis and delivers them locally.
// Messages published by this instance are skipped when they come back.
type RedisEventBus struct {
	client  redis.UniversalClient
	local   *InMemoryEventBus
	channel string
	source  string
	timeout time.Duration
	breaker *circuitbreaker.Breaker
	retrier *retry.Retrier
	log     *logger.Logger
	pubsub  *redis.PubSub
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
}

// RedisConfig configures RedisEventBus.
type RedisConfig struct {
	Client  redis.UniversalClient
	Channel string
	// PublishTimeout bounds one Redis publish, retries included.
	PublishTimeout time.Duration
	Local          InMemoryConfig
	Logger         *logger.Logger
}

// NewRedisEventBus subscribes to the channel and starts the receive loop.
func NewRedisEventBus(ctx context.Context, cfg RedisConfig) (*RedisEventBus, error) {
	if cfg.Client == nil {
		return nil, errors.New("messaging: redis client is required")
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Local.Logger == nil {
		cfg.Local.Logger = cfg.Logger
	}
	log := cfg.Logger.With(logger.Component("redis_eventbus"))

	runCtx, cancel := context.WithCancel(context.Background())
	b := &RedisEventBus{
		client:  cfg.Client,
		local:   NewInMemoryEventBus(cfg.Local),
		channel: cfg.Channel,
		source:  uuid.NewString(),
		timeout: cfg.PublishTimeout,
		retrier: retry.PublishRetrier(),
		log:     log,
		ctx:     runCtx,
		cancel:  cancel,
	}
	b.breaker = circuitbreaker.EventBusBreaker(func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	})

	b.pubsub = cfg.Client.Subscribe(ctx, cfg.Channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := b.pubsub.Receive(ctx); err != nil {
		cancel()
		_ = b.pubsub.Close()
		return nil, fmt.Errorf("messaging: subscribe %s: %w", cfg.Channel, err)
	}

	b.wg.Add(1)
	go b.receiveLoop(b.pubsub.Channel())
	return b, nil
}

// Subscribe registers a local handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.local.Subscribe(eventType, handler)
}

// SubscribeAll registers a local handler for every event.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.local.SubscribeAll(handler)
}

// Publish delivers locally first, then to Redis. A Redis failure is
// returned after local delivery has happened.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errNilEvent
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := encodeEnvelope(event, b.source)
	if err != nil {
		return err
	}
	if err := b.local.Publish(event); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.timeout)
	defer cancel()
	return b.breaker.Execute(ctx, func(ctx context.Context) error {
		return b.retrier.Do(ctx, func(ctx context.Context) error {
			return b.client.Publish(ctx, b.channel, data).Err()
		})
	})
}

func (b *RedisEventBus) receiveLoop(messages <-chan *redis.Message) {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			b.handleMessage(msg.Payload)
		}
	}
}

func (b *RedisEventBus) handleMessage(payload string) {
	env, err := decodeEnvelope([]byte(payload))
	if err != nil {
		b.log.Warn("dropping malformed event", logger.Err(err))
		return
	}
	if env.Source == b.source {
		return
	}
	if err := b.local.Publish(remoteEvent{env: env}); err != nil && !errors.Is(err, ErrEventBusClosed) {
		b.log.Error("remote event delivery failed", logger.Err(err))
	}
}

// Close unsubscribes and drains local handlers.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	if lerr := b.local.Close(); lerr != nil {
		err = errors.Join(err, lerr)
	}
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

type wireEnvelope struct {
	shared.EventEnvelope
	Source string `json:"source"`
}

func encodeEnvelope(event shared.Event, source string) ([]byte, error) {
	payload, err := json.Marshal(event.Payload())
	if err != nil {
		return nil, fmt.Errorf("messaging: encode payload: %w", err)
	}
	env := wireEnvelope{
		EventEnvelope: shared.EventEnvelope{
			ID:          uuid.NewString(),
			Type:        event.EventType(),
			AggregateID: event.AggregateID(),
			Timestamp:   event.OccurredAt(),
			Payload:     payload,
		},
		Source: source,
	}
	if c, ok := event.(interface{ Correlation() string }); ok {
		env.CorrelationID = c.Correlation()
	}
	return json.Marshal(env)
}

func decodeEnvelope(data []byte) (wireEnvelope, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("messaging: decode envelope: %w", err)
	}
	if env.Type == "" {
		return env, errors.New("messaging: envelope without type")
	}
	return env, nil
}

// remoteEvent is an event received from another instance.
type remoteEvent struct {
	env wireEnvelope
}

func (e remoteEvent) EventType() shared.EventType { return e.env.Type }
func (e remoteEvent) OccurredAt() time.Time       { return e.env.Timestamp }
func (e remoteEvent) AggregateID() string         { return e.env.AggregateID }

func (e remoteEvent) Payload() map[string]interface{} {
	out := map[string]interface{}{}
	_ = json.Unmarshal(e.env.Payload, &out)
	return out
}
