// Package eventhandler содержит реакции на доменные события.
// Обработчики вызываются после фиксации транзакции и не могут её отменить.
package eventhandler

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER
// Сбрасывает кэш лидерборда и глобальной статистики после каждой попытки.
// ═══════════════════════════════════════════════════════════════════════════

// OnProgressChangedHandler инвалидирует кэш аналитики.
type OnProgressChangedHandler struct {
	cache   port.Cache
	log     *logger.Logger
	timeout time.Duration
}

// NewOnProgressChangedHandler создаёт обработчик. cache может быть nil.
func NewOnProgressChangedHandler(cache port.Cache, log *logger.Logger) *OnProgressChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnProgressChangedHandler{
		cache:   cache,
		log:     log.With(logger.String("handler", "on_progress_changed")),
		timeout: 2 * time.Second,
	}
}

// Register подписывает обработчик на события, меняющие аналитику.
// Лидерборд зависит от XP, глобальная статистика - от каждой попытки.
func (h *OnProgressChangedHandler) Register(bus shared.EventSubscriber) error {
	if err := bus.Subscribe(shared.EventAttemptSubmitted, h.Handle); err != nil {
		return err
	}
	return bus.Subscribe(shared.EventXPGained, h.Handle)
}

// Handle реализует shared.EventHandler.
func (h *OnProgressChangedHandler) Handle(event shared.Event) error {
	if h.cache == nil {
		return nil
	}

	keys := []string{port.CacheKeyLeaderboard}
	if event.EventType() == shared.EventAttemptSubmitted {
		keys = append(keys, port.CacheKeyGlobalStats)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	if err := h.cache.Delete(ctx, keys...); err != nil {
		// Устаревший кэш истечёт по TTL.
		h.log.Warn("cache invalidation failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
		return err
	}
	return nil
}
