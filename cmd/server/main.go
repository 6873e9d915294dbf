// Package main - точка входа HTTP API PhishGuard Hub.
//
// Сервер отдаёт каталог фишинговых симуляций, принимает ответы
// пользователей и начисляет XP, уровни, серии и значки в одной транзакции.
// Аналитика строится из журнала попыток.
//
// Слои:
// - Domain: правила прогрессии без внешних зависимостей
// - Application: команда отправки ответа и запросы аналитики
// - Infrastructure: PostgreSQL, Redis, метрики, трассировка
// - Interface: HTTP API
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/phishguard/phishguard-hub/config"
	"github.com/phishguard/phishguard-hub/internal/application/command"
	"github.com/phishguard/phishguard-hub/internal/application/eventhandler"
	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/application/query"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/catalog"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/messaging"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/observability"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/persistence/memory"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/persistence/postgres"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/persistence/redis"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/scheduler"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/phishguard/phishguard-hub/internal/interface/http"
	"github.com/phishguard/phishguard-hub/pkg/logger"
	"github.com/phishguard/phishguard-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ И ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, closeLog := setupLogger(cfg)
	defer closeLog()
	defer func() { _ = log.Sync() }()

	log.Info("starting PhishGuard Hub",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("store", cfg.Database.Driver),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ТРАССИРОВКА
	// ─────────────────────────────────────────────────────────────────────────
	shutdownTracing := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Features.Enabled(config.FeatureTracing),
		ServiceName: cfg.App.Name,
		Environment: string(cfg.App.Environment),
		Version:     cfg.App.Version,
		SampleRatio: cfg.Observability.TracingSampleRatio,
	})
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", logger.Err(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ХРАНИЛИЩЕ
	// ─────────────────────────────────────────────────────────────────────────
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing store...")
		store.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. КАТАЛОГИ
	// ─────────────────────────────────────────────────────────────────────────
	badges, err := loadCatalogs(ctx, cfg, store, log)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS: СОБЫТИЯ И КЭШ (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	health := httpserver.NewHealthChecker(cfg.App.Version)
	health.AddCheck("store", httpserver.PingCheck(store))

	bus, cache, closeRedis, err := setupRedis(ctx, cfg, log, health)
	if err != nil {
		return err
	}
	defer closeRedis()

	if err := eventhandler.NewOnProgressChangedHandler(cache, log).Register(bus); err != nil {
		return fmt.Errorf("failed to register event handlers: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	var metrics *observability.Metrics
	if cfg.Features.Enabled(config.FeatureMetrics) {
		metrics = observability.NewMetrics()
	}

	calendar := timeutil.NewCalendar(cfg.App.Location)
	var publisher shared.EventPublisher
	if cfg.Features.Enabled(config.FeatureEventPublishing) {
		publisher = bus
	}

	submit := command.NewSubmitAttemptHandler(store, badges, publisher, metrics, log,
		submitConfig(cfg, calendar))

	repos := store.Repos()
	cacheTTL := cfg.Redis.CacheTTL
	if !cfg.Features.Enabled(config.FeatureAnalyticsCache) {
		cacheTTL = 0
	}
	leaderboard := query.NewGetLeaderboardHandler(repos.Users).WithCache(cache, cacheTTL)
	globalStats := query.NewGetGlobalStatsHandler(repos).WithCache(cache, cacheTTL)

	deps := httpserver.Dependencies{
		SubmitAttempt:  submit,
		Simulations:    query.NewSimulationsHandler(repos.Simulations),
		AttemptHistory: query.NewGetAttemptHistoryHandler(repos),
		Dashboard:      query.NewGetDashboardHandler(repos, calendar, nil),
		Leaderboard:    leaderboard,
		GlobalStats:    globalStats,
		ProgressChart:  query.NewGetProgressChartHandler(repos.Users, repos.Attempts, calendar, nil),
		Badges:         query.NewBadgesHandler(repos.Users, repos.Badges),
		AdminStats:     query.NewGetAdminStatsHandler(repos),
		Health:         health,
		Metrics:        metrics,
		Logger:         log,
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		OnResult: func(r scheduler.JobResult) { metrics.ObserveJob(r.JobName, r.Err) },
	})
	if cache != nil && cacheTTL > 0 && cfg.Redis.CacheWarmInterval > 0 {
		warm := jobs.NewWarmAnalyticsCacheJob(leaderboard, globalStats)
		if err := sched.Register(warm, scheduler.Every(cfg.Redis.CacheWarmInterval)); err != nil {
			return fmt.Errorf("failed to register job: %w", err)
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	server := httpserver.NewServer(httpserver.Config{
		Addr:            cfg.HTTP.Addr,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		MaxBodyBytes:    httpserver.DefaultConfig().MaxBodyBytes,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		RateLimitPerSec: cfg.HTTP.RateLimitPerSec,
		RateLimitBurst:  cfg.HTTP.RateLimitBurst,
		MetricsPath:     cfg.Observability.MetricsPath,
		Version:         cfg.App.Version,
		Auth: httpserver.AuthConfig{
			JWTSecret:       cfg.Auth.JWTSecret,
			JWTIssuer:       cfg.Auth.JWTIssuer,
			TrustUserHeader: cfg.Auth.TrustUserHeader,
		},
	}, deps)

	if cfg.Auth.TrustUserHeader {
		log.Warn("X-User-ID header is trusted; never enable this in production")
	}

	g, gctx := errgroup.WithContext(ctx)
	if len(sched.Jobs()) > 0 {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}
	g.Go(func() error {
		return server.Run(gctx, cfg.App.ShutdownTimeout)
	})

	log.Info("PhishGuard Hub is running", logger.String("addr", cfg.HTTP.Addr))
	err = g.Wait()
	log.Info("PhishGuard Hub stopped")
	return err
}

// ══════════════════════════════════════════════════════════════════════════════
// SETUP HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// setupLogger builds the zap-backed logger. With LogFile set, logs are
// written to stdout and a size-rotated file.
func setupLogger(cfg *config.Config) (*logger.Logger, func()) {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat

	closeFn := func() {}
	if path := cfg.Observability.LogFile; path != "" {
		file := logger.RotatingFile(path,
			cfg.Observability.LogMaxSizeMB,
			cfg.Observability.LogMaxBackups,
			cfg.Observability.LogMaxAgeDays,
		)
		opts.Output = logger.Tee(os.Stdout, file)
		closeFn = func() { _ = file.Close() }
	}

	log := logger.New(opts).With(logger.String("service", cfg.App.Name))
	return log, closeFn
}

// openStore connects to PostgreSQL (running migrations when enabled) or
// falls back to the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (port.Store, error) {
	if cfg.Database.Driver == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), nil
	}

	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = int32(cfg.Database.MaxConns)
	pgCfg.MinConns = int32(cfg.Database.MinConns)
	pgCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	pgCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		applied, err := postgres.NewMigrator(conn).Migrate(ctx)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", logger.Int("applied", applied))
	}
	log.Info("database connection established")
	return postgres.NewStore(conn), nil
}

// loadCatalogs syncs the badge catalog into the store. The in-memory store
// also gets the embedded simulations, since nothing else would seed it.
func loadCatalogs(ctx context.Context, cfg *config.Config, store port.Store, log *logger.Logger) (*badge.Catalog, error) {
	cat, err := catalog.LoadBadges(cfg.Progression.BadgeCatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge catalog: %w", err)
	}
	if err := store.Repos().Badges.SyncCatalog(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to sync badge catalog: %w", err)
	}
	log.Info("badge catalog synced", logger.Int("badges", len(cat.Badges)))

	if cfg.Database.Driver == config.StoreMemory {
		sims, err := catalog.LoadSimulations("")
		if err != nil {
			return nil, fmt.Errorf("failed to load simulations: %w", err)
		}
		for _, s := range sims {
			if err := store.Repos().Simulations.Upsert(ctx, s); err != nil {
				return nil, fmt.Errorf("failed to import simulation %q: %w", s.Title, err)
			}
		}
		log.Info("simulations imported into memory store", logger.Int("simulations", len(sims)))
	}
	return cat, nil
}

// setupRedis returns the event bus and the analytics cache. Without Redis
// events stay in-process and the cache is nil, which disables caching.
func setupRedis(ctx context.Context, cfg *config.Config, log *logger.Logger, health *httpserver.HealthChecker) (shared.EventBus, port.Cache, func(), error) {
	local := messaging.DefaultInMemoryConfig()
	local.Logger = log

	if cfg.Redis.Disabled {
		log.Info("redis disabled; events are in-process only")
		bus := messaging.NewInMemoryEventBus(local)
		return bus, nil, func() { _ = bus.Close() }, nil
	}

	rcfg := redis.DefaultConfig()
	rcfg.URL = cfg.Redis.URL
	rcfg.Host = cfg.Redis.Host
	rcfg.Port = cfg.Redis.Port
	rcfg.Password = cfg.Redis.Password
	rcfg.DB = cfg.Redis.DB
	rcfg.PoolSize = cfg.Redis.PoolSize
	rcfg.MinIdleConns = cfg.Redis.MinIdleConns
	rcfg.DialTimeout = cfg.Redis.DialTimeout
	rcfg.ReadTimeout = cfg.Redis.ReadTimeout
	rcfg.WriteTimeout = cfg.Redis.WriteTimeout
	if cfg.Redis.KeyPrefix != "" {
		rcfg.KeyPrefix = cfg.Redis.KeyPrefix
	}

	log.Info("connecting to Redis...", logger.String("addr", rcfg.Addr()))
	client, err := redis.NewClient(ctx, rcfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisConfig{
		Client:  client,
		Channel: cfg.Redis.Channel,
		Local:   local,
		Logger:  log,
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}

	cache := redis.NewCache(client, rcfg.KeyPrefix)
	health.AddCheck("redis", httpserver.PingCheck(cache))

	closeFn := func() {
		closeAll(log, "event bus", bus)
		closeAll(log, "redis client", client)
	}
	log.Info("redis connected")
	return bus, cache, closeFn, nil
}

func closeAll(log *logger.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		log.Warn("close failed", logger.String("resource", what), logger.Err(err))
	}
}

// submitConfig maps configuration onto the progression handler.
func submitConfig(cfg *config.Config, cal timeutil.Calendar) command.SubmitAttemptConfig {
	sc := command.DefaultSubmitAttemptConfig()
	sc.Scoring = simulation.ScoringRules{
		SpeedBonusXP:   cfg.Progression.SpeedBonusXP,
		SpeedThreshold: cfg.Progression.SpeedThreshold,
	}
	if !cfg.Features.Enabled(config.FeatureSpeedBonus) {
		sc.Scoring.SpeedBonusXP = 0
	}
	sc.Streak = user.NewStreakPolicy(cfg.Progression.StreakPolicy, cal)
	sc.MaxAttempts = cfg.Progression.MaxTxAttempts
	return sc
}
