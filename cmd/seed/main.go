// Package main - загрузка справочников и демо-данных PhishGuard Hub.
//
// Seed идемпотентен: симуляции обновляются по заголовку, значки по ключу,
// демо-пользователь создаётся один раз.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/phishguard/phishguard-hub/config"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/catalog"
	"github.com/phishguard/phishguard-hub/internal/infrastructure/persistence/postgres"
	"github.com/phishguard/phishguard-hub/pkg/logger"
)

const (
	demoEmail     = "demo@phishguard.com"
	demoUsername  = "demo"
	demoName      = "Demo User"
	demoInitialXP = 500
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.Driver != config.StorePostgres {
		return fmt.Errorf("seed requires DB_DRIVER=%s, got %q", config.StorePostgres, cfg.Database.Driver)
	}

	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.Format = cfg.Observability.LogFormat
	log := logger.New(opts).With(logger.Component("seed"))
	defer func() { _ = log.Sync() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 2. БАЗА ДАННЫХ И МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	pgCfg := postgres.DefaultConfig()
	pgCfg.URL = cfg.Database.URL
	pgCfg.MaxConns = 2
	pgCfg.MinConns = 0

	conn, err := postgres.NewConnection(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	applied, err := postgres.NewMigrator(conn).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("migrations completed", logger.Int("applied", applied))

	repos := postgres.NewStore(conn).Repos()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. КАТАЛОГИ
	// ─────────────────────────────────────────────────────────────────────────
	sims, err := catalog.LoadSimulations(os.Getenv("SEED_SIMULATIONS_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load simulations: %w", err)
	}
	for _, s := range sims {
		if err := repos.Simulations.Upsert(ctx, s); err != nil {
			return fmt.Errorf("failed to upsert simulation %q: %w", s.Title, err)
		}
	}
	log.Info("simulations seeded", logger.Int("count", len(sims)))

	badges, err := catalog.LoadBadges(cfg.Progression.BadgeCatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load badge catalog: %w", err)
	}
	if err := repos.Badges.SyncCatalog(ctx, badges); err != nil {
		return fmt.Errorf("failed to sync badges: %w", err)
	}
	log.Info("badges seeded", logger.Int("count", len(badges.Badges)))

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ДЕМО-ПОЛЬЗОВАТЕЛЬ
	// ─────────────────────────────────────────────────────────────────────────
	if !cfg.Features.Enabled(config.FeatureDemoSeed) {
		log.Info("demo user skipped", logger.String("flag", config.FeatureDemoSeed))
		return nil
	}

	if existing, err := repos.Users.GetByEmail(ctx, demoEmail); err == nil {
		log.Info("demo user already exists", logger.UserID(existing.ID))
		return nil
	} else if !shared.IsNotFound(err) {
		return fmt.Errorf("failed to look up demo user: %w", err)
	}

	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "demo123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	demo, err := user.NewUser(user.NewUserParams{
		Username:     demoUsername,
		Email:        demoEmail,
		Name:         demoName,
		PasswordHash: string(hash),
		InitialXP:    demoInitialXP,
		Now:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := repos.Users.Create(ctx, demo); err != nil {
		if shared.IsAlreadyExists(err) {
			log.Info("demo user created concurrently")
			return nil
		}
		return fmt.Errorf("failed to create demo user: %w", err)
	}

	log.Info("demo user created",
		logger.UserID(demo.ID),
		logger.XPAmount(int(demo.TotalXP)),
		logger.LevelValue(int(demo.CurrentLevel)),
	)
	return nil
}
