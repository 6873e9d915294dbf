package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, StoreMemory, cfg.Database.Driver)
	assert.True(t, cfg.Auth.TrustUserHeader)
	assert.Equal(t, time.UTC, cfg.App.Location)
	assert.Equal(t, StreakCalendar, cfg.Progression.StreakPolicy)
	assert.Equal(t, 5, cfg.Progression.SpeedBonusXP)
	assert.Equal(t, 30*time.Second, cfg.Progression.SpeedThreshold)
	assert.Equal(t, 3, cfg.Progression.MaxTxAttempts)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Zero(t, cfg.Redis.CacheWarmInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "staging")
	t.Setenv("APP_TIMEZONE", "Asia/Almaty")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "pg")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")
	t.Setenv("PROGRESSION_STREAK_POLICY", "rolling24h")
	t.Setenv("HTTP_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://pg:pw@db:5432/phishguard?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "Asia/Almaty", cfg.App.Location.String())
	assert.Equal(t, StreakRolling24h, cfg.Progression.StreakPolicy)
	assert.False(t, cfg.Auth.TrustUserHeader)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("APP_TIMEZONE", "Mars/Olympus")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("PROGRESSION_STREAK_POLICY", "weekly")
	t.Setenv("PROGRESSION_MAX_TX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "APP_TIMEZONE")
	assert.Contains(t, msg, "memory driver is not allowed")
	assert.Contains(t, msg, "AUTH_JWT_SECRET is required")
	assert.Contains(t, msg, "PROGRESSION_STREAK_POLICY")
	assert.Contains(t, msg, "PROGRESSION_MAX_TX_ATTEMPTS")
}

func TestFeatureFlags(t *testing.T) {
	t.Setenv("FEATURE_SPEED_BONUS", "false")
	t.Setenv("FEATURE_TRACING", "true")
	t.Setenv("FEATURE_ANALYTICS_CACHE", "30")

	ff := LoadFeatureFlags()
	assert.False(t, ff.Enabled(FeatureSpeedBonus))
	assert.True(t, ff.Enabled(FeatureTracing))
	assert.True(t, ff.Enabled(FeatureAnalyticsCache))
	assert.False(t, ff.Enabled("unknown"))

	ff.SetUserOverride(42, FeatureSpeedBonus, true)
	assert.True(t, ff.IsEnabledFor(FeatureSpeedBonus, 42))
	assert.False(t, ff.IsEnabledFor(FeatureSpeedBonus, 43))

	require.NoError(t, ff.DisableFeature(FeatureTracing))
	assert.False(t, ff.Enabled(FeatureTracing))
	assert.ErrorIs(t, ff.EnableFeature("nope"), ErrFeatureNotFound)
	assert.ErrorIs(t, ff.SetRolloutPercent(FeatureMetrics, 101), ErrInvalidRolloutPercent)

	var nilFlags *FeatureFlags
	assert.False(t, nilFlags.Enabled(FeatureMetrics))
}

func TestFeatureFlags_RolloutIsStable(t *testing.T) {
	ff := NewFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureSpeedBonus, 50))

	on := 0
	for id := int64(1); id <= 1000; id++ {
		first := ff.IsEnabledFor(FeatureSpeedBonus, id)
		assert.Equal(t, first, ff.IsEnabledFor(FeatureSpeedBonus, id))
		if first {
			on++
		}
	}
	assert.InDelta(t, 500, on, 150)
	assert.Len(t, ff.All(), len(defaultFeatures))
}
