package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

func pgErr(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, Message: "boom"})
}

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsUniqueViolation(pgErr(codeUniqueViolation)))
	assert.True(t, IsForeignKeyViolation(pgErr(codeForeignKeyViolation)))
	assert.True(t, IsSerializationFailure(pgErr(codeSerializationFailure)))
	assert.True(t, IsDeadlock(pgErr(codeDeadlockDetected)))
	assert.True(t, IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))

	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsDeadlock(nil))
}

func TestMapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, mapError("user", "Get", nil))
	})

	t.Run("serialization failure is a retryable conflict", func(t *testing.T) {
		err := mapError("store", "WithinTx", pgErr(codeSerializationFailure))
		assert.True(t, shared.IsConflict(err))
		assert.True(t, shared.IsRetryable(err))
	})

	t.Run("deadlock is a conflict", func(t *testing.T) {
		assert.True(t, shared.IsConflict(mapError("store", "WithinTx", pgErr(codeDeadlockDetected))))
	})

	t.Run("unique violation", func(t *testing.T) {
		err := mapError("badge", "Sync", pgErr(codeUniqueViolation))
		assert.True(t, shared.IsAlreadyExists(err))
		assert.False(t, shared.IsRetryable(err))
	})

	t.Run("other driver errors are storage failures", func(t *testing.T) {
		err := mapError("user", "Count", errors.New("connection reset"))
		assert.True(t, shared.IsStorage(err))
		assert.False(t, shared.IsRetryable(err))
	})

	t.Run("domain errors pass through", func(t *testing.T) {
		err := mapError("attempt", "Insert", shared.ErrAttemptDuplicate)
		assert.Same(t, shared.ErrAttemptDuplicate, err)
	})

	t.Run("context errors pass through", func(t *testing.T) {
		assert.ErrorIs(t, mapError("user", "Get", context.Canceled), context.Canceled)
	})
}

func TestConfig_DSN(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	dsn := cfg.DSN()
	assert.True(t, strings.Contains(dsn, "dbname=phishguard"))
	assert.True(t, strings.Contains(dsn, "connect_timeout=10"))

	cfg.URL = "postgres://u:p@db:5432/x"
	assert.Equal(t, "postgres://u:p@db:5432/x", cfg.DSN())
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConns = 7
	cfg.MaxConnIdleTime = 5 * time.Minute

	pc, err := cfg.PoolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(7), pc.MaxConns)
	assert.Equal(t, 5*time.Minute, pc.MaxConnIdleTime)

	cfg.URL = "://bad"
	_, err = cfg.PoolConfig()
	assert.Error(t, err)
}

func TestMigrations_Ordered(t *testing.T) {
	migs := Migrations()
	require.NotEmpty(t, migs)
	for i, m := range migs {
		assert.Equal(t, i+1, m.Version)
		assert.NotEmpty(t, m.UpSQL)
		assert.NotEmpty(t, m.DownSQL)
	}
	assert.Contains(t, migs[2].UpSQL, "UNIQUE (user_id, simulation_id)")
}
