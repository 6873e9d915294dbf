package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/phishguard/phishguard-hub/internal/application/port"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store implements port.Store on a pgx pool.
type Store struct {
	conn *Connection
}

var _ port.Store = (*Store)(nil)

// NewStore creates a Store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Repos returns repositories bound to the pool.
func (s *Store) Repos() port.Repositories {
	return reposFor(s.conn.Pool())
}

// WithinTx runs fn in a read committed transaction with repositories bound
// to it. Serialization failures and deadlocks, including those raised at
// commit, surface as shared.ErrConflict.
func (s *Store) WithinTx(ctx context.Context, fn port.TxFunc) error {
	err := s.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return fn(ctx, reposFor(tx))
	})
	return mapError("store", "WithinTx", err)
}

// Ping checks the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() {
	s.conn.Close()
}

func reposFor(q Querier) port.Repositories {
	return port.Repositories{
		Users:       &UserRepository{q: q},
		Attempts:    &AttemptRepository{q: q},
		Badges:      &BadgeRepository{q: q},
		Simulations: &SimulationRepository{q: q},
	}
}
