// Package memory implements the application store in process memory.
// It backs local development and tests; production runs on postgres.
//
// Transactions are serialized behind a single mutex and run against a copy
// of the state, which replaces the live state only on commit. That gives the
// same all-or-nothing and per-user ordering guarantees as the SQL store.
package memory

import (
	"context"
	"sync"

	"github.com/phishguard/phishguard-hub/internal/application/port"
	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is an in-memory port.Store.
type Store struct {
	mu   sync.Mutex
	data *state
}

var _ port.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() port.Repositories {
	return s.repos(view{store: s})
}

// WithinTx runs fn against a private copy of the state. The copy becomes
// the live state only if fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn port.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.data.clone()
	if err := fn(ctx, s.repos(view{store: s, tx: tx})); err != nil {
		return err
	}
	s.data = tx
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() {}

func (s *Store) repos(v view) port.Repositories {
	return port.Repositories{
		Users:       userRepo{v},
		Attempts:    attemptRepo{v},
		Badges:      badgeRepo{v},
		Simulations: simulationRepo{v},
	}
}

// view routes repository calls either to a transaction's copy (already
// guarded by the store mutex) or to the live state under the mutex.
type view struct {
	store *Store
	tx    *state
}

// do runs fn against the state. Outside a transaction each call commits
// on its own.
func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════════

type attemptKey struct {
	userID       int64
	simulationID int64
}

type award struct {
	userID   int64
	badgeID  int64
	earnedAt int64 // unix nanos keeps the struct comparable
}

type state struct {
	users      map[int64]*user.User
	nextUserID int64

	simulations map[int64]*simulation.Simulation
	nextSimID   int64

	attempts      []*attempt.Attempt
	attemptKeys   map[attemptKey]bool
	nextAttemptID int64

	badges      []*badge.Badge // catalog order
	nextBadgeID int64
	awards      []award
}

func newState() *state {
	return &state{
		users:       make(map[int64]*user.User),
		simulations: make(map[int64]*simulation.Simulation),
		attemptKeys: make(map[attemptKey]bool),
	}
}

// clone copies everything a transaction may change. Stored values are
// never mutated in place, so copying the containers is enough.
func (st *state) clone() *state {
	c := &state{
		users:         make(map[int64]*user.User, len(st.users)),
		nextUserID:    st.nextUserID,
		simulations:   make(map[int64]*simulation.Simulation, len(st.simulations)),
		nextSimID:     st.nextSimID,
		attempts:      make([]*attempt.Attempt, len(st.attempts)),
		attemptKeys:   make(map[attemptKey]bool, len(st.attemptKeys)),
		nextAttemptID: st.nextAttemptID,
		badges:        make([]*badge.Badge, len(st.badges)),
		nextBadgeID:   st.nextBadgeID,
		awards:        make([]award, len(st.awards)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.simulations {
		c.simulations[k] = v
	}
	for k, v := range st.attemptKeys {
		c.attemptKeys[k] = v
	}
	copy(c.attempts, st.attempts)
	copy(c.badges, st.badges)
	copy(c.awards, st.awards)
	return c
}
