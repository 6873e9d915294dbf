package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTEMPT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AttemptRepository implements attempt.Repository for PostgreSQL.
// The attempts table is append-only: there is no UPDATE or DELETE here.
type AttemptRepository struct {
	q Querier
}

const attemptColumns = `id, user_id, simulation_id, user_action, is_correct, time_spent, xp_earned, created_at`

func scanAttempts(rows pgx.Rows) ([]*attempt.Attempt, error) {
	defer rows.Close()
	var out []*attempt.Attempt
	for rows.Next() {
		var a attempt.Attempt
		if err := rows.Scan(&a.ID, &a.UserID, &a.SimulationID, &a.UserAction,
			&a.IsCorrect, &a.TimeSpent, &a.XPEarned, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Insert appends an attempt. A second attempt for the same user and
// simulation fails on the unique constraint with ErrAttemptDuplicate.
func (r *AttemptRepository) Insert(ctx context.Context, a *attempt.Attempt) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO attempts (user_id, simulation_id, user_action, is_correct, time_spent, xp_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.UserID, a.SimulationID, a.UserAction, a.IsCorrect, a.TimeSpent, a.XPEarned, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAttemptDuplicate
		}
		return mapError("attempt", "Insert", err)
	}
	return nil
}

// Exists reports whether the user already answered the simulation.
func (r *AttemptRepository) Exists(ctx context.Context, userID, simulationID int64) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM attempts WHERE user_id = $1 AND simulation_id = $2)`,
		userID, simulationID,
	).Scan(&ok)
	return ok, mapError("attempt", "Exists", err)
}

// StatsByUser aggregates the user's attempts in one pass.
func (r *AttemptRepository) StatsByUser(ctx context.Context, userID int64) (attempt.Stats, error) {
	var s attempt.Stats
	err := r.q.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE is_correct),
		       COALESCE(sum(time_spent), 0),
		       COALESCE(min(time_spent) FILTER (WHERE is_correct), -1)
		FROM attempts
		WHERE user_id = $1`, userID,
	).Scan(&s.Total, &s.Correct, &s.TotalTimeSpent, &s.FastestCorrect)
	if err != nil {
		return attempt.EmptyStats(), mapError("attempt", "StatsByUser", err)
	}
	return s, nil
}

// ListByUser returns the user's attempts since the given instant, oldest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID int64, since time.Time) ([]*attempt.Attempt, error) {
	return r.ListAll(ctx, attempt.Filter{UserID: userID, Since: since})
}

// PageByUser returns one page of history, newest first, and the total count.
func (r *AttemptRepository) PageByUser(ctx context.Context, userID int64, page attempt.Page) ([]*attempt.Attempt, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT count(*) FROM attempts WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, mapError("attempt", "PageByUser", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM attempts
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		userID, page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, 0, mapError("attempt", "PageByUser", err)
	}
	out, err := scanAttempts(rows)
	if err != nil {
		return nil, 0, mapError("attempt", "PageByUser", err)
	}
	if out == nil {
		out = []*attempt.Attempt{}
	}
	return out, total, nil
}

// ListAll returns attempts matching the filter, oldest first.
func (r *AttemptRepository) ListAll(ctx context.Context, f attempt.Filter) ([]*attempt.Attempt, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("attempt", "ListAll", err)
	}
	out, err := scanAttempts(rows)
	return out, mapError("attempt", "ListAll", err)
}

// CountAll returns the number of attempts and correct attempts.
func (r *AttemptRepository) CountAll(ctx context.Context) (int, int, error) {
	var total, correct int
	err := r.q.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_correct) FROM attempts`,
	).Scan(&total, &correct)
	return total, correct, mapError("attempt", "CountAll", err)
}
