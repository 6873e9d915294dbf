package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// USER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UserRepository implements user.Repository for PostgreSQL.
type UserRepository struct {
	q Querier
}

const userColumns = `id, username, email, name, password_hash, is_active,
	total_xp, current_level, streak_days, last_activity, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*user.User, error) {
	var (
		u            user.User
		xp, level    int
		lastActivity *time.Time
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive,
		&xp, &level, &u.StreakDays, &lastActivity, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.TotalXP = shared.XP(xp)
	u.CurrentLevel = shared.Level(level)
	u.LastActivity = lastActivity
	return &u, nil
}

func (r *UserRepository) getOne(ctx context.Context, op, where string, arg any) (*user.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if IsNoRows(err) {
		return nil, shared.ErrUserNotFound
	}
	if err != nil {
		return nil, mapError("user", op, err)
	}
	return u, nil
}

// GetByID returns a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, "GetByID", "id = $1", id)
}

// GetForUpdate locks the user row until the surrounding transaction ends.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return r.getOne(ctx, "GetForUpdate", "id = $1 FOR UPDATE", id)
}

// GetByEmail returns a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "GetByEmail", "email = $1", strings.ToLower(strings.TrimSpace(email)))
}

// Create inserts a user and sets its ID.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO users (username, email, name, password_hash, is_active,
			total_xp, current_level, streak_days, last_activity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		u.Username, u.Email, u.Name, u.PasswordHash, u.IsActive,
		u.TotalXP.Int(), u.CurrentLevel.Int(), u.StreakDays, u.LastActivity, createdAt,
	).Scan(&u.ID)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("user", "Create", shared.ErrAlreadyExists, "username or email taken", err)
		}
		return mapError("user", "Create", err)
	}
	u.CreatedAt = createdAt
	return nil
}

// SaveProgress writes XP, level, streak and last activity.
func (r *UserRepository) SaveProgress(ctx context.Context, u *user.User) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE users SET total_xp = $1, current_level = $2, streak_days = $3, last_activity = $4
		WHERE id = $5`,
		u.TotalXP.Int(), u.CurrentLevel.Int(), u.StreakDays, u.LastActivity, u.ID,
	)
	if err != nil {
		return mapError("user", "SaveProgress", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}
	return nil
}

// TopByXP returns active users ordered for the leaderboard.
func (r *UserRepository) TopByXP(ctx context.Context, limit int) ([]*user.User, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active
		ORDER BY total_xp DESC, id ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, mapError("user", "TopByXP", err)
	}
	defer rows.Close()

	var out []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, mapError("user", "TopByXP", err)
		}
		out = append(out, u)
	}
	return out, mapError("user", "TopByXP", rows.Err())
}

// Count returns total and active users.
func (r *UserRepository) Count(ctx context.Context) (user.Counts, error) {
	var c user.Counts
	err := r.q.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM users`,
	).Scan(&c.Total, &c.Active)
	return c, mapError("user", "Count", err)
}
