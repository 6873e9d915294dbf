package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements badge.Repository for PostgreSQL.
type BadgeRepository struct {
	q Querier
}

const badgeColumns = `b.id, b.key, b.name, b.description, b.icon, b.rarity, b.xp_reward,
	b.rule, b.position, b.is_active, b.created_at`

func scanBadge(row rowScanner, extra ...any) (*badge.Badge, error) {
	var (
		b      badge.Badge
		rarity string
		rule   []byte
	)
	dest := append([]any{&b.ID, &b.Key, &b.Name, &b.Description, &b.Icon, &rarity,
		&b.XPReward, &rule, &b.Position, &b.IsActive, &b.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	b.Rarity = badge.Rarity(rarity)
	if err := json.Unmarshal(rule, &b.Rule); err != nil {
		return nil, fmt.Errorf("decode rule of badge %s: %w", b.Key, err)
	}
	return &b, nil
}

// SyncCatalog upserts every catalog badge by key and deactivates the rest.
// Call it inside a transaction so a half-synced catalog is never visible.
func (r *BadgeRepository) SyncCatalog(ctx context.Context, c *badge.Catalog) error {
	keys := make([]string, 0, len(c.Badges))
	for i := range c.Badges {
		b := &c.Badges[i]
		rule, err := json.Marshal(b.Rule)
		if err != nil {
			return fmt.Errorf("encode rule of badge %s: %w", b.Key, err)
		}
		err = r.q.QueryRow(ctx, `
			INSERT INTO badges (key, name, description, icon, rarity, xp_reward, rule, position, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
			ON CONFLICT (key) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				icon = EXCLUDED.icon,
				rarity = EXCLUDED.rarity,
				xp_reward = EXCLUDED.xp_reward,
				rule = EXCLUDED.rule,
				position = EXCLUDED.position,
				is_active = TRUE
			RETURNING id`,
			b.Key, b.Name, b.Description, b.Icon, string(b.Rarity), b.XPReward, rule, b.Position,
		).Scan(&b.ID)
		if err != nil {
			return mapError("badge", "SyncCatalog", err)
		}
		keys = append(keys, b.Key)
	}

	_, err := r.q.Exec(ctx,
		`UPDATE badges SET is_active = FALSE WHERE is_active AND NOT (key = ANY($1))`, keys)
	return mapError("badge", "SyncCatalog", err)
}

// HasBadge reports whether the user holds the badge.
func (r *BadgeRepository) HasBadge(ctx context.Context, userID int64, key string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_badges ub JOIN badges b ON b.id = ub.badge_id
			WHERE ub.user_id = $1 AND b.key = $2
		)`, userID, key,
	).Scan(&ok)
	return ok, mapError("badge", "HasBadge", err)
}

// Award grants an active badge once. A repeated award is a no-op that
// reports false; the unique constraint decides between racing awards.
func (r *BadgeRepository) Award(ctx context.Context, userID int64, key string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO user_badges (user_id, badge_id, earned_at)
		SELECT $1, id, $3 FROM badges WHERE key = $2 AND is_active
		ON CONFLICT (user_id, badge_id) DO NOTHING`,
		userID, key, at,
	)
	if err != nil {
		return false, mapError("badge", "Award", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM badges WHERE key = $1 AND is_active)`, key,
	).Scan(&exists); err != nil {
		return false, mapError("badge", "Award", err)
	}
	if !exists {
		return false, shared.ErrBadgeNotFound
	}
	return false, nil
}

// ListActive returns active badges in catalog order.
func (r *BadgeRepository) ListActive(ctx context.Context) ([]*badge.Badge, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+badgeColumns+` FROM badges b WHERE b.is_active ORDER BY b.position, b.id`)
	if err != nil {
		return nil, mapError("badge", "ListActive", err)
	}
	defer rows.Close()

	var out []*badge.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, mapError("badge", "ListActive", err)
		}
		out = append(out, b)
	}
	return out, mapError("badge", "ListActive", rows.Err())
}

// ListByUser returns the user's badges, newest first.
func (r *BadgeRepository) ListByUser(ctx context.Context, userID int64) ([]*badge.UserBadge, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+badgeColumns+`, ub.earned_at
		FROM user_badges ub JOIN badges b ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at DESC, ub.id DESC`, userID)
	if err != nil {
		return nil, mapError("badge", "ListByUser", err)
	}
	return collectUserBadges(rows, userID)
}

func collectUserBadges(rows pgx.Rows, userID int64) ([]*badge.UserBadge, error) {
	defer rows.Close()
	var out []*badge.UserBadge
	for rows.Next() {
		var earnedAt time.Time
		b, err := scanBadge(rows, &earnedAt)
		if err != nil {
			return nil, mapError("badge", "ListByUser", err)
		}
		out = append(out, &badge.UserBadge{UserID: userID, Badge: b, EarnedAt: earnedAt})
	}
	return out, mapError("badge", "ListByUser", rows.Err())
}

// Count returns total and active badges.
func (r *BadgeRepository) Count(ctx context.Context) (badge.Counts, error) {
	var c badge.Counts
	err := r.q.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM badges`,
	).Scan(&c.Total, &c.Active)
	return c, mapError("badge", "Count", err)
}
