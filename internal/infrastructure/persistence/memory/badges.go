package memory

import (
	"context"
	"sort"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/badge"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

type badgeRepo struct{ v view }

func copyBadge(b *badge.Badge) *badge.Badge {
	c := *b
	return &c
}

func (st *state) badgeByKey(key string) *badge.Badge {
	for _, b := range st.badges {
		if b.Key == key {
			return b
		}
	}
	return nil
}

func (st *state) badgeByID(id int64) *badge.Badge {
	for _, b := range st.badges {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (r badgeRepo) SyncCatalog(ctx context.Context, c *badge.Catalog) error {
	return r.v.do(func(st *state) error {
		seen := make(map[string]bool, len(c.Badges))
		for i := range c.Badges {
			def := &c.Badges[i]
			seen[def.Key] = true

			next := copyBadge(def)
			next.IsActive = true
			if existing := st.badgeByKey(def.Key); existing != nil {
				next.ID = existing.ID
				next.CreatedAt = existing.CreatedAt
				replaceBadge(st, next)
			} else {
				st.nextBadgeID++
				next.ID = st.nextBadgeID
				if next.CreatedAt.IsZero() {
					next.CreatedAt = time.Now().UTC()
				}
				st.badges = append(st.badges, next)
			}
			def.ID = next.ID
		}

		for i, b := range st.badges {
			if !seen[b.Key] && b.IsActive {
				off := copyBadge(b)
				off.IsActive = false
				st.badges[i] = off
			}
		}
		sort.SliceStable(st.badges, func(i, j int) bool {
			return st.badges[i].Position < st.badges[j].Position
		})
		return nil
	})
}

func replaceBadge(st *state, b *badge.Badge) {
	for i := range st.badges {
		if st.badges[i].ID == b.ID {
			st.badges[i] = b
			return
		}
	}
}

func (r badgeRepo) HasBadge(ctx context.Context, userID int64, key string) (bool, error) {
	var has bool
	err := r.v.do(func(st *state) error {
		b := st.badgeByKey(key)
		if b == nil {
			return nil
		}
		has = st.hasAward(userID, b.ID)
		return nil
	})
	return has, err
}

func (st *state) hasAward(userID, badgeID int64) bool {
	for _, a := range st.awards {
		if a.userID == userID && a.badgeID == badgeID {
			return true
		}
	}
	return false
}

func (r badgeRepo) Award(ctx context.Context, userID int64, key string, at time.Time) (bool, error) {
	var awarded bool
	err := r.v.do(func(st *state) error {
		b := st.badgeByKey(key)
		if b == nil || !b.IsActive {
			return shared.ErrBadgeNotFound
		}
		if st.hasAward(userID, b.ID) {
			return nil
		}
		st.awards = append(st.awards, award{userID: userID, badgeID: b.ID, earnedAt: at.UnixNano()})
		awarded = true
		return nil
	})
	return awarded, err
}

func (r badgeRepo) ListActive(ctx context.Context) ([]*badge.Badge, error) {
	var out []*badge.Badge
	err := r.v.do(func(st *state) error {
		for _, b := range st.badges {
			if b.IsActive {
				out = append(out, copyBadge(b))
			}
		}
		return nil
	})
	return out, err
}

func (r badgeRepo) ListByUser(ctx context.Context, userID int64) ([]*badge.UserBadge, error) {
	var out []*badge.UserBadge
	err := r.v.do(func(st *state) error {
		for i := len(st.awards) - 1; i >= 0; i-- {
			a := st.awards[i]
			if a.userID != userID {
				continue
			}
			b := st.badgeByID(a.badgeID)
			if b == nil {
				continue
			}
			out = append(out, &badge.UserBadge{
				UserID:   userID,
				Badge:    copyBadge(b),
				EarnedAt: time.Unix(0, a.earnedAt).UTC(),
			})
		}
		return nil
	})
	return out, err
}

func (r badgeRepo) Count(ctx context.Context) (badge.Counts, error) {
	var c badge.Counts
	err := r.v.do(func(st *state) error {
		for _, b := range st.badges {
			c.Total++
			if b.IsActive {
				c.Active++
			}
		}
		return nil
	})
	return c, err
}
