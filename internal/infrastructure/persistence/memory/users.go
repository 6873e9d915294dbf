package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/user"
)

type userRepo struct{ v view }

func copyUser(u *user.User) *user.User {
	c := *u
	if u.LastActivity != nil {
		t := *u.LastActivity
		c.LastActivity = &t
	}
	return &c
}

func (r userRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var out *user.User
	err := r.v.do(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return shared.ErrUserNotFound
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r userRepo) GetForUpdate(ctx context.Context, id int64) (*user.User, error) {
	return r.GetByID(ctx, id)
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var out *user.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				out = copyUser(u)
				return nil
			}
		}
		return shared.ErrUserNotFound
	})
	return out, err
}

func (r userRepo) Create(ctx context.Context, u *user.User) error {
	return r.v.do(func(st *state) error {
		for _, existing := range st.users {
			if existing.Username == u.Username || existing.Email == u.Email {
				return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "username or email taken")
			}
		}
		st.nextUserID++
		u.ID = st.nextUserID
		st.users[u.ID] = copyUser(u)
		return nil
	})
}

func (r userRepo) SaveProgress(ctx context.Context, u *user.User) error {
	return r.v.do(func(st *state) error {
		existing, ok := st.users[u.ID]
		if !ok {
			return shared.ErrUserNotFound
		}
		next := copyUser(existing)
		next.TotalXP = u.TotalXP
		next.CurrentLevel = u.CurrentLevel
		next.StreakDays = u.StreakDays
		if u.LastActivity != nil {
			t := *u.LastActivity
			next.LastActivity = &t
		}
		st.users[u.ID] = next
		return nil
	})
}

func (r userRepo) TopByXP(ctx context.Context, limit int) ([]*user.User, error) {
	var out []*user.User
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			if u.IsActive {
				out = append(out, copyUser(u))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalXP != out[j].TotalXP {
			return out[i].TotalXP > out[j].TotalXP
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r userRepo) Count(ctx context.Context) (user.Counts, error) {
	var c user.Counts
	err := r.v.do(func(st *state) error {
		for _, u := range st.users {
			c.Total++
			if u.IsActive {
				c.Active++
			}
		}
		return nil
	})
	return c, err
}
