package memory

import (
	"context"
	"time"

	"github.com/phishguard/phishguard-hub/internal/domain/attempt"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

type attemptRepo struct{ v view }

func copyAttempt(a *attempt.Attempt) *attempt.Attempt {
	c := *a
	return &c
}

func (r attemptRepo) Insert(ctx context.Context, a *attempt.Attempt) error {
	return r.v.do(func(st *state) error {
		key := attemptKey{a.UserID, a.SimulationID}
		if st.attemptKeys[key] {
			return shared.ErrAttemptDuplicate
		}
		st.nextAttemptID++
		a.ID = st.nextAttemptID
		st.attempts = append(st.attempts, copyAttempt(a))
		st.attemptKeys[key] = true
		return nil
	})
}

func (r attemptRepo) Exists(ctx context.Context, userID, simulationID int64) (bool, error) {
	var ok bool
	err := r.v.do(func(st *state) error {
		ok = st.attemptKeys[attemptKey{userID, simulationID}]
		return nil
	})
	return ok, err
}

func (r attemptRepo) StatsByUser(ctx context.Context, userID int64) (attempt.Stats, error) {
	s := attempt.EmptyStats()
	err := r.v.do(func(st *state) error {
		for _, a := range st.attempts {
			if a.UserID == userID {
				s = s.Add(a)
			}
		}
		return nil
	})
	return s, err
}

func (r attemptRepo) ListByUser(ctx context.Context, userID int64, since time.Time) ([]*attempt.Attempt, error) {
	return r.ListAll(ctx, attempt.Filter{UserID: userID, Since: since})
}

func (r attemptRepo) PageByUser(ctx context.Context, userID int64, page attempt.Page) ([]*attempt.Attempt, int, error) {
	var mine []*attempt.Attempt
	err := r.v.do(func(st *state) error {
		// Insertion order is ID order; walk backwards for newest first.
		for i := len(st.attempts) - 1; i >= 0; i-- {
			if st.attempts[i].UserID == userID {
				mine = append(mine, copyAttempt(st.attempts[i]))
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	total := len(mine)
	from := page.Offset()
	if from >= total {
		return []*attempt.Attempt{}, total, nil
	}
	to := from + page.PerPage
	if to > total {
		to = total
	}
	return mine[from:to], total, nil
}

func (r attemptRepo) ListAll(ctx context.Context, f attempt.Filter) ([]*attempt.Attempt, error) {
	var out []*attempt.Attempt
	err := r.v.do(func(st *state) error {
		for _, a := range st.attempts {
			if f.UserID != 0 && a.UserID != f.UserID {
				continue
			}
			if !f.Since.IsZero() && a.CreatedAt.Before(f.Since) {
				continue
			}
			out = append(out, copyAttempt(a))
		}
		return nil
	})
	return out, err
}

func (r attemptRepo) CountAll(ctx context.Context) (int, int, error) {
	var total, correct int
	err := r.v.do(func(st *state) error {
		total = len(st.attempts)
		for _, a := range st.attempts {
			if a.IsCorrect {
				correct++
			}
		}
		return nil
	})
	return total, correct, err
}
