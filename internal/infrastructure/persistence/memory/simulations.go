package memory

import (
	"context"
	"sort"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

type simulationRepo struct{ v view }

func copySimulation(s *simulation.Simulation) *simulation.Simulation {
	c := *s
	c.Indicators = append([]string(nil), s.Indicators...)
	return &c
}

func (r simulationRepo) GetActive(ctx context.Context, id int64) (*simulation.Simulation, error) {
	var out *simulation.Simulation
	err := r.v.do(func(st *state) error {
		s, ok := st.simulations[id]
		if !ok || !s.IsActive {
			return shared.ErrSimulationNotFound
		}
		out = copySimulation(s)
		return nil
	})
	return out, err
}

func (r simulationRepo) ListActive(ctx context.Context, f simulation.ListFilter) ([]*simulation.Simulation, error) {
	var out []*simulation.Simulation
	err := r.v.do(func(st *state) error {
		for _, s := range st.simulations {
			if !s.IsActive {
				continue
			}
			if f.Difficulty != "" && s.Difficulty != f.Difficulty {
				continue
			}
			if f.Category != "" && s.Category != f.Category {
				continue
			}
			out = append(out, copySimulation(s))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortSimulations(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r simulationRepo) ListAll(ctx context.Context) ([]*simulation.Simulation, error) {
	var out []*simulation.Simulation
	err := r.v.do(func(st *state) error {
		for _, s := range st.simulations {
			out = append(out, copySimulation(s))
		}
		return nil
	})
	sortSimulations(out)
	return out, err
}

func (r simulationRepo) Categories(ctx context.Context) ([]string, error) {
	set := make(map[string]bool)
	err := r.v.do(func(st *state) error {
		for _, s := range st.simulations {
			if s.IsActive {
				set[s.Category] = true
			}
		}
		return nil
	})
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, err
}

func (r simulationRepo) Count(ctx context.Context) (simulation.Counts, error) {
	var c simulation.Counts
	err := r.v.do(func(st *state) error {
		for _, s := range st.simulations {
			c.Total++
			if s.IsActive {
				c.Active++
			}
		}
		return nil
	})
	return c, err
}

func (r simulationRepo) Upsert(ctx context.Context, sim *simulation.Simulation) error {
	if err := sim.Validate(); err != nil {
		return err
	}
	return r.v.do(func(st *state) error {
		for id, existing := range st.simulations {
			if existing.Title == sim.Title {
				sim.ID = id
				sim.CreatedAt = existing.CreatedAt
				st.simulations[id] = copySimulation(sim)
				return nil
			}
		}
		st.nextSimID++
		sim.ID = st.nextSimID
		st.simulations[sim.ID] = copySimulation(sim)
		return nil
	})
}

func sortSimulations(s []*simulation.Simulation) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}
