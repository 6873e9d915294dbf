package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/internal/domain/simulation"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIMULATION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// SimulationRepository implements simulation.Repository for PostgreSQL.
type SimulationRepository struct {
	q Querier
}

const simulationColumns = `id, title, sender_name, sender_email, subject, content, difficulty,
	category, correct_action, explanation, indicators, is_active, created_at`

func scanSimulation(row rowScanner) (*simulation.Simulation, error) {
	var (
		s          simulation.Simulation
		difficulty string
		indicators []byte
	)
	err := row.Scan(&s.ID, &s.Title, &s.SenderName, &s.SenderEmail, &s.Subject, &s.Content,
		&difficulty, &s.Category, &s.CorrectAction, &s.Explanation, &indicators, &s.IsActive, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Difficulty = simulation.Difficulty(difficulty)
	if len(indicators) > 0 {
		if err := json.Unmarshal(indicators, &s.Indicators); err != nil {
			return nil, fmt.Errorf("decode indicators of simulation %d: %w", s.ID, err)
		}
	}
	return &s, nil
}

func (r *SimulationRepository) list(ctx context.Context, op, query string, args ...any) ([]*simulation.Simulation, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("simulation", op, err)
	}
	defer rows.Close()

	var out []*simulation.Simulation
	for rows.Next() {
		s, err := scanSimulation(rows)
		if err != nil {
			return nil, mapError("simulation", op, err)
		}
		out = append(out, s)
	}
	return out, mapError("simulation", op, rows.Err())
}

// GetActive returns an active simulation or ErrSimulationNotFound.
func (r *SimulationRepository) GetActive(ctx context.Context, id int64) (*simulation.Simulation, error) {
	s, err := scanSimulation(r.q.QueryRow(ctx,
		`SELECT `+simulationColumns+` FROM simulations WHERE id = $1 AND is_active`, id))
	if IsNoRows(err) {
		return nil, shared.ErrSimulationNotFound
	}
	if err != nil {
		return nil, mapError("simulation", "GetActive", err)
	}
	return s, nil
}

// ListActive returns active simulations by ascending ID.
func (r *SimulationRepository) ListActive(ctx context.Context, f simulation.ListFilter) ([]*simulation.Simulation, error) {
	where := []string{"is_active"}
	var args []any
	if f.Difficulty != "" {
		args = append(args, string(f.Difficulty))
		where = append(where, fmt.Sprintf("difficulty = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	query := `SELECT ` + simulationColumns + ` FROM simulations WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.list(ctx, "ListActive", query, args...)
}

// ListAll returns every simulation, inactive included.
func (r *SimulationRepository) ListAll(ctx context.Context) ([]*simulation.Simulation, error) {
	return r.list(ctx, "ListAll", `SELECT `+simulationColumns+` FROM simulations ORDER BY id`)
}

// Categories returns distinct categories of active simulations.
func (r *SimulationRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx,
		`SELECT DISTINCT category FROM simulations WHERE is_active ORDER BY category`)
	if err != nil {
		return nil, mapError("simulation", "Categories", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, mapError("simulation", "Categories", err)
		}
		out = append(out, c)
	}
	return out, mapError("simulation", "Categories", rows.Err())
}

// Count returns total and active simulations.
func (r *SimulationRepository) Count(ctx context.Context) (simulation.Counts, error) {
	var c simulation.Counts
	err := r.q.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE is_active) FROM simulations`,
	).Scan(&c.Total, &c.Active)
	return c, mapError("simulation", "Count", err)
}

// Upsert inserts or updates a simulation keyed by title.
func (r *SimulationRepository) Upsert(ctx context.Context, s *simulation.Simulation) error {
	if err := s.Validate(); err != nil {
		return err
	}
	indicators, err := json.Marshal(nonNil(s.Indicators))
	if err != nil {
		return fmt.Errorf("encode indicators: %w", err)
	}

	err = r.q.QueryRow(ctx, `
		INSERT INTO simulations (title, sender_name, sender_email, subject, content, difficulty,
			category, correct_action, explanation, indicators, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (title) DO UPDATE SET
			sender_name = EXCLUDED.sender_name,
			sender_email = EXCLUDED.sender_email,
			subject = EXCLUDED.subject,
			content = EXCLUDED.content,
			difficulty = EXCLUDED.difficulty,
			category = EXCLUDED.category,
			correct_action = EXCLUDED.correct_action,
			explanation = EXCLUDED.explanation,
			indicators = EXCLUDED.indicators,
			is_active = EXCLUDED.is_active
		RETURNING id, created_at`,
		s.Title, s.SenderName, s.SenderEmail, s.Subject, s.Content, string(s.Difficulty),
		s.Category, s.CorrectAction, s.Explanation, indicators, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt)
	return mapError("simulation", "Upsert", err)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
