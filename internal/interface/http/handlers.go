package http

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/phishguard/phishguard-hub/internal/application/command"
	"github.com/phishguard/phishguard-hub/internal/application/query"
	"github.com/phishguard/phishguard-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SIMULATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sims, err := s.deps.Simulations.List(r.Context(), query.ListSimulationsQuery{
		Difficulty: strings.TrimSpace(q.Get("difficulty")),
		Category:   strings.TrimSpace(q.Get("category")),
		Limit:      getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"simulations": sims,
		"total":       len(sims),
	})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, shared.ErrSimulationNotFound)
		return
	}
	sim, err := s.deps.Simulations.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"simulation": sim})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.deps.Simulations.Categories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cats == nil {
		cats = []string{}
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"categories": cats})
}

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"difficulties": s.deps.Simulations.Difficulties(),
	})
}

// submitRequest is the body of a submission.
type submitRequest struct {
	Action string `json:"action"`
	// TimeSpent is in seconds; browsers may send fractions.
	TimeSpent float64 `json:"time_spent"`
}

func (s *Server) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	simID, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, shared.ErrSimulationNotFound)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, r, shared.ErrActionRequired)
		default:
			writeJSONError(w, r, http.StatusBadRequest, "invalid_json", "Request body must be a JSON object")
		}
		return
	}
	if req.TimeSpent < 0 {
		writeError(w, r, shared.ErrNegativeTimeSpent)
		return
	}
	if math.IsNaN(req.TimeSpent) || math.IsInf(req.TimeSpent, 0) || req.TimeSpent > math.MaxInt32 {
		writeError(w, r, shared.ValidationError("attempt", "Validate", "time spent out of range"))
		return
	}

	// Truncated, not rounded: floor(t) is under a whole-second threshold
	// exactly when t is, so the stored value agrees with the speed bonus.
	seconds := int(math.Floor(req.TimeSpent))

	res, err := s.deps.SubmitAttempt.Handle(r.Context(), command.SubmitAttemptCommand{
		UserID:       currentUser(r),
		SimulationID: simID,
		Action:       req.Action,
		TimeSpent:    seconds,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"message": "Attempt submitted successfully",
		"result":  res,
	})
}

func (s *Server) handleUserAttempts(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.AttemptHistory.Handle(r.Context(), currentUser(r),
		getQueryParamInt(r, "page", 1),
		getQueryParamInt(r, "per_page", query.DefaultPerPage),
	)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

// ══════════════════════════════════════════════════════════════════════════════
// ANALYTICS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := s.deps.Dashboard.Handle(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dash)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Leaderboard.Handle(r.Context(), getQueryParamInt(r, "limit", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.GlobalStats.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (s *Server) handleProgressChart(w http.ResponseWriter, r *http.Request) {
	points, err := s.deps.ProgressChart.Handle(r.Context(), currentUser(r), getQueryParamInt(r, "days", 0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"chart_data": points})
}

func (s *Server) handleAllBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := s.deps.Badges.All(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"badges": badges})
}

func (s *Server) handleUserBadges(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, r, shared.ErrUserNotFound)
		return
	}
	badges, err := s.deps.Badges.Earned(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"user_id": id,
		"badges":  badges,
	})
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.AdminStats.Handle(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"stats": stats})
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth is liveness: the process is up and serving.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": s.config.Version,
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleReady runs dependency checks; any failure yields 503.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.Health.Check(r.Context())
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, r, code, status)
}
