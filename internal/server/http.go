// Package server exposes agent status over HTTP and the gRPC health protocol.
package server

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cartridge/fighter/internal/agent"
	"github.com/cartridge/fighter/internal/metrics"
)

// Agent is the read-only view of a running control loop.
type Agent interface {
	ID() string
	Status() agent.Status
	LatestMetrics() (metrics.Record, bool)
}

// HTTP wires status handlers to the running agents.
type HTTP struct {
	agents map[string]Agent
	logger zerolog.Logger
}

// NewHTTP constructs the status server.
func NewHTTP(agents []Agent, logger zerolog.Logger) *HTTP {
	byID := make(map[string]Agent, len(agents))
	for _, a := range agents {
		byID[a.ID()] = a
	}
	return &HTTP{agents: byID, logger: logger.With().Str("component", "http").Logger()}
}

// Routes builds the router.
func (s *HTTP) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(CorrelationID)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/agents", s.handleListAgents)
		r.Get("/agents/{agentID}", s.handleGetAgent)
		r.Get("/agents/{agentID}/metrics", s.handleGetMetrics)
	})
	return r
}

func (s *HTTP) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "agents": len(s.agents)})
}

func (s *HTTP) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	out := make([]agent.Status, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	s.writeJSON(w, http.StatusOK, out)
}

func (s *HTTP) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agents[chi.URLParam(r, "agentID")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	s.writeJSON(w, http.StatusOK, a.Status())
}

func (s *HTTP) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	a, ok := s.agents[chi.URLParam(r, "agentID")]
	if !ok {
		s.writeError(w, http.StatusNotFound, "agent not found")
		return
	}
	rec, ok := a.LatestMetrics()
	if !ok {
		s.writeError(w, http.StatusNotFound, "no metrics flushed yet")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *HTTP) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *HTTP) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}
