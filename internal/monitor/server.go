// Package monitor serves the local status and health endpoints.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/shichaoxia/baby-monitor/internal/journal"
	"github.com/shichaoxia/baby-monitor/internal/logger"
	"github.com/shichaoxia/baby-monitor/internal/metrics"
	"github.com/shichaoxia/baby-monitor/pkg/types"
)

// Pipeline is the read-only view the status endpoints need.
// Implemented by pipeline.Supervisor.
type Pipeline interface {
	Running() bool
	Active() types.Gesture
	WindowFill() int
	WindowSize() int
}

// EventSource provides recent journal entries. May be nil when the journal
// is disabled.
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server exposes /health, /api/status and /api/events.
type Server struct {
	pipeline   Pipeline
	metrics    *metrics.Metrics
	events     EventSource
	httpServer *http.Server
}

// New creates the status server.
func New(addr string, p Pipeline, m *metrics.Metrics, events EventSource) *Server {
	s := &Server{
		pipeline: p,
		metrics:  m,
		events:   events,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/events", s.handleEvents)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// ListenAndServe runs the server until Shutdown.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Handler returns the route handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown stops the server with a bounded grace period.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":  "ok",
		"running": s.pipeline.Running(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"running":           s.pipeline.Running(),
		"active_state":      string(s.pipeline.Active()),
		"window_fill":       s.pipeline.WindowFill(),
		"window_size":       s.pipeline.WindowSize(),
		"frames_captured":   s.metrics.FramesCaptured.Load(),
		"frames_dropped":    s.metrics.FramesDropped.Load(),
		"frames_classified": s.metrics.FramesClassified.Load(),
		"capture_errors":    s.metrics.CaptureErrors.Load(),
		"classifier_errors": s.metrics.ClassifierErrors.Load(),
		"events_emitted":    s.metrics.EventsEmitted.Load(),
		"pushes_sent":       s.metrics.PushesSent.Load(),
		"push_failures":     s.metrics.PushFailures.Load(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := s.events.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("Monitor", "Journal query failed: %v", err)
		http.Error(w, "journal query failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	writeJSON(w, map[string]interface{}{"events": entries})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Monitor", "Response encode failed: %v", err)
	}
}
