package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/presenced/internal/config"
	"git.home.luguber.info/inful/presenced/internal/foundation"
	"git.home.luguber.info/inful/presenced/internal/history"
	"git.home.luguber.info/inful/presenced/internal/logfields"
	"git.home.luguber.info/inful/presenced/internal/status"
)

// Backend is the daemon surface the HTTP API needs. Narrowed to an
// interface so handler tests can run against a stub.
type Backend interface {
	CurrentActive() foundation.Option[status.Entry]
	NewEntry(source status.Source, label string, priority int, validFrom time.Time, validUntil *time.Time) (status.Entry, error)
	SubmitEntry(entry status.Entry) (string, error)
	RevokeEntry(id string)
	TriggerWake(now time.Time) (string, error)
	RegenerateSchedule(ctx context.Context) error
	ScheduleView() (string, []status.Entry)
	RecentTransitions(ctx context.Context, limit int) ([]history.Transition, error)
}

// HTTPServer exposes the local admin API: status inspection, manual
// submissions and revocations, wake, and schedule regeneration.
type HTTPServer struct {
	cfg     config.HTTPConfig
	backend Backend
	metrics http.Handler
	srv     *http.Server
}

// NewHTTPServer builds the server; Start binds and serves.
func NewHTTPServer(cfg config.HTTPConfig, backend Backend) *HTTPServer {
	return &HTTPServer{cfg: cfg, backend: backend}
}

// SetMetricsHandler attaches the /metrics endpoint. Without it the route
// responds 404.
func (s *HTTPServer) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// Routes returns the API mux. Exposed for handler tests.
func (s *HTTPServer) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleGetStatus)
	mux.HandleFunc("POST /api/status", s.handleSubmit)
	mux.HandleFunc("DELETE /api/status/{id}", s.handleRevoke)
	mux.HandleFunc("POST /api/wake", s.handleWake)
	mux.HandleFunc("GET /api/schedule", s.handleGetSchedule)
	mux.HandleFunc("POST /api/schedule/regenerate", s.handleRegenerate)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return mux
}

// Start binds the listen address before serving so a taken port fails the
// daemon startup instead of surfacing later in the serve goroutine.
func (s *HTTPServer) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return foundation.ConfigurationError("failed to bind admin API listener").
			WithCause(err).
			WithComponent("http_server").
			WithContext(foundation.Fields{"listen": s.cfg.Listen}).
			Build()
	}

	s.srv = &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Admin API listening", "listen", s.cfg.Listen)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Admin API server failed", logfields.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down.
func (s *HTTPServer) Stop(ctx context.Context) {
	if s.srv == nil {
		return
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Warn("Admin API shutdown failed", logfields.Error(err))
	}
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Active *status.Entry `json:"active"`
	Label  string        `json:"label"`
}

func (s *HTTPServer) handleGetStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{}
	s.backend.CurrentActive().Match(func(e status.Entry) {
		resp.Active = &e
		resp.Label = e.Label
	}, func() {})
	writeJSON(w, http.StatusOK, resp)
}

type submitRequest struct {
	Source     string     `json:"source"`
	Label      string     `json:"label"`
	Priority   int        `json:"priority,omitempty"`
	TTLSeconds int        `json:"ttl_seconds,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	Silent     bool       `json:"silent,omitempty"`
}

func (s *HTTPServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, foundation.InvalidEntryError("malformed request body").WithCause(err).Build())
		return
	}

	now := time.Now()
	validUntil := req.ValidUntil
	if validUntil == nil && req.TTLSeconds > 0 {
		until := now.Add(time.Duration(req.TTLSeconds) * time.Second)
		validUntil = &until
	}

	entry, err := s.backend.NewEntry(status.Source(req.Source), req.Label, req.Priority, now, validUntil)
	if err != nil {
		writeError(w, err)
		return
	}
	entry.Silent = req.Silent

	id, err := s.backend.SubmitEntry(entry)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *HTTPServer) handleRevoke(w http.ResponseWriter, r *http.Request) {
	s.backend.RevokeEntry(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleWake(w http.ResponseWriter, _ *http.Request) {
	id, err := s.backend.TriggerWake(time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         id,
		"suppressed": id == "",
	})
}

type scheduleResponse struct {
	Day     string         `json:"day"`
	Entries []status.Entry `json:"entries"`
}

func (s *HTTPServer) handleGetSchedule(w http.ResponseWriter, _ *http.Request) {
	day, entries := s.backend.ScheduleView()
	writeJSON(w, http.StatusOK, scheduleResponse{Day: day, Entries: entries})
}

func (s *HTTPServer) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.RegenerateSchedule(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	day, entries := s.backend.ScheduleView()
	writeJSON(w, http.StatusOK, scheduleResponse{Day: day, Entries: entries})
}

func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, foundation.InvalidEntryError("limit must be a non-negative integer").Build())
			return
		}
		limit = parsed
	}

	transitions, err := s.backend.RecentTransitions(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if transitions == nil {
		transitions = []history.Transition{}
	}
	writeJSON(w, http.StatusOK, transitions)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("Failed to encode API response", logfields.Error(err))
	}
}

// writeError maps classified error codes onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case foundation.HasCode(err, foundation.ErrorCodeValidation):
		code = http.StatusBadRequest
	case foundation.HasCode(err, foundation.ErrorCodeNotFound):
		code = http.StatusNotFound
	case foundation.HasCode(err, foundation.ErrorCodeExternal):
		code = http.StatusBadGateway
	case foundation.HasCode(err, foundation.ErrorCodePersistence):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
