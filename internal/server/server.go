// Package server exposes probe status over HTTP: health, latest run,
// run history, and Prometheus metrics. Every response carries no-cache
// headers so monitors always see fresh results.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// defaultRunsLimit bounds /runs when no limit parameter is given.
const defaultRunsLimit = 20

// Server serves probe status endpoints.
type Server struct {
	runStore  storage.ProbeRunStore
	metrics   http.Handler
	logger    zerolog.Logger
	startedAt time.Time
	now       func() time.Time
}

// Options for creating a Server.
type Options struct {
	// RunStore supplies run history for /status and /runs.
	RunStore storage.ProbeRunStore

	// Metrics handles /metrics. Optional; the route 404s when nil.
	Metrics http.Handler

	Logger zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{
		runStore: opts.RunStore,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.startedAt = s.now()
	return s
}

// Handler builds the route table. All routes, metrics included, go through
// the no-cache middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/runs", s.handleRuns)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	return noCache(mux)
}

// ListenAndServe runs the server until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("starting status server")
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// noCache stamps responses so intermediaries and browsers never serve
// stale probe results.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for /status.
type StatusResponse struct {
	Status    string       `json:"status"`
	Uptime    string       `json:"uptime"`
	StartedAt time.Time    `json:"started_at"`
	LastRun   *RunResponse `json:"last_run,omitempty"`
}

// RunResponse is the JSON shape of one probe run.
type RunResponse struct {
	RunID      string          `json:"run_id"`
	Network    string          `json:"network"`
	StartedAt  int64           `json:"started_at"`
	FinishedAt int64           `json:"finished_at"`
	Passed     bool            `json:"passed"`
	Executed   int             `json:"executed"`
	Skipped    int             `json:"skipped"`
	Results    []CheckResponse `json:"results"`
}

// CheckResponse is the JSON shape of one check result.
type CheckResponse struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
}

// handleStatus returns server uptime and the most recent run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:    "running",
		Uptime:    s.now().Sub(s.startedAt).String(),
		StartedAt: s.startedAt,
	}

	runs, err := s.runStore.ListRecent(r.Context(), 1)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Error().Err(err).Msg("list recent runs")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if len(runs) > 0 {
		rr := toRunResponse(runs[0])
		resp.LastRun = &rr
	}

	writeJSON(w, resp)
}

// handleRuns returns recent run history, newest first. Accepts ?limit=N.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := s.runStore.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list recent runs")
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}
	writeJSON(w, resp)
}

func toRunResponse(run *domain.ProbeRun) RunResponse {
	rr := RunResponse{
		RunID:      run.RunID,
		Network:    run.Network,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Passed:     run.Passed,
		Executed:   run.Executed,
		Skipped:    run.Skipped,
	}
	for _, result := range run.Results {
		rr.Results = append(rr.Results, CheckResponse{
			Name:      result.Name,
			Status:    string(result.Status),
			LatencyMS: result.LatencyMS,
			Detail:    result.Detail,
			Error:     result.Error,
		})
	}
	return rr
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
