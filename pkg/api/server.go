// Package api exposes the daemon's HTTP surface: round submission,
// solving, result retrieval, the lifecycle event log, health, and
// Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/open-tally/tally/pkg/graph"
	"github.com/open-tally/tally/pkg/reports"
	"github.com/open-tally/tally/pkg/store"
)

// RoundStore is the persistence surface the server needs. *store.Store
// implements it; tests substitute mocks.
type RoundStore interface {
	CreateRound(ctx context.Context, round *store.Round) error
	GetRound(ctx context.Context, roundID string) (*store.Round, error)
	ListRounds(ctx context.Context, limit int) ([]*store.Round, error)
	GetResult(ctx context.Context, roundID string) (*store.RoundResult, error)
	AppendEvent(ctx context.Context, event *store.Event) error
	ReadRecentEvents(ctx context.Context, limit int) ([]*store.Event, error)
}

// Solver runs the solve pass for one round.
type Solver interface {
	Run(ctx context.Context, roundID string) (*store.RoundResult, error)
}

// Leadership gates write endpoints to the leading instance.
type Leadership interface {
	IsLeader() bool
	Leader(ctx context.Context) (string, bool, error)
}

// Server encapsulates the HTTP API server.
type Server struct {
	store  RoundStore
	solver Solver
	server *http.Server

	// Optional leadership gate; nil means standalone mode.
	leadership Leadership
}

// NewServer creates the API server listening on addr.
func NewServer(st RoundStore, solver Solver, addr string) *Server {
	s := &Server{store: st, solver: solver}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/rounds", s.handleRounds)
	mux.HandleFunc("/v1/rounds/", s.handleRound)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/reports", s.handleReports)

	if addr == "" {
		addr = ":8090"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      withLogging(withRecovery(mux)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	return s
}

// SetLeadership installs the leadership gate for write endpoints.
func (s *Server) SetLeadership(l Leadership) {
	s.leadership = l
}

// Start runs the HTTP server (blocking).
func (s *Server) Start() error {
	slog.Info("api server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("api server stopping")
	return s.server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		if !s.requireLeader(w, r) {
			return
		}
		s.createRound(w, r)
	case http.MethodGet:
		s.listRounds(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	}
}

func (s *Server) createRound(w http.ResponseWriter, r *http.Request) {
	var req CreateRoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json_body")
		return
	}
	if req.Seats <= 0 || len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, "missing_required_fields")
		return
	}

	roundID := req.RoundID
	if roundID == "" {
		roundID = uuid.NewString()
	}

	round := &store.Round{
		RoundID:   roundID,
		Status:    store.RoundStatusPending,
		CreatedAt: time.Now().UTC(),
		Ballots: store.Ballots{
			Seats:      req.Seats,
			Candidates: req.Candidates,
			Voters:     req.Voters,
		},
	}

	if err := s.store.CreateRound(r.Context(), round); err != nil {
		slog.Error("failed to create round", "error", err, "roundID", roundID)
		writeError(w, http.StatusInternalServerError, "round_creation_failed")
		return
	}

	if err := s.store.AppendEvent(r.Context(), &store.Event{
		EventID:   uuid.NewString(),
		EventType: store.EventTypeRoundCreated,
		TsEvent:   round.CreatedAt,
		RoundID:   roundID,
	}); err != nil {
		slog.Error("failed to append round_created event", "error", err, "roundID", roundID)
	}

	writeJSON(w, http.StatusCreated, CreateRoundResponse{
		RoundID:   roundID,
		Status:    string(round.Status),
		CreatedAt: round.CreatedAt,
	})
}

func (s *Server) listRounds(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50)
	rounds, err := s.store.ListRounds(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list rounds", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	summaries := make([]RoundSummary, 0, len(rounds))
	for _, round := range rounds {
		summaries = append(summaries, summarize(round))
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleRound serves /v1/rounds/{id} and its solve, result and graph
// subresources.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/rounds/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	roundID := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		s.getRound(w, r, roundID)
	case len(parts) == 2 && parts[1] == "solve":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		if !s.requireLeader(w, r) {
			return
		}
		s.solveRound(w, r, roundID)
	case len(parts) == 2 && parts[1] == "result":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		s.getResult(w, r, roundID)
	case len(parts) == 2 && parts[1] == "graph":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		s.getGraph(w, r, roundID)
	default:
		writeError(w, http.StatusNotFound, "not_found")
	}
}

func (s *Server) getRound(w http.ResponseWriter, r *http.Request, roundID string) {
	round, err := s.store.GetRound(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round_not_found")
			return
		}
		slog.Error("failed to get round", "error", err, "roundID", roundID)
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (s *Server) solveRound(w http.ResponseWriter, r *http.Request, roundID string) {
	result, err := s.solver.Run(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round_not_found")
			return
		}
		slog.Error("solve failed", "error", err, "roundID", roundID)
		writeError(w, http.StatusUnprocessableEntity, "solve_failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) getResult(w http.ResponseWriter, r *http.Request, roundID string) {
	result, err := s.store.GetResult(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result_not_found")
			return
		}
		slog.Error("failed to get result", "error", err, "roundID", roundID)
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// getGraph projects the reduced assignment set of a solved round into the
// node/edge shape the visualization consumes.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request, roundID string) {
	result, err := s.store.GetResult(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result_not_found")
			return
		}
		slog.Error("failed to get result", "error", err, "roundID", roundID)
		writeError(w, http.StatusInternalServerError, "get_failed")
		return
	}
	writeJSON(w, http.StatusOK, graph.Project(result.Assignments))
}

// handleReports serves /v1/reports?type=winners&round_id=...&limit=... as CSV.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	reportType := reports.ReportType(r.URL.Query().Get("type"))
	gen, err := reports.NewReportGenerator(reportType, s.store)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_report_type")
		return
	}

	params := reports.ReportParams{
		RoundID: r.URL.Query().Get("round_id"),
		Limit:   parseLimit(r, 100),
	}
	reader, err := gen.Generate(r.Context(), params)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result_not_found")
			return
		}
		slog.Error("report generation failed", "error", err, "type", reportType)
		writeError(w, http.StatusBadRequest, "report_failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("failed to write report", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	events, err := s.store.ReadRecentEvents(r.Context(), parseLimit(r, 50))
	if err != nil {
		slog.Error("failed to read events", "error", err)
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// requireLeader rejects writes on non-leading instances, pointing the
// caller at the current leader when known.
func (s *Server) requireLeader(w http.ResponseWriter, r *http.Request) bool {
	if s.leadership == nil || s.leadership.IsLeader() {
		return true
	}

	leader, held, err := s.leadership.Leader(r.Context())
	if err != nil {
		slog.Error("failed to look up leader", "error", err)
	}
	body := map[string]string{"error": "not_leader"}
	if held {
		body["leader"] = leader
	}
	writeJSON(w, http.StatusServiceUnavailable, body)
	return false
}

func parseLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
