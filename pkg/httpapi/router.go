// Package httpapi implements the trigger/status HTTP surface spec.md §6
// describes as "out of core; the core's contract to it": a thin router in
// front of the orchestrator, never importing pkg/orchestrator directly —
// it depends only on the Trigger interface, matching the corpus's habit of
// keeping HTTP handlers thin and collaborator-narrowed.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-logr/logr"

	apperrors "github.com/flashpointintel/pipeline/internal/errors"
)

// Config holds the router's runtime policy.
type Config struct {
	APIKey          string
	HasActiveMaxAge time.Duration
	AllowedOrigins  []string
}

// DefaultConfig returns spec.md §4.1's stale-run window as the
// has-active-run lookback. AllowedOrigins is left empty, which go-chi/cors
// treats as allowing every origin.
func DefaultConfig() Config {
	return Config{HasActiveMaxAge: 2 * time.Hour}
}

// Server wires the trigger API's collaborators to a chi.Router.
type Server struct {
	runs    RunStore
	trigger Trigger
	cfg     Config
	log     logr.Logger
	doc     *openAPIDoc
}

// NewServer builds a Server. Call NewRouter to obtain its http.Handler.
func NewServer(runs RunStore, trigger Trigger, cfg Config, log logr.Logger) (*Server, error) {
	doc, err := loadOpenAPIDoc()
	if err != nil {
		return nil, err
	}
	return &Server{runs: runs, trigger: trigger, cfg: cfg, log: log, doc: doc}, nil
}

// NewRouter builds the chi router: request logging, CORS, then the
// unauthenticated /health route, then the API-key-gated /pipeline routes.
func (s *Server) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", apiKeyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(requireAPIKey(s.cfg.APIKey))
		r.Post("/pipeline/run", s.handleTriggerRun)
		r.Get("/pipeline/runs", s.handleListRuns)
		r.Get("/pipeline/runs/{run_id}", s.handleGetRun)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTriggerRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "could not read request body")
		return
	}
	if err := s.doc.validateRunRequest(ctx, raw); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	var req runRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	active, err := s.runs.HasActiveRun(ctx, s.cfg.HasActiveMaxAge)
	if err != nil {
		s.log.Error(err, "has_active_run")
		writeProblem(w, http.StatusInternalServerError, "internal_error", "could not check for an active run")
		return
	}
	if active {
		writeProblem(w, http.StatusConflict, "run_already_active", "a pipeline run is already in progress")
		return
	}

	if err := s.trigger.Trigger(ctx, req.TargetDate, req.Tier); err != nil {
		s.log.Error(err, "trigger_run")
		writeProblem(w, http.StatusInternalServerError, "internal_error", "could not spawn pipeline run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"target_date": req.TargetDate,
		"tier":        req.Tier,
		"status":      "accepted",
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeProblem(w, http.StatusBadRequest, "invalid_request", "date query parameter is required")
		return
	}

	runs, err := s.runs.GetRunsByDate(r.Context(), date)
	if err != nil {
		s.log.Error(err, "get_runs_by_date")
		writeProblem(w, http.StatusInternalServerError, "internal_error", "could not list runs")
		return
	}
	if len(runs) == 0 {
		writeProblem(w, http.StatusNotFound, "not_found", "no runs found for that date")
		return
	}

	views := make([]any, 0, len(runs))
	jqExpr := r.URL.Query().Get("jq")
	for _, run := range runs {
		view := toRunView(run)
		if jqExpr == "" {
			views = append(views, view)
			continue
		}
		projected, err := projectMetrics(jqExpr, run.Metrics)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "invalid_jq_expression", err.Error())
			return
		}
		views = append(views, map[string]any{"run": view, "jq": projected})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "run_id")
	run, err := s.runs.GetByID(r.Context(), runID)
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeNotFound {
			writeProblem(w, http.StatusNotFound, "not_found", "no such run")
			return
		}
		s.log.Error(err, "get_run_by_id")
		writeProblem(w, http.StatusInternalServerError, "internal_error", "could not fetch run")
		return
	}
	writeJSON(w, http.StatusOK, toRunView(*run))
}
