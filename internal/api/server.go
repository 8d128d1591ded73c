package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"qaebench/adapters/stats/aggregate"
	"qaebench/app"
	"qaebench/domain/core"
	"qaebench/domain/curve"
	"qaebench/domain/estimation"
	"qaebench/internal"
	"qaebench/internal/config"
	"qaebench/internal/errors"
	"qaebench/ports"
)

// defaultRunLimit caps run listings when no limit is given.
const defaultRunLimit = 50

// Server exposes stored curves and runs over HTTP for plotting.
type Server struct {
	router     *chi.Mux
	store      ports.RegistryStore
	curvesPath string
	runs       ports.ResultsRepository
	processing *app.ProcessingService
	defaults   aggregate.Options
	logger     *internal.Logger
}

// NewServer wires the routes. An empty or missing curves file serves an
// empty registry.
func NewServer(store ports.RegistryStore, curvesPath string, runs ports.ResultsRepository,
	processing *app.ProcessingService, defaults aggregate.Options, logger *internal.Logger) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		store:      store,
		curvesPath: curvesPath,
		runs:       runs,
		processing: processing,
		defaults:   defaults,
		logger:     logger,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/api/curves", s.handleListCurves)
	s.router.Get("/api/curves/{label}", s.handleGetCurve)
	s.router.Get("/api/runs", s.handleListRuns)
	s.router.Get("/api/runs/{id}/curve", s.handleRunCurve)

	s.router.Get("/runs/{id}/report", s.handleRunReport)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registry(ctx context.Context) (estimation.Registry, error) {
	if s.curvesPath == "" {
		return estimation.NewRegistry(), nil
	}
	reg, err := s.store.Load(ctx, s.curvesPath)
	if stderrors.Is(err, fs.ErrNotExist) {
		return estimation.NewRegistry(), nil
	}
	return reg, err
}

func (s *Server) handleListCurves(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"labels": reg.Labels(),
		"curves": reg.Curves(),
	})
}

func (s *Server) handleGetCurve(w http.ResponseWriter, r *http.Request) {
	reg, err := s.registry(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := reg.Curve(chi.URLParam(r, "label"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), r.URL.Query().Get("label"), limit)
	if err != nil {
		s.writeError(w, errors.DatabaseError(err, "failed to list runs"))
		return
	}
	if runs == nil {
		runs = []ports.RunSummary{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// runCurveResponse is an aggregated run curve with its diagnostics.
type runCurveResponse struct {
	Curve    estimation.Curve `json:"curve"`
	Strategy curve.Strategy   `json:"strategy"`
	Edges    []float64        `json:"edges"`
	Dropped  aggregate.Drops  `json:"dropped"`
}

func (s *Server) handleRunCurve(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, errors.InvalidInput(err.Error()))
		return
	}
	opts, err := s.optionsFromQuery(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	results, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.writeError(w, errors.DatabaseError(err, "failed to load run "+id.String()))
		return
	}
	c, res, err := s.processing.AggregateRun(results, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runCurveResponse{
		Curve:    c,
		Strategy: res.Strategy,
		Edges:    res.Edges,
		Dropped:  res.Dropped,
	})
}

// optionsFromQuery overlays strategy, stat, nbins, ypower, scale, logdomain
// and fixed_point query parameters on the configured defaults.
func (s *Server) optionsFromQuery(r *http.Request) (aggregate.Options, error) {
	q := r.URL.Query()
	opts := s.defaults

	switch {
	case q.Get("strategy") != "":
		strategy, err := curve.ParseStrategy(q.Get("strategy"))
		if err != nil {
			return opts, err
		}
		opts.Strategy = strategy
	case q.Get("stat") != "":
		strategy, err := aggregate.YStrategyFor(q.Get("stat"))
		if err != nil {
			return opts, err
		}
		opts.Strategy = strategy
	}

	if raw := q.Get("nbins"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return opts, core.NewConfigurationError("nbins", "must be an integer")
		}
		opts.NBins = n
	}
	if raw := q.Get("ypower"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return opts, core.NewConfigurationError("ypower", "must be a number")
		}
		opts.YPower = p
	}
	if raw := q.Get("scale"); raw != "" {
		scale, err := curve.ParseScale(raw)
		if err != nil {
			return opts, err
		}
		opts.Scale = scale
	}
	if raw := q.Get("logdomain"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, core.NewConfigurationError("logdomain", "must be a boolean")
		}
		opts.LogDomain = v
	}
	if raw := strings.TrimSpace(q.Get("fixed_point")); raw != "" {
		fp, err := config.ParseFixedPoint(raw)
		if err != nil {
			return opts, err
		}
		opts.FixedPoint = fp
	}
	return opts, nil
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	results, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		err = errors.DatabaseError(err, "failed to load run "+id.String())
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}
	report, err := app.BuildReport(results)
	if err != nil {
		http.Error(w, err.Error(), errors.HTTPStatus(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report.HTML()); err != nil {
		s.logger.Warn("writing report for run %s: %v", id, err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	}
	s.writeJSON(w, status, map[string]string{
		"error": appErr.Error(),
		"code":  errors.GetCode(appErr),
	})
}
