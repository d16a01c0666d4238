package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/flowengine"
	"github.com/aretw0/flowengine/internal/logging"
	"github.com/aretw0/flowengine/internal/presentation/graph"
	"github.com/aretw0/flowengine/internal/validator"
	"github.com/aretw0/flowengine/pkg/domain"
	"github.com/aretw0/flowengine/pkg/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds request bodies (graph definitions and initial states).
const maxBodyBytes = 4 << 20

// Server serves the graph service over JSON.
type Server struct {
	svc     *service.Service
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger used for request and error logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsHandler replaces the /metrics handler (defaults to the global Prometheus registry).
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metrics = h
		}
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(svc *service.Service, opts ...Option) http.Handler {
	s := &Server{
		svc:     svc,
		logger:  logging.NewNop(),
		metrics: promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", s.GetRoot)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Get("/graphs", s.ListGraphs)
	r.Post("/graph/create", s.CreateGraph)
	r.Post("/graph/run", s.RunGraph)
	r.Get("/graph/state/{run_id}", s.GetRunState)
	r.Get("/graph/{graph_id}", s.GetGraph)
	r.Get("/graph/{graph_id}/mermaid", s.GetMermaid)
	r.Get("/graph/{graph_id}/runs", s.ListRuns)
	r.Post("/workflows/code-review/create", s.CreateCodeReview)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}

type createGraphRequest struct {
	Name string `json:"name"`
	domain.Definition
}

type createGraphResponse struct {
	GraphID  string            `json:"graph_id"`
	Message  string            `json:"message"`
	Info     string            `json:"info,omitempty"`
	Warnings []validator.Issue `json:"warnings,omitempty"`
}

type runGraphRequest struct {
	GraphID       string       `json:"graph_id"`
	InitialState  domain.State `json:"initial_state"`
	MaxIterations int          `json:"max_iterations"`
}

type runGraphResponse struct {
	RunID        string            `json:"run_id"`
	FinalState   domain.State      `json:"final_state"`
	ExecutionLog []domain.LogEntry `json:"execution_log"`
}

type errorResponse struct {
	Detail string            `json:"detail"`
	Issues []validator.Issue `json:"issues,omitempty"`
}

// endpoints is the index served at /.
var endpoints = map[string]string{
	"POST /graph/create":                 "Create a custom workflow",
	"POST /graph/run":                    "Execute a workflow",
	"GET /graph/state/{run_id}":          "Get run state",
	"GET /graphs":                        "List all graphs",
	"GET /graph/{graph_id}":              "Get a graph",
	"GET /graph/{graph_id}/mermaid":      "Render a graph as Mermaid",
	"GET /graph/{graph_id}/runs":         "List the runs of a graph",
	"POST /workflows/code-review/create": "Create code review workflow",
}

// GetRoot lists the available endpoints.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "Flow Engine API", "endpoints": endpoints})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	} else if err != nil {
		s.logger.Error("Failed to load OpenAPI spec", "error", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "flowengine-http",
		"version":     strings.TrimSpace(flowengine.Version),
		"api_version": apiVersion,
	})
}

// CreateGraph handles the POST /graph/create request.
func (s *Server) CreateGraph(w http.ResponseWriter, r *http.Request) {
	var body createGraphRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.Nodes == nil || body.Edges == nil {
		s.writeError(w, http.StatusUnprocessableEntity, "nodes and edges are required")
		return
	}

	strict, _ := strconv.ParseBool(r.URL.Query().Get("strict"))
	g, issues, err := s.svc.CreateGraph(r.Context(), body.Name, body.Definition, strict)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, createGraphResponse{
		GraphID:  g.ID,
		Message:  "Graph created successfully",
		Warnings: issues,
	})
}

// RunGraph handles the POST /graph/run request.
func (s *Server) RunGraph(w http.ResponseWriter, r *http.Request) {
	var body runGraphRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.GraphID == "" {
		s.writeError(w, http.StatusUnprocessableEntity, "graph_id is required")
		return
	}
	if body.MaxIterations < 0 {
		s.writeError(w, http.StatusUnprocessableEntity, "max_iterations must be positive")
		return
	}

	run, err := s.svc.RunGraph(r.Context(), body.GraphID, body.InitialState, body.MaxIterations)
	if err != nil {
		s.handleError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, runGraphResponse{
		RunID:        run.ID,
		FinalState:   run.FinalState,
		ExecutionLog: run.Log,
	})
}

// GetRunState handles the GET /graph/state/{run_id} request.
func (s *Server) GetRunState(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// ListGraphs handles the GET /graphs request.
func (s *Server) ListGraphs(w http.ResponseWriter, r *http.Request) {
	graphs, err := s.svc.ListGraphs(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"graphs": graphs})
}

// GetGraph handles the GET /graph/{graph_id} request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

// GetMermaid handles the GET /graph/{graph_id}/mermaid request.
func (s *Server) GetMermaid(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.GetGraph(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.handleError(w, err)
		return
	}

	var overlay *graph.GraphOverlay
	if runID := r.URL.Query().Get("run_id"); runID != "" {
		run, err := s.svc.GetRun(r.Context(), runID)
		if err != nil {
			s.handleError(w, err)
			return
		}
		overlay = graph.OverlayFromLog(run.Log)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(&g.Definition, overlay))
}

// ListRuns handles the GET /graph/{graph_id}/runs request.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.svc.ListRuns(r.Context(), chi.URLParam(r, "graph_id"))
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// CreateCodeReview handles the POST /workflows/code-review/create request.
func (s *Server) CreateCodeReview(w http.ResponseWriter, r *http.Request) {
	g, err := s.svc.CreateCodeReviewGraph(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, createGraphResponse{
		GraphID: g.ID,
		Message: "Code review workflow created",
		Info:    "Use POST /graph/run with initial_state containing 'code' field",
	})
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	var verr *validator.Error
	switch {
	case errors.Is(err, domain.ErrGraphNotFound):
		s.writeError(w, http.StatusNotFound, "Graph not found")
	case errors.Is(err, domain.ErrRunNotFound):
		s.writeError(w, http.StatusNotFound, "Run not found")
	case errors.As(err, &verr):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "Invalid graph", Issues: verr.Issues})
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidGraph):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorResponse{Detail: detail})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}
