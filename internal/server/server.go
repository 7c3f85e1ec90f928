// Package server implements the hassflow HTTP API.
//
// The API exposes the transpilation pipeline over three endpoints:
//
//	POST /api/parse      automation YAML → graph JSON
//	POST /api/transpile  graph JSON → automation YAML
//	POST /api/render     graph JSON → DOT or SVG preview
//
// plus /healthz and /version for operational probes. Responses use a
// JSON envelope with success, warnings, and error fields so clients can
// surface partial diagnostics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/FezVrasta/hassflow/pkg/buildinfo"
	hferrors "github.com/FezVrasta/hassflow/pkg/errors"
	"github.com/FezVrasta/hassflow/pkg/graph"
	"github.com/FezVrasta/hassflow/pkg/observability"
	"github.com/FezVrasta/hassflow/pkg/pipeline"
)

// maxBodySize caps request bodies at 2 MiB. Automation documents and
// graphs are small; anything larger is abuse.
const maxBodySize = 2 << 20

// Server serves the hassflow HTTP API.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
}

// New creates a server backed by the given pipeline runner.
// A nil logger defaults to the runner's logger.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = runner.Logger
	}
	return &Server{runner: runner, logger: logger}
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Post("/parse", s.handleParse)
		r.Post("/transpile", s.handleTranspile)
		r.Post("/render", s.handleRender)
	})

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// observe reports request outcomes to the logger and hooks.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		observability.Server().OnRequest(r.Method, r.URL.Path, ww.Status(), elapsed)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
		"built":   buildinfo.Date,
	})
}

// parseResponse is the envelope for POST /api/parse.
type parseResponse struct {
	Success  bool         `json:"success"`
	Graph    *graph.Graph `json:"graph,omitempty"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

// handleParse converts an automation document into a graph.
// The request body is the raw YAML document.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	source, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil || len(source) == 0 {
		writeError(w, hferrors.New(hferrors.ErrCodeInvalidInput, "request body must contain an automation document"))
		return
	}

	g, warnings, err := s.runner.Parse(r.Context(), source, optionsFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, parseResponse{
		Success:  true,
		Graph:    g,
		Warnings: warnings,
	})
}

// transpileRequest is the body for POST /api/transpile and /api/render.
type transpileRequest struct {
	Graph    *graph.Graph `json:"graph"`
	Strategy string       `json:"strategy,omitempty"`
	Format   string       `json:"format,omitempty"`
}

// transpileResponse is the envelope for POST /api/transpile.
type transpileResponse struct {
	Success  bool     `json:"success"`
	Strategy string   `json:"strategy,omitempty"`
	YAML     string   `json:"yaml,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

// handleTranspile generates an automation document from a graph.
func (s *Server) handleTranspile(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGraphRequest(w, r)
	if !ok {
		return
	}

	opts := optionsFromQuery(r)
	opts.Strategy = req.Strategy

	_, data, strategy, warnings, _, err := s.runner.TranspileWithCacheInfo(r.Context(), req.Graph, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transpileResponse{
		Success:  true,
		Strategy: strategy,
		YAML:     string(data),
		Warnings: warnings,
	})
}

// handleRender produces a visual preview of a graph. The response body
// is the raw artifact; the content type follows the format.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGraphRequest(w, r)
	if !ok {
		return
	}

	format := req.Format
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, hferrors.Wrap(hferrors.ErrCodeInvalidFormat, err, "unsupported preview format"))
		return
	}

	opts := optionsFromQuery(r)
	opts.Formats = []string{format}

	artifacts, err := s.runner.Render(r.Context(), req.Graph, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	switch format {
	case pipeline.FormatSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
	default:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// decodeGraphRequest reads and validates a graph-carrying request body.
func decodeGraphRequest(w http.ResponseWriter, r *http.Request) (transpileRequest, bool) {
	var req transpileRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		writeError(w, hferrors.Wrap(hferrors.ErrCodeInvalidInput, err, "request body must be valid JSON"))
		return req, false
	}
	if req.Graph == nil {
		writeError(w, hferrors.New(hferrors.ErrCodeInvalidInput, "request must include a graph"))
		return req, false
	}
	return req, true
}

// optionsFromQuery reads pipeline limits from query parameters.
func optionsFromQuery(r *http.Request) pipeline.Options {
	opts := pipeline.Options{
		Refresh: r.URL.Query().Get("refresh") == "true",
	}
	readIntParam(r, "max_nodes", &opts.MaxNodes)
	readIntParam(r, "max_depth", &opts.MaxDepth)
	readIntParam(r, "explosion_factor", &opts.ExplosionFactor)
	readIntParam(r, "iteration_ceiling", &opts.IterationCeiling)
	return opts
}

func readIntParam(r *http.Request, name string, dst *int) {
	if raw := r.URL.Query().Get(name); raw != "" {
		var v int
		if _, err := fmt.Sscanf(raw, "%d", &v); err == nil && v > 0 {
			*dst = v
		}
	}
}

// errorResponse is the envelope for failed requests.
type errorResponse struct {
	Success bool     `json:"success"`
	Code    string   `json:"code,omitempty"`
	Errors  []string `json:"errors"`
}

// statusForCode maps transpiler error codes onto HTTP statuses.
func statusForCode(code hferrors.Code) int {
	switch code {
	case hferrors.ErrCodeInvalidInput, hferrors.ErrCodeInvalidStrategy, hferrors.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case hferrors.ErrCodeStructural, hferrors.ErrCodeValidation,
		hferrors.ErrCodeStrategyConflict, hferrors.ErrCodeOutputSize:
		return http.StatusUnprocessableEntity
	case hferrors.ErrCodeNotFound, hferrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := hferrors.GetCode(err)
	writeJSON(w, statusForCode(code), errorResponse{
		Code:   string(code),
		Errors: []string{hferrors.UserMessage(err)},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
