// Package server exposes the layout pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz          build info and liveness
//	POST /v1/layout        plan document → pipeline result
//	POST /v1/check         plan document → per-scene overflow grades
//	POST /v1/transition    two key sets plus continuity → transition plan
//	GET  /v1/runs          recorded runs, newest first (?limit=N)
//	GET  /v1/runs/{id}     one recorded result
//
// Plan bodies may be JSON or YAML; the format is sniffed. An X-Client-ID
// header scopes cached layouts to that client. Errors are JSON
// objects with "error" and "code" fields, and coded errors from the library
// map onto HTTP status codes.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/sceneguard/pkg/buildinfo"
	"github.com/matzehuels/sceneguard/pkg/cache"
	"github.com/matzehuels/sceneguard/pkg/element"
	"github.com/matzehuels/sceneguard/pkg/errors"
	"github.com/matzehuels/sceneguard/pkg/frame"
	"github.com/matzehuels/sceneguard/pkg/observability"
	"github.com/matzehuels/sceneguard/pkg/pipeline"
	"github.com/matzehuels/sceneguard/pkg/plan"
	"github.com/matzehuels/sceneguard/pkg/reflow"
)

const (
	// DefaultAddr is the listen address used when Config.Addr is empty.
	DefaultAddr = "127.0.0.1:8750"

	// DefaultMaxBody caps request bodies.
	DefaultMaxBody = 4 << 20

	shutdownTimeout = 5 * time.Second

	clientHeader = "X-Client-ID"
)

// Config configures a Server.
type Config struct {
	Addr string

	// Token, when set, is required as "Authorization: Bearer <token>".
	Token string

	MaxBody int64
}

// Server serves the HTTP API.
type Server struct {
	runner *pipeline.Runner
	opts   pipeline.Options
	cfg    Config
	logger *log.Logger
	router chi.Router
}

// New builds a server around runner. opts are the pipeline options applied
// to every layout request.
func New(runner *pipeline.Runner, opts pipeline.Options, cfg Config, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{runner: runner, opts: opts, cfg: cfg, logger: logger.With("component", "server")}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.auth)
		r.Post("/layout", s.handleLayout)
		r.Post("/check", s.handleCheck)
		r.Post("/transition", s.handleTransition)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{id}", s.handleRun)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("stopped")
	return nil
}

// =============================================================================
// Middleware
// =============================================================================

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		s.logger.Debug("request", "method", r.Method, "route", route, "status", status,
			"duration", time.Since(start), "request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) auth(next http.Handler) http.Handler {
	if s.cfg.Token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token != s.cfg.Token {
			s.writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Get()})
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readPlan(w, r)
	if !ok {
		return
	}
	runner, err := s.scopedRunner(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts := s.opts
	opts.Refresh = r.URL.Query().Get("refresh") == "true"

	res, err := runner.Execute(r.Context(), p, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cacheState := "miss"
	if res.CacheInfo.LayoutHit {
		cacheState = "hit"
	}
	w.Header().Set("X-Cache", cacheState)
	if res.RunID != "" {
		w.Header().Set("X-Run-ID", res.RunID)
	}
	s.writeJSON(w, http.StatusOK, res)
}

// scopedRunner isolates cached layouts per X-Client-ID so that clients
// sharing a Redis backend never read each other's entries.
func (s *Server) scopedRunner(r *http.Request) (*pipeline.Runner, error) {
	client := r.Header.Get(clientHeader)
	if client == "" {
		return s.runner, nil
	}
	if err := errors.ValidateKey(client); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid %s", clientHeader)
	}
	scoped := *s.runner
	scoped.Keyer = cache.NewScopedKeyer(s.runner.Keyer, "client:"+client+":")
	return &scoped, nil
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	p, ok := s.readPlan(w, r)
	if !ok {
		return
	}
	res, err := pipeline.Check(r.Context(), p, s.opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, struct {
		*pipeline.CheckResult
		Clean bool `json:"clean"`
	}{res, res.Clean()})
}

// TransitionRequest is the body of POST /v1/transition.
type TransitionRequest struct {
	From         string              `json:"from_scene"`
	To           string              `json:"to_scene"`
	FromElements []string            `json:"from_elements"`
	ToElements   []string            `json:"to_elements"`
	Continuity   []reflow.Continuity `json:"continuity,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode transition request"))
		return
	}
	if req.From == "" || req.To == "" {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "from_scene and to_scene are required"))
		return
	}

	mgr := reflow.NewManager(frame.Default(), s.opts.Reflow)
	for _, c := range req.Continuity {
		if err := mgr.RegisterContinuity(c); err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, mgr.PlanSceneTransition(req.From, req.To, stubs(req.FromElements), stubs(req.ToElements)))
}

// stubs wraps keys as elements; transition planning only reads keys.
func stubs(keys []string) []*element.PositionedElement {
	out := make([]*element.PositionedElement, len(keys))
	for i, k := range keys {
		out[i] = &element.PositionedElement{Key: k}
	}
	return out
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "run history is disabled"))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.runner.Store.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.writeError(w, errors.New(errors.ErrCodeUnsupported, "run history is disabled"))
		return
	}
	res, err := s.runner.LoadRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// Encoding
// =============================================================================

func (s *Server) readPlan(w http.ResponseWriter, r *http.Request) (*plan.Plan, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBody))
	if err != nil {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
		return nil, false
	}
	p, err := plan.Parse(data)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	if p.Name == "" {
		p.Name = "request"
	}
	return p, true
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: code})
}

func statusFor(err error) int {
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrCodeUnsupported):
		return http.StatusNotImplemented
	case errors.IsInvalid(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}
