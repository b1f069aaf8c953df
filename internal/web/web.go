// Package web exposes the stored events over a small read-only HTTP API, plus
// an endpoint that triggers a re-import of every configured source.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/eviefp/hcs/internal/config"
	"github.com/eviefp/hcs/internal/display"
	appLog "github.com/eviefp/hcs/internal/log"
	"github.com/eviefp/hcs/internal/metrics"
	"github.com/eviefp/hcs/internal/model"
	"github.com/eviefp/hcs/internal/window"
)

const (
	shutdownTimeout = 5 * time.Second

	// Window queries are cached briefly; a refresh purges the cache.
	eventsCacheTTL  = 30 * time.Second
	eventsCacheSize = 8

	refreshInterval = 10 * time.Second
)

// Refresher re-imports every configured source.
type Refresher interface {
	ImportAll(ctx context.Context, cfg *config.Config) (map[string]model.ReplaceResult, error)
}

// Server serves /health, /api/events, /api/next and /api/refresh, plus
// /metrics when a gatherer is configured.
type Server struct {
	cfg       *config.Config
	selector  *window.Selector
	formatter *display.Formatter
	refresher Refresher
	mux       *http.ServeMux

	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer

	eventsCache *expirable.LRU[string, eventsResponse]

	// One refresh at a time; concurrent requests get 409, requests faster
	// than refreshInterval get 429.
	refreshMu      sync.Mutex
	refreshLimiter *rate.Limiter
}

type Option func(*Server)

// WithMetrics records requests in m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// NewServer constructs a new Server. refresher may be nil, in which case
// /api/refresh is not registered.
func NewServer(cfg *config.Config, selector *window.Selector, formatter *display.Formatter, refresher Refresher, opts ...Option) *Server {
	s := &Server{
		cfg:            cfg,
		selector:       selector,
		formatter:      formatter,
		refresher:      refresher,
		mux:            http.NewServeMux(),
		eventsCache:    expirable.NewLRU[string, eventsResponse](eventsCacheSize, nil, eventsCacheTTL),
		refreshLimiter: rate.NewLimiter(rate.Every(refreshInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Serve.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe serves on cfg.Serve.Listen until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Serve.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Serve.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	a := s.cfg.Serve.BasicAuth
	return a != nil && a.Username != "" && a.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.Serve.BasicAuth.Username
	password := s.cfg.Serve.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="hcs", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.handle("GET /health", http.HandlerFunc(s.handleHealth))
	s.handle("GET /api/events", http.HandlerFunc(s.handleEvents))
	s.handle("GET /api/next", http.HandlerFunc(s.handleNext))
	if s.refresher != nil {
		s.handle("POST /api/refresh", http.HandlerFunc(s.handleRefresh))
	}
	if s.gatherer != nil {
		s.handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// handle registers h under pattern and counts its responses by pattern.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h.ServeHTTP(sw, r)
		s.metrics.ObserveRequest(pattern, sw.code)
	}))
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type eventsResponse struct {
	Window string        `json:"window"`
	Events []model.Event `json:"events"`
}

// GET /api/events?window=today|tomorrow (default today)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("window")
	if name == "" {
		name = "today"
	}

	if resp, ok := s.eventsCache.Get(name); ok {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var query func(context.Context) ([]model.Event, error)
	switch name {
	case "today":
		query = s.selector.Today
	case "tomorrow":
		query = s.selector.Tomorrow
	default:
		writeError(w, http.StatusBadRequest, "window must be today or tomorrow")
		return
	}

	events, err := query(r.Context())
	if err != nil {
		appLog.Error("api events: query failed", err, "window", name)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	resp := eventsResponse{Window: name, Events: events}
	s.eventsCache.Add(name, resp)
	writeJSON(w, http.StatusOK, resp)
}

// GET /api/next?xmobar=1 returns the same line the next command prints.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	compact := false
	if v := r.URL.Query().Get("xmobar"); v != "" {
		var err error
		if compact, err = strconv.ParseBool(v); err != nil {
			writeError(w, http.StatusBadRequest, "xmobar must be a boolean")
			return
		}
	}

	e, err := s.selector.Next(r.Context())
	if err != nil {
		appLog.Error("api next: query failed", err)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	line, err := s.formatter.Next(e, compact)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(line + "\n"))
}

type refreshResponse struct {
	Results map[string]model.ReplaceResult `json:"results"`
	Error   string                         `json:"error,omitempty"`
}

// POST /api/refresh re-imports every configured source.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refreshMu.TryLock() {
		writeError(w, http.StatusConflict, "refresh already running")
		return
	}
	defer s.refreshMu.Unlock()

	if !s.refreshLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "refresh requested too often")
		return
	}

	results, err := s.refresher.ImportAll(r.Context(), s.cfg)
	// Sources imported before a failure changed the store too.
	s.eventsCache.Purge()
	if err != nil {
		appLog.Error("api refresh failed", err, "imported", len(results))
		writeJSON(w, http.StatusBadGateway, refreshResponse{Results: results, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Results: results})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
