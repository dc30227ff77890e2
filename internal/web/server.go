// Package web provides the HTTP API for table listing, export and validation.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/recipeflow/internal/config"
	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/pipeline"
	"github.com/JonMunkholm/recipeflow/internal/quality"
	webmw "github.com/JonMunkholm/recipeflow/internal/web/middleware"
)

// Backend is the part of pipeline.Service the API serves.
type Backend interface {
	ListTables() []pipeline.TableStatus
	Table(key string) (*core.Table, error)
	Validate(ctx context.Context) (pipeline.ValidateResult, error)
	LatestValidation() (pipeline.ValidateResult, bool)
	Plan() quality.Plan
}

// Server is the HTTP server for recipeflow.
type Server struct {
	backend Backend
	cfg     config.ServerConfig
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(backend Backend, cfg config.ServerConfig, sec config.SecurityConfig) *Server {
	s := &Server{
		backend: backend,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware(sec)
	s.setupRoutes(sec)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(sec config.SecurityConfig) {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(sec.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(timeout))
	s.router.Use(securityHeaders)

	// 100 requests per minute per IP
	s.limiter = newRateLimiter(100, time.Minute)
	s.router.Use(s.limiter.middleware)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(sec config.SecurityConfig) {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{tableKey}/export", s.handleExportTable)
		r.Get("/rules", s.handleRules)
		r.Get("/reports/latest", s.handleLatestReport)

		r.With(webmw.APIKeyAuth(&sec)).Post("/validate", s.handleValidate)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	rl.wg.Add(1)
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute until stop is called.
func (rl *rateLimiter) cleanup() {
	defer rl.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
		}
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if rl.now().Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// stop ends the cleanup goroutine and waits for it to exit. Safe to call
// more than once.
func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() {
		if rl.done != nil {
			close(rl.done)
		}
	})
	rl.wg.Wait()
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists || now.Sub(v.lastReset) > rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}

	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// middleware rate limits by client IP. TrustedRealIP has already rewritten
// RemoteAddr for requests from trusted proxies.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response without going through MapError.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Message: message})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
