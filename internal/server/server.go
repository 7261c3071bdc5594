// Package server exposes interview sessions over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/khushi491/interview-buddy-sub000/internal/config"
	"github.com/khushi491/interview-buddy-sub000/internal/session"
)

// Server owns the router and the http.Server built around it.
type Server struct {
	manager  *session.Manager
	flows    []string
	metrics  http.Handler
	limiter  *ipLimiter
	logger   *slog.Logger
	router   chi.Router
	http     *http.Server
	shutdown time.Duration
}

// New builds the router. metrics may be nil.
func New(cfg config.ServerConfig, manager *session.Manager, flows []string, metrics http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		manager:  manager,
		flows:    flows,
		metrics:  metrics,
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:   logger,
		shutdown: cfg.ShutdownTimeout,
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.middleware)

		r.Get("/flows", s.listFlows)
		r.Post("/interviews", s.startInterview)
		r.Route("/interviews/{id}", func(r chi.Router) {
			r.Get("/", s.getInterview)
			r.Post("/messages", s.postMessage)
			r.Put("/transcript", s.putTranscript)
			r.Post("/continue", s.continueInterview)
			r.Post("/finish", s.finishInterview)
			r.Post("/analysis", s.analyze)
			r.Get("/analysis", s.getAnalysis)
			r.Get("/record", s.getRecord)
		})
	})
	return r
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests up to the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdown > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdown)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chiMiddleware.GetReqID(r.Context()),
			)
		})
	}
}
