package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/rebalancer/internal/modules/allocation"
	"github.com/aristath/rebalancer/internal/modules/jobs"
	"github.com/aristath/rebalancer/internal/modules/portfolio"
	"github.com/aristath/rebalancer/internal/modules/rebalancing"
	"github.com/aristath/rebalancer/internal/prices"
)

// Handlers bundles the module handlers the router mounts.
type Handlers struct {
	Portfolio   *portfolio.Handler
	Allocation  *allocation.Handler
	Rebalancing *rebalancing.Handler
	Jobs        *jobs.Handler
	Prices      *prices.Handler
}

// Config holds server configuration
type Config struct {
	Port     int
	Log      zerolog.Logger
	Handlers Handlers
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	started time.Time
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		started: time.Now(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Handlers)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h Handlers) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.handleSystemStatus)
		})

		r.Route("/portfolios", func(r chi.Router) {
			r.Get("/", h.Portfolio.HandleList)
			r.Post("/", h.Portfolio.HandleCreate)
			r.Get("/{id}", h.Portfolio.HandleGet)
			r.Delete("/{id}", h.Portfolio.HandleDelete)
			r.Put("/{id}/positions", h.Portfolio.HandlePutPositions)
			r.Post("/{id}/import", h.Portfolio.HandleImportPositions)
			r.Get("/{id}/summary", h.Portfolio.HandleGetSummary)
		})

		r.Route("/targets", func(r chi.Router) {
			r.Get("/", h.Allocation.HandleGetTargets)
			r.Put("/", h.Allocation.HandlePutTargets)
			r.Post("/default", h.Allocation.HandleGenerateDefaults)
		})

		r.Route("/rebalance", func(r chi.Router) {
			r.Post("/", h.Rebalancing.HandleRebalance)
			r.Post("/async", h.Rebalancing.HandleRebalanceAsync)
		})

		r.Get("/jobs/{id}", h.Jobs.HandleGet)

		r.Route("/prices", func(r chi.Router) {
			r.Get("/", h.Prices.HandleGet)
			r.Post("/refresh", h.Prices.HandleRefresh)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
