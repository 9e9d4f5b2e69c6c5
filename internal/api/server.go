// Package api exposes the memory engine over HTTP.
//
// The surface mirrors the client facade: embedding generation, memory
// writes and updates, hybrid search, and provider health/usage inspection.
package api

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyloop/recall/pkg/core"
)

// Server is the HTTP API server over a recall client.
type Server struct {
	client *core.Client
	router *chi.Mux
	logger *slog.Logger
}

// Config carries the HTTP-level server settings.
type Config struct {
	// AllowedOrigins is the CORS origin allowlist. Defaults to "*".
	AllowedOrigins []string

	// RequestTimeout bounds each API request. Defaults to 60s.
	RequestTimeout time.Duration
}

// NewServer creates the API server and its routes.
//
// Parameters:
//   - client: the engine facade the handlers delegate to
//   - registry: the Prometheus registry served at /metrics; nil disables
//     the endpoint
//   - cfg: HTTP-level settings
//   - logger: request-path logger; nil uses slog.Default
func NewServer(client *core.Client, registry *prometheus.Registry, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		client: client,
		logger: logger,
	}
	s.setupRouter(registry, cfg)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter(registry *prometheus.Registry, cfg Config) {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Post("/embeddings", s.handleEmbed)

		r.Post("/memories", s.handleWriteMemory)
		r.Get("/memories", s.handleListMemories)
		r.Get("/memories/{id}", s.handleGetMemory)
		r.Patch("/memories/{id}", s.handleUpdateMemory)
		r.Delete("/memories/{id}", s.handleDeleteMemory)

		r.Post("/search", s.handleSearch)

		r.Get("/providers/health", s.handleProviderHealth)
		r.Get("/providers/usage", s.handleProviderUsage)

		r.Post("/maintenance/purge", s.handlePurge)
	})

	s.router = r
}
