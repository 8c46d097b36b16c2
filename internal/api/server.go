// Package api provides the HTTP API server and handlers for the racing notes
// application.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/racingnotes/racingnotes-server/internal/sse"
	"github.com/racingnotes/racingnotes-server/internal/store"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store    store.Store
	services *Services
	infra    *Infra
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, infra *Infra, opts Options, logger *slog.Logger) *Server {
	if infra == nil {
		infra = &Infra{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		store:    st,
		services: services,
		infra:    infra,
		opts:     opts,
		router:   chi.NewRouter(),
		logger:   logger,
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("Racing Notes API", opts.Version)
	humaConfig.Info.Description = "Notes, media and reference data for following NASCAR sessions."
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API exposes the huma API, mainly for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)

	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerReferenceRoutes()
	s.registerNoteRoutes()
	s.registerMediaRoutes()
	s.registerSearchRoutes()
	s.registerTagRoutes()
	s.registerEngagementRoutes()
	s.registerPreferencesRoutes()
	s.registerShareRoutes()
	s.registerAdminRoutes()

	// Multipart uploads bypass huma so files stream to temp storage
	// instead of being buffered by the body parser.
	s.router.Group(func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.infra.UploadLimiter, s.logger))
		r.Post("/api/v1/notes/upload", s.handleUploadNote)
		r.Post("/api/v1/notes/{id}/media", s.handleAttachMedia)
	})

	if s.infra.Metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.infra.Metrics.Handler(s.logger))
	}
	if s.infra.Local != nil {
		s.router.Get("/media/*", s.handleServeMedia)
	}
	if s.infra.Events != nil {
		s.router.Method(http.MethodGet, "/api/v1/events", sse.NewHandler(s.infra.Events, s.logger))
	}
}
