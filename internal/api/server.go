// Package api provides the HTTP front-end of the feed server.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pixivrss/pixivrss-server/internal/errors"
	"github.com/pixivrss/pixivrss-server/internal/http/response"
	"github.com/pixivrss/pixivrss-server/internal/service"
)

// FeedBuilder renders the RSS document for a pixiv user.
type FeedBuilder interface {
	Build(ctx context.Context, req service.FeedRequest) ([]byte, error)
}

// Options configures the HTTP front-end.
type Options struct {
	Version            string
	CORSAllowedOrigins []string
	RateLimitRPM       int // 0 disables inbound rate limiting
	RateLimitBurst     int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	feeds   FeedBuilder
	router  *chi.Mux
	api     huma.API
	limiter *RateLimiter
	opts    Options
	logger  *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(feeds FeedBuilder, opts Options, logger *slog.Logger) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		feeds:  feeds,
		router: chi.NewRouter(),
		opts:   opts,
		logger: logger,
	}
	if opts.RateLimitRPM > 0 {
		s.limiter = NewRateLimiter(opts.RateLimitRPM, time.Minute, opts.RateLimitBurst)
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("pixiv RSS API", opts.Version)
	humaConfig.Info.Description = "Serves pixiv user profiles as RSS 2.0 feeds."
	s.api = humachi.New(s.router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops background work owned by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
		AllowedHeaders: []string{"Accept", "Accept-Language"},
		MaxAge:         300,
	}))
	s.router.Use(methodGate(s.logger))
	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerFeedRoutes()

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.HandleError(w, errors.NotFoundf("no route for %s", r.URL.Path), s.logger)
	})
}
