// Package server exposes the affordability pipeline as a JSON HTTP API.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/affordability-cli/internal/cache"
	"github.com/sells-group/affordability-cli/internal/enrich"
)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigins []string
	// ColorPolicy and ClipMax select the map color policy per request; the
	// threshold split depends on the requested income.
	ColorPolicy string
	ClipMax     float64
}

// Server serves aggregates from a cached pipeline.
type Server struct {
	pipeline *cache.Pipeline
	enricher *enrich.Enricher
	opts     Options
	router   chi.Router
}

// New creates a Server and builds its routes.
func New(p *cache.Pipeline, e *enrich.Enricher, opts Options) *Server {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	s := &Server{pipeline: p, enricher: e, opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/years", s.handleYears)
		r.Get("/tiers", s.handleTiers)
		r.Get("/summary", s.handleSummary)
		r.Get("/cities", s.handleCities)
		r.Get("/cities/{city}/history", s.handleHistory)
		r.Get("/cities/{city}/zips", s.handleZips)
		r.Post("/reload", s.handleReload)
	})
	return r
}
