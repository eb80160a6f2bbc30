// Package api serves kinase scoring and enrichment over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"kinlib/adapters/stats/scoring"
	"kinlib/app"
	"kinlib/internal"
	"kinlib/internal/errors"
)

// maxBodyBytes bounds a request body
const maxBodyBytes = 32 << 20

// Server routes API requests to the scan and enrichment services
type Server struct {
	router     *chi.Mux
	engine     *scoring.Engine
	scan       *app.ScanService
	enrichment *app.EnrichmentService
	logger     *internal.Logger
}

// NewServer creates the API server and registers its routes
func NewServer(engine *scoring.Engine, scan *app.ScanService, enrichment *app.EnrichmentService) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		engine:     engine,
		scan:       scan,
		enrichment: enrichment,
		logger:     internal.DefaultLogger.Component("API"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(5 * time.Minute))
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/kinases/{type}", s.handleKinases)

		// Per-site measures
		r.Post("/score", s.handleScore)
		r.Post("/percentile", s.handlePercentile)
		r.Post("/rank", s.handleRank)
		r.Post("/predict", s.handlePredict)
		r.Post("/scan", s.handleScan)
		r.Post("/background-rank", s.handleBackgroundRank)

		// Enrichment
		r.Post("/enrichment/two-group", s.handleTwoGroup)
		r.Post("/enrichment/mea", s.handleMEA)
		r.Post("/enrichment/differential", s.handleDifferential)
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.InvalidInput("invalid request body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed: %v", err)
	} else {
		s.logger.Debug("request rejected: %v", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: errors.GetCode(err)})
}
