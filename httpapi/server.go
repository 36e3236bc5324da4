// Package httpapi exposes the distribution pipeline over HTTP: period
// triggers, stored commitments, and user proofs with claim status.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/regenmarkets/libvebribe-go/bribes"
	"github.com/regenmarkets/libvebribe-go/chain"
	"github.com/regenmarkets/libvebribe-go/config"
	"github.com/regenmarkets/libvebribe-go/distributor"
	"github.com/regenmarkets/libvebribe-go/merkle"
	"github.com/regenmarkets/libvebribe-go/metrics"
	"github.com/regenmarkets/libvebribe-go/votes"
)

// Server is the HTTP surface over a Distributor.
type Server struct {
	router *chi.Mux
	dist   *distributor.Distributor
	log    *slog.Logger
	srv    *http.Server
}

// NewServer creates the HTTP server listening on addr.
func NewServer(addr string, dist *distributor.Distributor, log *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		dist:   dist,
		log:    log,
	}
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // period processing runs inline
	}
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router.Get("/{network}/process-bribes", s.handleProcess)
	s.router.Get("/{network}/process-bribes/{deadline}", s.handleProcessAt)
	s.router.Get("/{network}/merkle-trees/{deadline}", s.handleCommitments)
	s.router.Get("/{network}/proofs/{user}", s.handleProofs)
}

// Handler returns the underlying router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe runs the server until the context is canceled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.srv.ListenAndServe()
	}()
	s.log.Info("http server listening", "addr", s.srv.Addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	result, err := s.dist.ProcessPeriod(r.Context(), network)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProcessAt(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	deadline, err := strconv.ParseInt(chi.URLParam(r, "deadline"), 10, 64)
	if err != nil {
		s.writeErrorBody(w, http.StatusBadRequest, categoryInvalidRequest, "deadline must be an integer timestamp")
		return
	}
	result, err := s.dist.ProcessPeriodAt(r.Context(), network, deadline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommitments(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	deadline, err := strconv.ParseInt(chi.URLParam(r, "deadline"), 10, 64)
	if err != nil {
		s.writeErrorBody(w, http.StatusBadRequest, categoryInvalidRequest, "deadline must be an integer timestamp")
		return
	}
	commitments, err := s.dist.Commitments(r.Context(), network, deadline)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, commitments)
}

func (s *Server) handleProofs(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	user := chi.URLParam(r, "user")
	status, err := s.dist.UserClaimStatus(r.Context(), network, user)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// Machine-readable error categories.
const (
	categoryInvalidRequest = "invalid_request"
	categoryNotFound       = "not_found"
	categoryUpstreamError  = "upstream_error"
)

type errorBody struct {
	Error struct {
		Category string `json:"category"`
		Message  string `json:"message"`
	} `json:"error"`
}

// writeError maps pipeline errors onto the error taxonomy: validation
// errors are client errors, missing data is 404, everything else is an
// upstream failure safe to retry.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, config.ErrUnknownNetwork),
		errors.Is(err, config.ErrNoSubgraph),
		errors.Is(err, distributor.ErrInvalidDuration),
		errors.Is(err, distributor.ErrFutureStartTime),
		errors.Is(err, merkle.ErrInvalidAddress):
		s.writeErrorBody(w, http.StatusBadRequest, categoryInvalidRequest, err.Error())
	case errors.Is(err, distributor.ErrNoCommitment):
		s.writeErrorBody(w, http.StatusNotFound, categoryNotFound, err.Error())
	case errors.Is(err, votes.ErrSubgraphUnavailable),
		errors.Is(err, votes.ErrInvalidResponse),
		errors.Is(err, bribes.ErrFetchFailed),
		errors.Is(err, chain.ErrConnectionFailed),
		errors.Is(err, chain.ErrInvalidResponse),
		errors.Is(err, chain.ErrSubmitFailed):
		s.log.Error("upstream failure", "path", r.URL.Path, "err", err)
		s.writeErrorBody(w, http.StatusBadGateway, categoryUpstreamError, err.Error())
	default:
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
		s.writeErrorBody(w, http.StatusInternalServerError, categoryUpstreamError, err.Error())
	}
}

func (s *Server) writeErrorBody(w http.ResponseWriter, status int, category, message string) {
	var body errorBody
	body.Error.Category = category
	body.Error.Message = message
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "err", err)
	}
}
