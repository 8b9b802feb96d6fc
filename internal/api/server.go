// Package api serves the query contract over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/argnews/newsrag/internal/embedder"
	"github.com/argnews/newsrag/internal/searcher"
	"github.com/argnews/newsrag/internal/vectorstore"
	"github.com/argnews/newsrag/pkg/types"
)

// Searcher runs news queries.
type Searcher interface {
	Search(ctx context.Context, req searcher.Request) (*searcher.Response, error)
}

// Config contains HTTP server configuration
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration // per-request deadline, default 20s
	Logger         *zap.Logger
}

// Server exposes search and collection endpoints.
type Server struct {
	searcher Searcher
	store    vectorstore.Store
	cfg      Config
	log      *zap.Logger
	router   chi.Router
}

// SearchRequest is the POST /v1/search body.
type SearchRequest struct {
	types.SearchQuery
	Embedder           string `json:"embedder,omitempty"`
	SortByKeywordScore bool   `json:"sort_by_keyword_score,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the server and its routes.
func New(s Searcher, store vectorstore.Store, cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 20 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	srv := &Server{searcher: s, store: store, cfg: cfg, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", srv.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", srv.handleSearch)
		r.Get("/search", srv.handleSearchQuery)
		r.Get("/collections", srv.handleListCollections)
		r.Get("/collections/{name}", srv.handleCollectionInfo)
	})
	srv.router = r
	return srv
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("api server starting", zap.String("addr", s.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if _, err := s.store.ListCollections(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var body SearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	s.search(w, r, body)
}

// handleSearchQuery accepts the same query as URL parameters.
func (s *Server) handleSearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := SearchRequest{
		SearchQuery: types.SearchQuery{
			Prompt:          q.Get("prompt"),
			Keywords:        types.ParseKeywordList(q.Get("keywords")),
			Section:         q.Get("section"),
			Date:            q.Get("date"),
			MatchAnyKeyword: parseBool(q.Get("match_any_keyword")),
		},
		Embedder:           q.Get("embedder"),
		SortByKeywordScore: parseBool(q.Get("sort_by_keyword_score")),
	}
	if raw := q.Get("min_keyword_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid min_keyword_score"})
			return
		}
		body.MinKeywordScore = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		body.Limit = v
	}
	s.search(w, r, body)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, body SearchRequest) {
	resp, err := s.searcher.Search(r.Context(), searcher.Request{
		Query:              body.SearchQuery,
		Strategy:           embedder.Strategy(strings.ToLower(strings.TrimSpace(body.Embedder))),
		SortByKeywordScore: body.SortByKeywordScore,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.ListCollections(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"collections": collections})
}

func (s *Server) handleCollectionInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.CollectionInfo(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrEmptyQuery),
		errors.Is(err, types.ErrInvalidDate),
		errors.Is(err, types.ErrInvalidLimit),
		errors.Is(err, embedder.ErrUnsupportedStrategy):
		return http.StatusBadRequest
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func parseBool(raw string) bool {
	v, _ := strconv.ParseBool(strings.TrimSpace(raw))
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
