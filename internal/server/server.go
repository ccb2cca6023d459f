package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/rickgao/top500/internal/diff"
	"github.com/rickgao/top500/internal/model"
	"github.com/rickgao/top500/internal/snapshot"
	"github.com/rickgao/top500/internal/sp500"
)

// maxMoversTop caps ?top= so a request cannot ask for an unbounded slice.
const maxMoversTop = 500

// Reader is the read side of the snapshot store. *snapshot.Store satisfies it.
type Reader interface {
	Latest(ctx context.Context) (*model.Snapshot, error)
	ReadLatestTwo(ctx context.Context) (prev, latest *model.Snapshot, err error)
	Dates(ctx context.Context) ([]model.Date, error)
}

// Config holds server settings.
type Config struct {
	Addr         string
	MoversTop    int // Default ?top= for movers (default: 10)
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server serves the read API.
type Server struct {
	cfg     Config
	store   Reader
	logger  zerolog.Logger
	metrics http.Handler
	router  *mux.Router
	server  *http.Server
	started time.Time

	constituents sp500.Lister
}

// Option configures a Server.
type Option func(*Server)

// WithConstituents serves /api/sp500.json from l.
func WithConstituents(l sp500.Lister) Option {
	return func(s *Server) {
		s.constituents = l
	}
}

// New creates a Server. metricsHandler may be nil to disable /metrics.
func New(cfg Config, store Reader, metricsHandler http.Handler, logger zerolog.Logger, opts ...Option) *Server {
	if cfg.MoversTop < 1 {
		cfg.MoversTop = 10
	}
	s := &Server{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: metricsHandler,
		router:  mux.NewRouter(),
		started: time.Now(),
	}
	for _, o := range opts {
		o(s)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(corsMiddleware)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/top500.json", s.handleTop).Methods(http.MethodGet)
	api.HandleFunc("/movers.json", s.handleMovers).Methods(http.MethodGet)
	api.HandleFunc("/changes.json", s.handleChanges).Methods(http.MethodGet)
	api.HandleFunc("/snapshots.json", s.handleSnapshots).Methods(http.MethodGet)
	api.HandleFunc("/sp500.json", s.handleConstituents).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// Start listens and serves until Shutdown. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.cfg.Addr).Msg("read api listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Latest(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	w.Header().Set("X-Snapshot-Date", snap.Date.String())
	writeJSON(w, http.StatusOK, snap.Entries)
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	top := s.cfg.MoversTop
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "top must be a positive integer")
			return
		}
		if n > maxMoversTop {
			n = maxMoversTop
		}
		top = n
	}

	prev, latest, err := s.store.ReadLatestTwo(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff.Movers(prev, latest, top))
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	prev, latest, err := s.store.ReadLatestTwo(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff.Changes(prev, latest))
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.Dates(r.Context())
	if err != nil {
		s.storeError(w, err)
		return
	}
	if dates == nil {
		dates = []model.Date{}
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) handleConstituents(w http.ResponseWriter, r *http.Request) {
	if s.constituents == nil {
		writeError(w, http.StatusServiceUnavailable, "constituents source not configured")
		return
	}
	rows, err := s.constituents.Constituents(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("constituents fetch failed")
		writeError(w, http.StatusBadGateway, "constituents unavailable")
		return
	}
	if rows == nil {
		rows = []sp500.Constituent{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		writeError(w, http.StatusNotFound, snapshot.ErrNoSnapshot.Error())
		return
	}
	s.logger.Error().Err(err).Msg("snapshot store read failed")
	writeError(w, http.StatusInternalServerError, "snapshot store unavailable")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestIDMiddleware tags each request with a short ID.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs method, path, status and latency.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		s.logger.Debug().
			Str("request_id", w.Header().Get("X-Request-ID")).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// corsMiddleware allows browser GETs from local development origins.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
