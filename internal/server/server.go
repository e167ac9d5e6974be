// Package server exposes a Translator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pthm/cql2pgjson"
	"github.com/pthm/cql2pgjson/internal/version"
)

// maxBodyBytes caps the size of a translate request body.
const maxBodyBytes = 1 << 20

// TranslateRequest is the body of POST /api/v1/translate.
type TranslateRequest struct {
	Query string `json:"query"`
}

// TranslateResponse is a successful translation.
type TranslateResponse struct {
	Where      string                `json:"where"`
	OrderBy    string                `json:"orderBy,omitempty"`
	SQL        string                `json:"sql,omitempty"`
	Advisories []cql2pgjson.Advisory `json:"advisories,omitempty"`
}

// ErrorResponse reports a failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// Server routes translation requests to a single Translator.
type Server struct {
	translator  *cql2pgjson.Translator
	logger      *slog.Logger
	corsOrigins []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithCORSOrigins sets the allowed origins. Defaults to "*".
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// New creates a Server for t.
func New(t *cql2pgjson.Translator, opts ...Option) *Server {
	s := &Server{
		translator:  t,
		logger:      slog.New(slog.DiscardHandler),
		corsOrigins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}).Handler)

	r.Get("/healthz", s.health)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/translate", s.translate)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Short(),
	})
}

func (s *Server) translate(w http.ResponseWriter, r *http.Request) {
	var req TranslateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error(), Kind: "request"})
		return
	}
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "query is required", Kind: "request"})
		return
	}

	sel, err := s.translator.TranslateString(req.Query)
	if err != nil {
		status, kind := classify(err)
		s.logger.Debug("translation failed",
			"request_id", middleware.GetReqID(r.Context()),
			"query", req.Query,
			"kind", kind,
			"error", err)
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind})
		return
	}

	resp := TranslateResponse{
		Where:      sel.Where,
		OrderBy:    sel.OrderBy,
		Advisories: sel.Advisories,
	}
	if table := s.translator.Table(); table != "" {
		resp.SQL = sel.Statement(table)
	}
	writeJSON(w, http.StatusOK, resp)
}

// classify maps a translation error to a status code and a stable kind.
func classify(err error) (int, string) {
	switch {
	case cql2pgjson.IsSyntaxErr(err):
		return http.StatusBadRequest, "syntax"
	case cql2pgjson.IsAmbiguousFieldErr(err):
		return http.StatusBadRequest, "ambiguous_field"
	case cql2pgjson.IsUnsupportedErr(err):
		return http.StatusBadRequest, "unsupported"
	case cql2pgjson.IsValidationErr(err):
		return http.StatusBadRequest, "validation"
	case cql2pgjson.IsSchemaErr(err):
		return http.StatusInternalServerError, "schema"
	case cql2pgjson.IsConfigErr(err):
		return http.StatusInternalServerError, "config"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
