// Package server exposes question generation and solving over HTTP.
// Results stream as newline-delimited JSON chunks.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/abhisek/quizforge/internal/config"
	"github.com/abhisek/quizforge/internal/mcq"
	"github.com/abhisek/quizforge/internal/quizgen"
)

// PDFRenderer renders a question set as a PDF document. The export
// endpoint answers 501 when no renderer is installed.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, set []mcq.MCQ) ([]byte, error)
}

// Server wires the generation service into an HTTP API.
type Server struct {
	svc      *quizgen.Service
	cfg      config.ServerConfig
	logger   *slog.Logger
	validate *validator.Validate
	renderer PDFRenderer
}

// Option configures a Server.
type Option func(*Server)

// WithPDFRenderer installs a PDF export backend.
func WithPDFRenderer(r PDFRenderer) Option {
	return func(s *Server) { s.renderer = r }
}

// New creates a Server. A nil logger falls back to slog.Default.
func New(svc *quizgen.Service, cfg config.ServerConfig, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:      svc,
		cfg:      cfg,
		logger:   logger,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/v1/generate", s.handleGenerate)
	r.Post("/api/v1/solve", s.handleSolve)
	r.Post("/api/v1/export/pdf", s.handleExportPDF)
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:     s.Router(),
		ReadTimeout: s.cfg.ReadTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request with the chi request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
