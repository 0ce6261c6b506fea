// Package server exposes the diagnosis pipeline, the chat assistant and the
// knowledge base over HTTP.
//
// The API surface is small and versioned under /v1:
//
//   - POST /v1/diagnose      — submit image/audio/text evidence, receive a diagnosis
//   - POST /v1/chat          — one chat exchange with the assistant
//   - GET  /v1/chat/ws       — websocket chat session
//   - GET  /v1/diseases      — list known disease keys
//   - GET  /v1/diseases/{key} — one treatment record
//   - GET  /v1/unknown-cases — the bounded unknown-case log
//
// Operational endpoints (/healthz, /readyz, /metrics) are unversioned.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/verdantlabs/leafdoc/internal/chatbot"
	"github.com/verdantlabs/leafdoc/internal/config"
	"github.com/verdantlabs/leafdoc/internal/diagnose"
	"github.com/verdantlabs/leafdoc/internal/health"
	"github.com/verdantlabs/leafdoc/internal/knowledge"
	"github.com/verdantlabs/leafdoc/internal/observe"
	"github.com/verdantlabs/leafdoc/internal/unknownlog"
)

// shutdownTimeout bounds graceful connection draining on shutdown.
const shutdownTimeout = 10 * time.Second

// maxUploadBytes caps a diagnosis request body. Leaf photos and short voice
// clips fit comfortably; anything larger is rejected.
const maxUploadBytes = 20 << 20

// Diagnoser runs one diagnosis interaction.
type Diagnoser interface {
	Diagnose(ctx context.Context, req diagnose.Request) (*diagnose.Diagnosis, error)
}

// Assistant answers free-form chat queries.
type Assistant interface {
	Greeting() string
	Respond(ctx context.Context, query string) (string, error)
}

// KnowledgeBase serves treatment records for the read-only disease endpoints.
type KnowledgeBase interface {
	Lookup(ctx context.Context, key string) (*knowledge.TreatmentRecord, error)
	Keys(ctx context.Context) ([]string, error)
}

// UnknownCases exposes the unknown-case log for operator review.
type UnknownCases interface {
	Recent() []unknownlog.Entry
}

// Compile-time checks against the concrete implementations.
var (
	_ Diagnoser    = (*diagnose.Service)(nil)
	_ Assistant    = (*chatbot.Bot)(nil)
	_ UnknownCases = (*unknownlog.FileStore)(nil)
)

// Server is the HTTP front-end. Create instances with [New].
type Server struct {
	cfg      config.ServerConfig
	diag     Diagnoser
	bot      Assistant
	kb       KnowledgeBase
	unknowns UnknownCases
	checks   []health.Checker
	logger   *slog.Logger
	metrics  *observe.Metrics
}

// Option is a functional option for New.
type Option func(*Server)

// WithHealthCheckers registers readiness checks served on /readyz.
func WithHealthCheckers(checkers ...health.Checker) Option {
	return func(s *Server) {
		s.checks = append(s.checks, checkers...)
	}
}

// WithMetrics sets the metrics used for HTTP and chat instrumentation.
// Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a Server. diag, bot, kb and unknowns are required.
func New(cfg config.ServerConfig, diag Diagnoser, bot Assistant, kb KnowledgeBase, unknowns UnknownCases, logger *slog.Logger, opts ...Option) (*Server, error) {
	if diag == nil || bot == nil || kb == nil || unknowns == nil {
		return nil, errors.New("server: diagnoser, assistant, knowledge base and unknown-case log are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		diag:     diag,
		bot:      bot,
		kb:       kb,
		unknowns: unknowns,
		logger:   logger,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s, nil
}

// Handler builds the full route table. API routes are wrapped in the tracing
// and metrics middleware; operational probes are served bare so a broken
// meter provider can never take down the health checks.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/diagnose", s.handleDiagnose)
	api.HandleFunc("POST /v1/chat", s.handleChat)
	api.HandleFunc("GET /v1/chat/ws", s.handleChatWS)
	api.HandleFunc("GET /v1/diseases", s.handleDiseaseList)
	api.HandleFunc("GET /v1/diseases/{key}", s.handleDiseaseGet)
	api.HandleFunc("GET /v1/unknown-cases", s.handleUnknownCases)

	root := http.NewServeMux()
	root.Handle("/v1/", observe.Middleware(s.metrics)(api))
	health.New(s.checks...).Register(root)
	root.Handle("GET /metrics", promhttp.Handler())
	return root
}

// Run serves HTTP until ctx is cancelled, then drains connections for up to
// [shutdownTimeout] before returning. A nil error means a clean shutdown.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("http server listening", "addr", addr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
