package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/s0up4200/bazarrwatch/bazarr"
	"github.com/s0up4200/bazarrwatch/coordinator"
	"github.com/s0up4200/bazarrwatch/entity"
	"github.com/s0up4200/bazarrwatch/entry"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	maxBodyBytes           = 64 << 10
)

// Coordinator is the part of the refresh coordinator the server reads and drives
type Coordinator interface {
	Status() coordinator.Status
	Snapshot() (bazarr.Snapshot, bool)
	ReplaceAPIKey(ctx context.Context, key string) error
}

// Entities provides the current sensor projections
type Entities interface {
	States() entity.States
}

// Reauthenticator runs the reauth flow for an entry
type Reauthenticator interface {
	Reauth(ctx context.Context, id, apiKey string) (entry.Result, error)
}

// Config controls the listener
type Config struct {
	Listen          string
	ShutdownTimeout time.Duration
}

// Server serves the bridge API for one entry
type Server struct {
	cfg      Config
	entryID  string
	coord    Coordinator
	entities Entities
	flow     Reauthenticator
	metrics  http.Handler
	logger   zerolog.Logger
	handler  http.Handler
}

// New builds the router. metrics may be nil to disable /metrics.
func New(cfg Config, entryID string, coord Coordinator, entities Entities, flow Reauthenticator, metrics http.Handler, logger zerolog.Logger) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	s := &Server{
		cfg:      cfg,
		entryID:  entryID,
		coord:    coord,
		entities: entities,
		flow:     flow,
		metrics:  metrics,
		logger:   logger,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/entities", s.handleEntities)
		r.Post("/reauth", s.handleReauth)
	})

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return r
}

// String implements fmt.Stringer for suture
func (s *Server) String() string {
	return "http-server"
}

// Serve listens until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	return s.serve(ctx, ln)
}

func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("HTTP request")
	})
}
