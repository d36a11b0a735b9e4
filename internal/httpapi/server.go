// Package httpapi serves a read-only JSON view of tracked servers, rolling
// stats and runtime health.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"fs22bot/internal/publisher"
	"fs22bot/internal/runtime/supervisor"
	"fs22bot/internal/tracker"
	logx "fs22bot/pkg/logx"
)

const DefaultAddr = "127.0.0.1:8080"

// ServerSource exposes tracked servers. *tracker.Registry satisfies it.
type ServerSource interface {
	IDs() []int
	Status(id int) (tracker.Status, bool)
}

// StatsSource exposes the rolling online-time window. *stats.Aggregator satisfies it.
type StatsSource interface {
	Advance()
	Window() int
	Totals(serverIDs []int) map[string]int
}

type Deps struct {
	Servers ServerSource
	Stats   StatsSource
	// Tasks and Publishers feed /healthz. Both are optional.
	Tasks      func() supervisor.Snapshot
	Publishers func() []publisher.Stats
	Started    time.Time
	Now        func() time.Time
}

type Config struct {
	Addr  string
	Pprof bool
}

// Server wraps the HTTP server and its router.
type Server struct {
	cfg  Config
	deps Deps
	log  logx.Logger
	http *http.Server
}

func New(cfg Config, deps Deps, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Started.IsZero() {
		deps.Started = deps.Now()
	}
	s := &Server{cfg: cfg, deps: deps, log: log.With(logx.String("comp", "httpapi"))}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return s
}

// Handler builds the router. Exposed for tests.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.log))

	r.Get("/healthz", s.health)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/servers", s.listServers)
		r.Get("/servers/{id}", s.getServer)
		r.Get("/stats", s.getStats)
	})
	if s.cfg.Pprof {
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

// Run listens on the configured address and serves until ctx is done, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.log.Info("http api listening", logx.String("addr", ln.Addr().String()), logx.Bool("pprof", s.cfg.Pprof))

	errCh := make(chan error, 1)
	go func() { errCh <- s.http.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("http api shutdown error", logx.Err(err))
		return err
	}
	s.log.Info("http api stopped")
	return nil
}

// accessLog logs one line per request at debug level.
func accessLog(log logx.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				logx.String("method", r.Method),
				logx.String("path", r.URL.Path),
				logx.Int("status", ww.Status()),
				logx.Int("bytes", ww.BytesWritten()),
				logx.Duration("duration", time.Since(start)),
				logx.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
