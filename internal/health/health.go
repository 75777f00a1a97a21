// Package health serves the liveness endpoint polled by external uptime
// monitors. GET / and GET /ping always answer 200 "OK"; /metrics is exposed
// when metrics are enabled.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Habibullo22/Kinouz/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
	Metrics bool
}

type Server struct {
	mu   sync.Mutex
	cfg  Config
	log  logx.Logger
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(cfg Config, log logx.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:8080"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, log: log.With(logx.String("comp", "health"))}
}

// Start begins listening; it is a no-op when disabled. A listen failure is
// logged but not fatal: losing the probe endpoint must not take the bot down.
func (s *Server) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.cfg.Enabled || s.srv != nil {
		return
	}

	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
	mux.HandleFunc("/", ok)
	mux.HandleFunc("/ping", ok)
	if s.cfg.Metrics {
		mux.Handle("/metrics", promhttp.Handler())
	}

	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.log.Warn("health listen failed", logx.String("addr", s.cfg.Addr), logx.Err(err))
		return
	}

	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Warn("health server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("health endpoint up", logx.String("addr", s.addr), logx.Bool("metrics", s.cfg.Metrics))
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv == nil {
		return
	}
	srv := s.srv
	ln := s.ln
	addr := s.addr
	s.srv = nil
	s.ln = nil
	s.addr = ""

	shutdownCtx := ctx
	if shutdownCtx == nil {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
	}

	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("health shutdown error", logx.String("addr", addr), logx.Err(err))
	}
	if ln != nil {
		_ = ln.Close()
	}
	s.log.Info("health endpoint down", logx.String("addr", addr))
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
