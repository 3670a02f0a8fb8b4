// Package server implements the HTTP surfaces: health probes, metrics,
// point ingestion and the admin API.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/queue"
)

// Queue is the part of the point queue the HTTP surfaces use.
type Queue interface {
	Send(ctx context.Context, p point.Point) error
	SendMultiField(ctx context.Context, p point.MultiFieldPoint) error
	Pause()
	Unpause()
	Stats() queue.Stats
}

// Validator checks points before they are queued.
type Validator interface {
	Validate(p point.Point) error
	ValidateMultiField(p point.MultiFieldPoint) error
}

// Flusher writes everything currently buffered.
type Flusher interface {
	Flush(ctx context.Context) error
}

// MetricsCollector defines ingest metrics operations.
type MetricsCollector interface {
	IncPointsAccepted(stream, source string, n int)
	IncPointsRejected(stream, reason string, n int)
}

// Config contains listener settings. Port 0 binds an ephemeral port.
type Config struct {
	HealthPort     int
	MetricsEnabled bool
	MetricsPort    int
	MetricsPath    string
	LivenessPath   string
	ReadinessPath  string
}

func (c Config) withDefaults() Config {
	if c.LivenessPath == "" {
		c.LivenessPath = "/health/live"
	}
	if c.ReadinessPath == "" {
		c.ReadinessPath = "/health/ready"
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	return c
}

// Dependencies are the components served over HTTP.
type Dependencies struct {
	Queue     Queue
	Validator Validator
	Flusher   Flusher
	Health    HealthChecker
	Registry  *prometheus.Registry
	Metrics   MetricsCollector
	Logger    *zap.Logger
}

// Server represents the HTTP servers for health, ingest, admin and metrics.
type Server struct {
	healthServer  *http.Server
	metricsServer *http.Server
	listeners     []net.Listener
	logger        *zap.Logger
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, deps Dependencies) *Server {
	cfg = cfg.withDefaults()

	s := &Server{logger: deps.Logger}

	s.healthServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HealthPort),
		Handler:      NewHandler(cfg, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	if cfg.MetricsEnabled && deps.Registry != nil {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:      metricsMux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
	}

	return s
}

// NewHandler builds the health, ingest and admin routes.
func NewHandler(cfg Config, deps Dependencies) http.Handler {
	cfg = cfg.withDefaults()
	if deps.Health == nil {
		deps.Health = NewQueueHealth(deps.Queue.Stats)
	}
	ingest := &ingestHandler{queue: deps.Queue, validator: deps.Validator, metrics: deps.Metrics, logger: deps.Logger}
	admin := &adminHandler{queue: deps.Queue, flusher: deps.Flusher, logger: deps.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+cfg.LivenessPath, LivenessHandler(deps.Health, deps.Logger))
	mux.HandleFunc("GET "+cfg.ReadinessPath, ReadinessHandler(deps.Health, deps.Logger))

	mux.HandleFunc("POST /api/put", ingest.put)
	mux.HandleFunc("POST /api/mput", ingest.mput)

	mux.HandleFunc("POST /admin/pause", admin.pause)
	mux.HandleFunc("POST /admin/unpause", admin.unpause)
	mux.HandleFunc("POST /admin/flush", admin.flush)
	mux.HandleFunc("GET /admin/stats", admin.stats)

	return mux
}

// Start binds the listeners and serves in the background.
func (s *Server) Start() error {
	servers := []*http.Server{s.healthServer}
	if s.metricsServer != nil {
		servers = append(servers, s.metricsServer)
	}

	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range s.listeners {
				l.Close()
			}
			return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
		}
		s.listeners = append(s.listeners, ln)

		go func(srv *http.Server, ln net.Listener) {
			s.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server failed", zap.String("addr", ln.Addr().String()), zap.Error(err))
			}
		}(srv, ln)
	}

	return nil
}

// Addrs returns the bound listener addresses, health listener first.
func (s *Server) Addrs() []string {
	addrs := make([]string, len(s.listeners))
	for i, l := range s.listeners {
		addrs[i] = l.Addr().String()
	}
	return addrs
}

// Shutdown gracefully shuts down both servers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP servers")

	var result *multierror.Error
	if err := s.healthServer.Shutdown(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("health server: %w", err))
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("metrics server: %w", err))
		}
	}
	return result.ErrorOrNil()
}
