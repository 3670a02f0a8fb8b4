package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/config"
	"github.com/jittakal/tsdbbuffer/internal/config/dto"
	"github.com/jittakal/tsdbbuffer/internal/dispatcher"
	"github.com/jittakal/tsdbbuffer/internal/generator"
	"github.com/jittakal/tsdbbuffer/internal/kafka"
	"github.com/jittakal/tsdbbuffer/internal/observability"
	"github.com/jittakal/tsdbbuffer/internal/queue"
	"github.com/jittakal/tsdbbuffer/internal/server"
	"github.com/jittakal/tsdbbuffer/internal/storage"
	"github.com/jittakal/tsdbbuffer/internal/transport"
	"github.com/jittakal/tsdbbuffer/internal/validator"
	"github.com/jittakal/tsdbbuffer/pkg/sink"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("application error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	// Priority: CLI flag > CONFIG_PATH env var > default path
	var cfgPath string
	if *configPath != "" {
		cfgPath = *configPath
	} else if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		cfgPath = envPath
	} else {
		cfgPath = "config/application.yaml"
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: cfg.Observability.Logging.Output,
	})
	defer logger.Sync()

	logger.Info("starting tsdb buffer",
		zap.String("version", cfg.Application.Version),
		zap.String("environment", cfg.Application.Environment),
		zap.String("sink", cfg.Sink.Type),
	)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	q, err := queue.New(queue.Config{
		PointCapacity:      cfg.Queue.PointCapacity,
		MultiFieldCapacity: cfg.Queue.MultiFieldCapacity,
	})
	if err != nil {
		return fmt.Errorf("failed to create queue: %w", err)
	}
	metrics.RegisterQueue(q.Stats)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := newSink(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	d := dispatcher.New(q, out, dispatcher.Config{
		Workers:       cfg.Dispatcher.Workers,
		BatchSize:     cfg.Dispatcher.BatchSize,
		FlushInterval: cfg.Dispatcher.FlushInterval(),
		PauseDuration: cfg.Dispatcher.PauseDuration(),
		Retry: dispatcher.RetryConfig{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: time.Duration(cfg.Retry.InitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(cfg.Retry.MaxBackoffMS) * time.Millisecond,
			EnableJitter:   cfg.Retry.EnableJitter,
		},
	}, logger, metrics)
	d.Start(ctx)

	httpServer := server.NewServer(server.Config{
		HealthPort:     cfg.Observability.Health.Port,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPort:    cfg.Observability.Metrics.Port,
		MetricsPath:    cfg.Observability.Metrics.Path,
		LivenessPath:   cfg.Observability.Health.LivenessPath,
		ReadinessPath:  cfg.Observability.Health.ReadinessPath,
	}, server.Dependencies{
		Queue: q,
		Validator: validator.NewPointValidator(validator.Config{
			MaxTags: cfg.Validation.MaxTags,
			MinTags: cfg.Validation.MinTags,
		}),
		Flusher:  d,
		Health:   server.NewQueueHealth(q.Stats),
		Registry: registry,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err := httpServer.Start(); err != nil {
		cancel()
		return multierror.Append(fmt.Errorf("failed to start HTTP server: %w", err), out.Close())
	}

	genErrChan := make(chan error, 1)
	if cfg.Generator.Enabled {
		gen := generator.New(generator.Config{
			Interval: time.Duration(cfg.Generator.IntervalMS) * time.Millisecond,
			Hosts:    cfg.Generator.Hosts,
		}, q, logger, metrics)
		go func() {
			genErrChan <- gen.Run(ctx)
		}()
	}

	logger.Info("application started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received termination signal", zap.String("signal", sig.String()))
	case err := <-genErrChan:
		if err != nil {
			logger.Error("generator stopped", zap.Error(err))
		}
	}

	err = shutdown(cfg.Shutdown.GracePeriod(), q, d, httpServer, out, logger)
	cancel()
	if err != nil {
		logger.Error("shutdown completed with errors", zap.Error(err))
		return err
	}

	logger.Info("application stopped successfully")
	return nil
}

// shutdown rejects new points, drains the queue within grace and releases
// every component.
func shutdown(grace time.Duration, q *queue.BufferedPointQueue, d *dispatcher.Dispatcher, srv *server.Server, out sink.Sink, logger *zap.Logger) error {
	logger.Info("initiating graceful shutdown", zap.Duration("grace_period", grace))

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	var result *multierror.Error

	q.ForbidSend()
	if err := q.WaitEmpty(ctx); err != nil {
		stats := q.Stats()
		logger.Warn("queue not drained before deadline",
			zap.Int("points", stats.Points),
			zap.Int("multi_field", stats.MultiField),
		)
	}

	if err := d.Stop(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("dispatcher: %w", err))
	}

	serverCtx, serverCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer serverCancel()
	if err := srv.Shutdown(serverCtx); err != nil {
		result = multierror.Append(result, err)
	}

	if err := out.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("sink %s: %w", out.Name(), err))
	}

	return result.ErrorOrNil()
}

// newSink creates the transport selected by sink.type.
func newSink(ctx context.Context, cfg *dto.ApplicationConfig, logger *zap.Logger, metrics *observability.Metrics) (sink.Sink, error) {
	switch cfg.Sink.Type {
	case "http":
		s, err := transport.NewHTTPSink(transport.Config{
			Address:      cfg.HTTPSink.Address,
			Timeout:      time.Duration(cfg.HTTPSink.TimeoutMS) * time.Millisecond,
			MaxIdleConns: cfg.HTTPSink.MaxIdleConns,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP sink: %w", err)
		}
		return s, nil
	case "kafka":
		s, err := kafka.NewSink(cfg.Kafka, cfg.Application.Name, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka sink: %w", err)
		}
		return s, nil
	case "storage":
		s, err := storage.NewSinkFromConfig(ctx, cfg.Storage, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage sink: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s (supported: http, kafka, storage)", cfg.Sink.Type)
	}
}
