package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
)

// EnvPrefix is prepended to every environment override, e.g.
// TSDBBUFFER_QUEUE_POINT_CAPACITY.
const EnvPrefix = "TSDBBUFFER"

// Loader handles configuration loading and validation
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func (l *Loader) Load(path string) (*dto.ApplicationConfig, error) {
	l.setDefaults()

	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Only expand values containing ${...}
	for _, key := range l.v.AllKeys() {
		value := l.v.GetString(key)
		if strings.Contains(value, "${") {
			l.v.Set(key, os.ExpandEnv(value))
		}
	}

	var config dto.ApplicationConfig
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func (l *Loader) setDefaults() {
	// Application defaults
	l.v.SetDefault("application.name", "tsdbbuffer")
	l.v.SetDefault("application.version", "1.0.0")
	l.v.SetDefault("application.environment", "development")

	// Queue defaults
	l.v.SetDefault("queue.point_capacity", 10000)
	l.v.SetDefault("queue.multi_field_capacity", 10000)

	// Dispatcher defaults
	l.v.SetDefault("dispatcher.workers", 2)
	l.v.SetDefault("dispatcher.batch_size", 500)
	l.v.SetDefault("dispatcher.flush_interval_ms", 1000)
	l.v.SetDefault("dispatcher.pause_duration_ms", 2000)

	// Retry defaults
	l.v.SetDefault("retry.max_attempts", 5)
	l.v.SetDefault("retry.initial_backoff_ms", 100)
	l.v.SetDefault("retry.max_backoff_ms", 30000)
	l.v.SetDefault("retry.enable_jitter", true)

	// Validation defaults
	l.v.SetDefault("validation.max_tags", 8)
	l.v.SetDefault("validation.min_tags", 0)

	// Sink defaults
	l.v.SetDefault("sink.type", "http")
	l.v.SetDefault("http_sink.address", "http://localhost:4242")
	l.v.SetDefault("http_sink.timeout_ms", 5000)
	l.v.SetDefault("http_sink.max_idle_conns", 16)

	// Kafka defaults
	l.v.SetDefault("kafka.topic", "tsdb.points")
	l.v.SetDefault("kafka.security_protocol", "PLAINTEXT")
	l.v.SetDefault("kafka.sasl_mechanism", "PLAIN")
	l.v.SetDefault("kafka.producer.required_acks", -1)
	l.v.SetDefault("kafka.producer.compression_type", "snappy")
	l.v.SetDefault("kafka.producer.max_message_bytes", 1000000)
	l.v.SetDefault("kafka.producer.idempotent_writes", false)
	l.v.SetDefault("kafka.producer.retry_max", 3)
	l.v.SetDefault("kafka.producer.retry_backoff_ms", 100)

	// Storage defaults
	l.v.SetDefault("storage.backend", "file")
	l.v.SetDefault("storage.format", "parquet")
	l.v.SetDefault("storage.compression", "snappy")
	l.v.SetDefault("storage.file.base_path", "./data")
	l.v.SetDefault("storage.s3.use_path_style", false)
	l.v.SetDefault("storage.s3.sse_enabled", true)

	// Generator defaults
	l.v.SetDefault("generator.enabled", false)
	l.v.SetDefault("generator.interval_ms", 1000)
	l.v.SetDefault("generator.hosts", 10)

	// Observability defaults
	l.v.SetDefault("observability.logging.level", "info")
	l.v.SetDefault("observability.logging.format", "json")
	l.v.SetDefault("observability.logging.output", "stdout")
	l.v.SetDefault("observability.metrics.enabled", true)
	l.v.SetDefault("observability.metrics.port", 9090)
	l.v.SetDefault("observability.metrics.path", "/metrics")
	l.v.SetDefault("observability.health.port", 8080)
	l.v.SetDefault("observability.health.liveness_path", "/health/live")
	l.v.SetDefault("observability.health.readiness_path", "/health/ready")

	// Shutdown defaults
	l.v.SetDefault("shutdown.grace_period_seconds", 30)
}

// Validate validates the configuration
func (l *Loader) Validate(config *dto.ApplicationConfig) error {
	// Queue validation
	if config.Queue.PointCapacity <= 0 {
		return fmt.Errorf("queue.point_capacity must be positive, got %d", config.Queue.PointCapacity)
	}
	if config.Queue.MultiFieldCapacity <= 0 {
		return fmt.Errorf("queue.multi_field_capacity must be positive, got %d", config.Queue.MultiFieldCapacity)
	}

	// Dispatcher validation
	if config.Dispatcher.Workers <= 0 {
		return fmt.Errorf("dispatcher.workers must be positive, got %d", config.Dispatcher.Workers)
	}
	if config.Dispatcher.BatchSize <= 0 {
		return fmt.Errorf("dispatcher.batch_size must be positive, got %d", config.Dispatcher.BatchSize)
	}
	if config.Dispatcher.FlushIntervalMS <= 0 {
		return fmt.Errorf("dispatcher.flush_interval_ms must be positive, got %d", config.Dispatcher.FlushIntervalMS)
	}

	// Retry validation
	if config.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", config.Retry.MaxAttempts)
	}

	// Validation limits
	if config.Validation.MinTags < 0 || (config.Validation.MaxTags > 0 && config.Validation.MinTags > config.Validation.MaxTags) {
		return fmt.Errorf("invalid tag limits: min_tags=%d max_tags=%d", config.Validation.MinTags, config.Validation.MaxTags)
	}

	// Sink validation
	switch config.Sink.Type {
	case "http":
		if config.HTTPSink.Address == "" {
			return errors.New("http_sink.address is required for http sink")
		}
	case "kafka":
		if err := config.Kafka.Validate(); err != nil {
			return err
		}
	case "storage":
		if err := l.validateStorage(config); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported sink type: %s", config.Sink.Type)
	}

	if config.Generator.Enabled && config.Generator.IntervalMS <= 0 {
		return fmt.Errorf("generator.interval_ms must be positive, got %d", config.Generator.IntervalMS)
	}

	// Port validation
	if config.Observability.Metrics.Port < 1 || config.Observability.Metrics.Port > 65535 {
		return fmt.Errorf("invalid metrics port: %d", config.Observability.Metrics.Port)
	}
	if config.Observability.Health.Port < 1 || config.Observability.Health.Port > 65535 {
		return fmt.Errorf("invalid health port: %d", config.Observability.Health.Port)
	}

	for name, path := range map[string]string{
		"observability.health.liveness_path":  config.Observability.Health.LivenessPath,
		"observability.health.readiness_path": config.Observability.Health.ReadinessPath,
		"observability.metrics.path":          config.Observability.Metrics.Path,
	} {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("%s must start with /, got %q", name, path)
		}
	}

	return nil
}

func (l *Loader) validateStorage(config *dto.ApplicationConfig) error {
	switch config.Storage.Backend {
	case "s3":
		if err := config.Storage.S3.Validate(); err != nil {
			return err
		}
	case "azure":
		if err := config.Storage.Azure.Validate(); err != nil {
			return err
		}
	case "gcs":
		if err := config.Storage.GCS.Validate(); err != nil {
			return err
		}
	case "file":
		if err := config.Storage.File.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", config.Storage.Backend)
	}

	if config.Storage.Format != "parquet" && config.Storage.Format != "avro" {
		return fmt.Errorf("unsupported storage format: %s", config.Storage.Format)
	}
	return nil
}
