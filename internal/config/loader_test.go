package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil {
		t.Fatal("expected non-nil loader")
	}
	if loader.v == nil {
		t.Fatal("expected non-nil viper instance")
	}
}

func TestLoader_LoadWithValidConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "test-config.yaml")

	configContent := `
application:
  name: test-app
  version: 1.0.0

queue:
  point_capacity: 500
  multi_field_capacity: 250

dispatcher:
  workers: 4
  batch_size: 50
  flush_interval_ms: 200

sink:
  type: kafka

kafka:
  brokers:
    - localhost:9092
  topic: metrics
  producer:
    compression_type: zstd
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	loader := NewLoader()
	config, err := loader.Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Application.Name != "test-app" {
		t.Errorf("Application.Name = %s, want test-app", config.Application.Name)
	}
	if config.Queue.PointCapacity != 500 || config.Queue.MultiFieldCapacity != 250 {
		t.Errorf("Queue = %+v, want capacities 500/250", config.Queue)
	}
	if config.Dispatcher.Workers != 4 || config.Dispatcher.BatchSize != 50 {
		t.Errorf("Dispatcher = %+v", config.Dispatcher)
	}
	if config.Kafka.Topic != "metrics" || len(config.Kafka.Brokers) != 1 {
		t.Errorf("Kafka = %+v", config.Kafka)
	}
	if config.Kafka.Producer.CompressionType != "zstd" {
		t.Errorf("CompressionType = %s, want zstd", config.Kafka.Producer.CompressionType)
	}

	// Untouched keys fall back to defaults.
	if config.Kafka.Producer.RetryMax != 3 {
		t.Errorf("Producer.RetryMax = %d, want default 3", config.Kafka.Producer.RetryMax)
	}
	if config.Shutdown.GracePeriodSeconds != 30 {
		t.Errorf("Shutdown.GracePeriodSeconds = %d, want default 30", config.Shutdown.GracePeriodSeconds)
	}
}

func TestLoader_LoadWithMissingFile(t *testing.T) {
	loader := NewLoader()

	// Defaults describe a valid http sink setup.
	config, err := loader.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Sink.Type != "http" {
		t.Errorf("Sink.Type = %s, want http", config.Sink.Type)
	}
	if config.Queue.PointCapacity != 10000 {
		t.Errorf("Queue.PointCapacity = %d, want 10000", config.Queue.PointCapacity)
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("TSDBBUFFER_QUEUE_POINT_CAPACITY", "42")
	t.Setenv("TSDBBUFFER_HTTP_SINK_ADDRESS", "http://tsdb:4242")

	config, err := NewLoader().Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Queue.PointCapacity != 42 {
		t.Errorf("Queue.PointCapacity = %d, want 42", config.Queue.PointCapacity)
	}
	if config.HTTPSink.Address != "http://tsdb:4242" {
		t.Errorf("HTTPSink.Address = %s, want http://tsdb:4242", config.HTTPSink.Address)
	}
}

func TestLoader_ExpandEnv(t *testing.T) {
	t.Setenv("TEST_KAFKA_PASSWORD", "s3cret")
	configFile := filepath.Join(t.TempDir(), "config.yaml")

	configContent := `
sink:
  type: kafka
kafka:
  brokers: [localhost:9092]
  sasl_password: ${TEST_KAFKA_PASSWORD}
`
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	config, err := NewLoader().Load(configFile)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if config.Kafka.SASLPassword != "s3cret" {
		t.Errorf("SASLPassword = %q, want expanded value", config.Kafka.SASLPassword)
	}
}

func TestLoader_LoadInvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(configFile, []byte("queue: [unterminated"), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	if _, err := NewLoader().Load(configFile); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func validConfig() *dto.ApplicationConfig {
	return &dto.ApplicationConfig{
		Queue:      dto.QueueConfig{PointCapacity: 100, MultiFieldCapacity: 100},
		Dispatcher: dto.DispatcherConfig{Workers: 1, BatchSize: 10, FlushIntervalMS: 100},
		Retry:      dto.RetryConfig{MaxAttempts: 3},
		Sink:       dto.SinkConfig{Type: "http"},
		HTTPSink:   dto.HTTPSinkConfig{Address: "http://localhost:4242"},
		Observability: dto.ObservabilityConfig{
			Metrics: dto.MetricsConfig{Port: 9090, Path: "/metrics"},
			Health:  dto.HealthConfig{Port: 8080, LivenessPath: "/health/live", ReadinessPath: "/health/ready"},
		},
	}
}

func TestLoader_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *dto.ApplicationConfig)
		wantErr bool
	}{
		{
			name:    "valid http sink config",
			mutate:  func(c *dto.ApplicationConfig) {},
			wantErr: false,
		},
		{
			name:    "zero point capacity",
			mutate:  func(c *dto.ApplicationConfig) { c.Queue.PointCapacity = 0 },
			wantErr: true,
		},
		{
			name:    "negative multi-field capacity",
			mutate:  func(c *dto.ApplicationConfig) { c.Queue.MultiFieldCapacity = -5 },
			wantErr: true,
		},
		{
			name:    "zero workers",
			mutate:  func(c *dto.ApplicationConfig) { c.Dispatcher.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "zero max attempts",
			mutate:  func(c *dto.ApplicationConfig) { c.Retry.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name: "min tags above max tags",
			mutate: func(c *dto.ApplicationConfig) {
				c.Validation = dto.ValidationConfig{MinTags: 4, MaxTags: 2}
			},
			wantErr: true,
		},
		{
			name:    "http sink missing address",
			mutate:  func(c *dto.ApplicationConfig) { c.HTTPSink.Address = "" },
			wantErr: true,
		},
		{
			name: "kafka sink missing topic",
			mutate: func(c *dto.ApplicationConfig) {
				c.Sink.Type = "kafka"
				c.Kafka.Brokers = []string{"localhost:9092"}
			},
			wantErr: true,
		},
		{
			name: "valid storage sink",
			mutate: func(c *dto.ApplicationConfig) {
				c.Sink.Type = "storage"
				c.Storage = dto.StorageConfig{Backend: "file", Format: "avro", File: dto.FileConfig{BasePath: "/tmp/test"}}
			},
			wantErr: false,
		},
		{
			name: "s3 backend missing bucket",
			mutate: func(c *dto.ApplicationConfig) {
				c.Sink.Type = "storage"
				c.Storage = dto.StorageConfig{Backend: "s3", Format: "parquet", S3: dto.S3Config{Region: "us-east-1"}}
			},
			wantErr: true,
		},
		{
			name: "gcs backend missing bucket",
			mutate: func(c *dto.ApplicationConfig) {
				c.Sink.Type = "storage"
				c.Storage = dto.StorageConfig{Backend: "gcs", Format: "parquet"}
			},
			wantErr: true,
		},
		{
			name: "unsupported storage format",
			mutate: func(c *dto.ApplicationConfig) {
				c.Sink.Type = "storage"
				c.Storage = dto.StorageConfig{Backend: "file", Format: "csv", File: dto.FileConfig{BasePath: "/tmp"}}
			},
			wantErr: true,
		},
		{
			name:    "unsupported sink type",
			mutate:  func(c *dto.ApplicationConfig) { c.Sink.Type = "carrier-pigeon" },
			wantErr: true,
		},
		{
			name: "generator with zero interval",
			mutate: func(c *dto.ApplicationConfig) {
				c.Generator = dto.GeneratorConfig{Enabled: true}
			},
			wantErr: true,
		},
		{
			name:    "liveness path without leading slash",
			mutate:  func(c *dto.ApplicationConfig) { c.Observability.Health.LivenessPath = "health" },
			wantErr: true,
		},
		{
			name:    "empty readiness path",
			mutate:  func(c *dto.ApplicationConfig) { c.Observability.Health.ReadinessPath = "" },
			wantErr: true,
		},
		{
			name:    "metrics path without leading slash",
			mutate:  func(c *dto.ApplicationConfig) { c.Observability.Metrics.Path = "metrics" },
			wantErr: true,
		},
		{
			name:    "invalid metrics port",
			mutate:  func(c *dto.ApplicationConfig) { c.Observability.Metrics.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(config)

			err := NewLoader().Validate(config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoader_setDefaults(t *testing.T) {
	loader := NewLoader()
	loader.setDefaults()

	if loader.v.GetString("application.name") != "tsdbbuffer" {
		t.Error("default application.name not set correctly")
	}
	if loader.v.GetString("sink.type") != "http" {
		t.Error("default sink.type not set correctly")
	}
	if loader.v.GetInt("dispatcher.batch_size") != 500 {
		t.Error("default dispatcher.batch_size not set correctly")
	}
}
