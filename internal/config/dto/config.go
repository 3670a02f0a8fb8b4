package dto

import (
	"fmt"
	"time"
)

// ApplicationConfig is the root configuration structure
type ApplicationConfig struct {
	Application   ApplicationInfo     `mapstructure:"application"`
	Queue         QueueConfig         `mapstructure:"queue"`
	Dispatcher    DispatcherConfig    `mapstructure:"dispatcher"`
	Retry         RetryConfig         `mapstructure:"retry"`
	Validation    ValidationConfig    `mapstructure:"validation"`
	Sink          SinkConfig          `mapstructure:"sink"`
	HTTPSink      HTTPSinkConfig      `mapstructure:"http_sink"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Generator     GeneratorConfig     `mapstructure:"generator"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Shutdown      ShutdownConfig      `mapstructure:"shutdown"`
}

// ApplicationInfo contains application metadata
type ApplicationInfo struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// QueueConfig contains queue capacities
type QueueConfig struct {
	PointCapacity      int `mapstructure:"point_capacity"`
	MultiFieldCapacity int `mapstructure:"multi_field_capacity"`
}

// DispatcherConfig contains batching settings
type DispatcherConfig struct {
	Workers         int `mapstructure:"workers"`
	BatchSize       int `mapstructure:"batch_size"`
	FlushIntervalMS int `mapstructure:"flush_interval_ms"`
	PauseDurationMS int `mapstructure:"pause_duration_ms"`
}

// FlushInterval returns the flush interval as a duration.
func (c DispatcherConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// PauseDuration returns the backpressure pause as a duration.
func (c DispatcherConfig) PauseDuration() time.Duration {
	return time.Duration(c.PauseDurationMS) * time.Millisecond
}

// RetryConfig contains retry settings
type RetryConfig struct {
	MaxAttempts      int  `mapstructure:"max_attempts"`
	InitialBackoffMS int  `mapstructure:"initial_backoff_ms"`
	MaxBackoffMS     int  `mapstructure:"max_backoff_ms"`
	EnableJitter     bool `mapstructure:"enable_jitter"`
}

// ValidationConfig contains point validation limits
type ValidationConfig struct {
	MaxTags int `mapstructure:"max_tags"`
	MinTags int `mapstructure:"min_tags"`
}

// SinkConfig selects the transport to the remote store
type SinkConfig struct {
	Type string `mapstructure:"type"` // http, kafka, storage
}

// HTTPSinkConfig contains remote store HTTP endpoint settings
type HTTPSinkConfig struct {
	Address      string `mapstructure:"address"`
	TimeoutMS    int    `mapstructure:"timeout_ms"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// KafkaConfig contains Kafka-related configuration
type KafkaConfig struct {
	Brokers          []string       `mapstructure:"brokers"`
	Topic            string         `mapstructure:"topic"`
	SecurityProtocol string         `mapstructure:"security_protocol"` // PLAINTEXT, SASL_SSL, SASL_PLAINTEXT
	SASLMechanism    string         `mapstructure:"sasl_mechanism"`    // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, AWS_MSK_IAM
	SASLUsername     string         `mapstructure:"sasl_username"`
	SASLPassword     string         `mapstructure:"sasl_password"`
	TLS              TLSConfig      `mapstructure:"tls"`
	AWSMSK           AWSMSKConfig   `mapstructure:"aws_msk"`
	Producer         ProducerConfig `mapstructure:"producer"`
}

// TLSConfig contains TLS configuration
type TLSConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	CACertFile         string `mapstructure:"ca_cert_file"`
	ClientCertFile     string `mapstructure:"client_cert_file"`
	ClientKeyFile      string `mapstructure:"client_key_file"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// AWSMSKConfig contains AWS MSK IAM settings
type AWSMSKConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
}

// ProducerConfig contains Kafka producer configuration
type ProducerConfig struct {
	RequiredAcks     int    `mapstructure:"required_acks"`    // 0=NoResponse, 1=WaitForLocal, -1=WaitForAll
	CompressionType  string `mapstructure:"compression_type"` // none, gzip, snappy, lz4, zstd
	MaxMessageBytes  int    `mapstructure:"max_message_bytes"`
	IdempotentWrites bool   `mapstructure:"idempotent_writes"`
	RetryMax         int    `mapstructure:"retry_max"`
	RetryBackoffMS   int    `mapstructure:"retry_backoff_ms"`
}

// StorageConfig contains storage backend configuration
type StorageConfig struct {
	Backend     string      `mapstructure:"backend"`
	Format      string      `mapstructure:"format"`
	Compression string      `mapstructure:"compression"`
	S3          S3Config    `mapstructure:"s3"`
	Azure       AzureConfig `mapstructure:"azure"`
	GCS         GCSConfig   `mapstructure:"gcs"`
	File        FileConfig  `mapstructure:"file"`
}

// S3Config contains AWS S3 configuration
type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	BasePath     string `mapstructure:"base_path"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	SSEEnabled   bool   `mapstructure:"sse_enabled"`
	SSEKMSKeyID  string `mapstructure:"sse_kms_key_id"`
}

// AzureConfig contains Azure Blob Storage configuration
type AzureConfig struct {
	AccountName string `mapstructure:"account_name"`
	AccountKey  string `mapstructure:"account_key"`
	Container   string `mapstructure:"container"`
	BasePath    string `mapstructure:"base_path"`
	Endpoint    string `mapstructure:"endpoint"`
}

// GCSConfig contains Google Cloud Storage configuration
type GCSConfig struct {
	Bucket               string `mapstructure:"bucket"`
	ProjectID            string `mapstructure:"project_id"`
	BasePath             string `mapstructure:"base_path"`
	CredentialsFile      string `mapstructure:"credentials_file"`
	CredentialsJSON      string `mapstructure:"credentials_json"`
	Endpoint             string `mapstructure:"endpoint"`
	UseDefaultCredential bool   `mapstructure:"use_default_credential"`
}

// FileConfig contains local filesystem configuration
type FileConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// GeneratorConfig contains synthetic load settings
type GeneratorConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	IntervalMS int  `mapstructure:"interval_ms"`
	Hosts      int  `mapstructure:"hosts"`
}

// ObservabilityConfig contains observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// HealthConfig contains health, ingest and admin listener settings
type HealthConfig struct {
	Port          int    `mapstructure:"port"`
	LivenessPath  string `mapstructure:"liveness_path"`
	ReadinessPath string `mapstructure:"readiness_path"`
}

// ShutdownConfig contains shutdown settings
type ShutdownConfig struct {
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
}

// GracePeriod returns the drain deadline as a duration.
func (c ShutdownConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodSeconds) * time.Second
}

// Validate validates S3 configuration.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.Region == "" {
		return fmt.Errorf("s3 region is required")
	}
	return nil
}

// Validate validates Azure configuration.
func (c *AzureConfig) Validate() error {
	if c.AccountName == "" {
		return fmt.Errorf("azure account name is required")
	}
	if c.Container == "" {
		return fmt.Errorf("azure container is required")
	}
	return nil
}

// Validate validates GCS configuration.
func (c *GCSConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("gcs bucket is required")
	}
	return nil
}

// Validate validates file configuration.
func (c *FileConfig) Validate() error {
	if c.BasePath == "" {
		return fmt.Errorf("file base path is required")
	}
	return nil
}

// Validate validates Kafka sink configuration.
func (c *KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}
	if c.AWSMSK.Enabled && c.AWSMSK.Region == "" {
		return fmt.Errorf("kafka aws_msk region is required when MSK IAM is enabled")
	}
	return nil
}
