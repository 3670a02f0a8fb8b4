package dto

import (
	"testing"
	"time"
)

func TestDispatcherConfig_Durations(t *testing.T) {
	c := DispatcherConfig{FlushIntervalMS: 250, PauseDurationMS: 2000}

	if got := c.FlushInterval(); got != 250*time.Millisecond {
		t.Errorf("FlushInterval() = %v, want 250ms", got)
	}
	if got := c.PauseDuration(); got != 2*time.Second {
		t.Errorf("PauseDuration() = %v, want 2s", got)
	}
}

func TestShutdownConfig_GracePeriod(t *testing.T) {
	c := ShutdownConfig{GracePeriodSeconds: 15}
	if got := c.GracePeriod(); got != 15*time.Second {
		t.Errorf("GracePeriod() = %v, want 15s", got)
	}
}

func TestKafkaConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  KafkaConfig
		wantErr bool
	}{
		{
			name: "valid plaintext config",
			config: KafkaConfig{
				Brokers:          []string{"localhost:9092"},
				Topic:            "metrics",
				SecurityProtocol: "PLAINTEXT",
			},
			wantErr: false,
		},
		{
			name: "valid SASL config",
			config: KafkaConfig{
				Brokers:          []string{"localhost:9092"},
				Topic:            "metrics",
				SecurityProtocol: "SASL_SSL",
				SASLMechanism:    "SCRAM-SHA-256",
				SASLUsername:     "user",
				SASLPassword:     "pass",
			},
			wantErr: false,
		},
		{
			name: "empty brokers",
			config: KafkaConfig{
				Brokers: []string{},
				Topic:   "metrics",
			},
			wantErr: true,
		},
		{
			name: "msk without region",
			config: KafkaConfig{
				Brokers: []string{"b-1.msk:9098"},
				Topic:   "metrics",
				AWSMSK:  AWSMSKConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStorageConfigs_Validate(t *testing.T) {
	tests := []struct {
		name    string
		v       interface{ Validate() error }
		wantErr bool
	}{
		{"s3 valid", &S3Config{Bucket: "b", Region: "us-east-1"}, false},
		{"s3 missing region", &S3Config{Bucket: "b"}, true},
		{"azure valid", &AzureConfig{AccountName: "acct", Container: "c"}, false},
		{"azure missing container", &AzureConfig{AccountName: "acct"}, true},
		{"gcs valid", &GCSConfig{Bucket: "b"}, false},
		{"gcs missing bucket", &GCSConfig{}, true},
		{"file valid", &FileConfig{BasePath: "/tmp"}, false},
		{"file missing path", &FileConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.v.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
