package kafka

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
)

func TestConfigureSecurity(t *testing.T) {
	tests := []struct {
		name          string
		config        dto.KafkaConfig
		wantSASL      bool
		wantTLS       bool
		wantMechanism sarama.SASLMechanism
		wantErr       bool
	}{
		{
			name:   "plaintext",
			config: dto.KafkaConfig{SecurityProtocol: "PLAINTEXT"},
		},
		{
			name:    "ssl",
			config:  dto.KafkaConfig{SecurityProtocol: "SSL"},
			wantTLS: true,
		},
		{
			name: "sasl plaintext with PLAIN",
			config: dto.KafkaConfig{
				SecurityProtocol: "SASL_PLAINTEXT",
				SASLMechanism:    "PLAIN",
				SASLUsername:     "user",
				SASLPassword:     "pass",
			},
			wantSASL:      true,
			wantMechanism: sarama.SASLTypePlaintext,
		},
		{
			name: "sasl ssl with SCRAM-SHA-512",
			config: dto.KafkaConfig{
				SecurityProtocol: "SASL_SSL",
				SASLMechanism:    "SCRAM-SHA-512",
				SASLUsername:     "user",
				SASLPassword:     "pass",
			},
			wantSASL:      true,
			wantTLS:       true,
			wantMechanism: sarama.SASLTypeSCRAMSHA512,
		},
		{
			name: "msk iam",
			config: dto.KafkaConfig{
				SecurityProtocol: "SASL_SSL",
				SASLMechanism:    "AWS_MSK_IAM",
				AWSMSK:           dto.AWSMSKConfig{Enabled: true, Region: "eu-west-1"},
			},
			wantSASL:      true,
			wantTLS:       true,
			wantMechanism: sarama.SASLTypeOAuth,
		},
		{
			name: "msk iam not enabled",
			config: dto.KafkaConfig{
				SecurityProtocol: "SASL_SSL",
				SASLMechanism:    "AWS_MSK_IAM",
			},
			wantErr: true,
		},
		{
			name:    "unknown mechanism",
			config:  dto.KafkaConfig{SecurityProtocol: "SASL_PLAINTEXT", SASLMechanism: "GSSAPI"},
			wantErr: true,
		},
		{
			name:    "unknown protocol",
			config:  dto.KafkaConfig{SecurityProtocol: "QUIC"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sarama.NewConfig()
			err := configureSecurity(cfg, tt.config, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Fatalf("configureSecurity() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.Net.SASL.Enable != tt.wantSASL {
				t.Errorf("SASL.Enable = %v, want %v", cfg.Net.SASL.Enable, tt.wantSASL)
			}
			if cfg.Net.TLS.Enable != tt.wantTLS {
				t.Errorf("TLS.Enable = %v, want %v", cfg.Net.TLS.Enable, tt.wantTLS)
			}
			if tt.wantSASL && cfg.Net.SASL.Mechanism != tt.wantMechanism {
				t.Errorf("Mechanism = %v, want %v", cfg.Net.SASL.Mechanism, tt.wantMechanism)
			}
		})
	}
}

func TestConfigureTLS_CACert(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := sarama.NewConfig()
	if err := configureTLS(cfg, dto.TLSConfig{CACertFile: bad}, zap.NewNop()); err == nil {
		t.Error("expected error for invalid CA certificate")
	}
	if err := configureTLS(cfg, dto.TLSConfig{CACertFile: filepath.Join(dir, "missing.pem")}, zap.NewNop()); err == nil {
		t.Error("expected error for missing CA certificate")
	}

	if err := configureTLS(cfg, dto.TLSConfig{InsecureSkipVerify: true}, zap.NewNop()); err != nil {
		t.Fatalf("configureTLS() error = %v", err)
	}
	if !cfg.Net.TLS.Config.InsecureSkipVerify {
		t.Error("InsecureSkipVerify not applied")
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := map[string]sarama.CompressionCodec{
		"gzip":   sarama.CompressionGZIP,
		"snappy": sarama.CompressionSnappy,
		"lz4":    sarama.CompressionLZ4,
		"zstd":   sarama.CompressionZSTD,
		"none":   sarama.CompressionNone,
		"":       sarama.CompressionNone,
	}
	for in, want := range tests {
		if got := parseCompressionType(in); got != want {
			t.Errorf("parseCompressionType(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewSaramaConfig(t *testing.T) {
	cfg := dto.KafkaConfig{
		Brokers:          []string{"localhost:9092"},
		Topic:            "tsdb-points",
		SecurityProtocol: "PLAINTEXT",
		Producer: dto.ProducerConfig{
			RequiredAcks:     -1,
			CompressionType:  "zstd",
			MaxMessageBytes:  2000000,
			IdempotentWrites: true,
			RetryMax:         5,
			RetryBackoffMS:   250,
		},
	}

	saramaConfig, err := newSaramaConfig(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newSaramaConfig() error = %v", err)
	}
	if saramaConfig.Producer.Compression != sarama.CompressionZSTD {
		t.Errorf("Compression = %v", saramaConfig.Producer.Compression)
	}
	if saramaConfig.Net.MaxOpenRequests != 1 || !saramaConfig.Producer.Idempotent {
		t.Error("idempotent producer settings not applied")
	}
	if saramaConfig.Producer.Retry.Backoff != msDuration(250) {
		t.Errorf("Retry.Backoff = %v", saramaConfig.Producer.Retry.Backoff)
	}
	if !saramaConfig.Producer.Return.Successes {
		t.Error("sync producer requires Return.Successes")
	}
}
