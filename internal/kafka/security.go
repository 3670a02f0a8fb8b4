package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/IBM/sarama"
	"github.com/aws/aws-msk-iam-sasl-signer-go/signer"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
)

// configureSecurity configures SASL and TLS settings.
func configureSecurity(saramaConfig *sarama.Config, cfg dto.KafkaConfig, logger *zap.Logger) error {
	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		logger.Info("using PLAINTEXT security protocol")

	case "SSL":
		saramaConfig.Net.TLS.Enable = true
		return configureTLS(saramaConfig, cfg.TLS, logger)

	case "SASL_PLAINTEXT":
		saramaConfig.Net.SASL.Enable = true
		return configureSASL(saramaConfig, cfg, logger)

	case "SASL_SSL":
		saramaConfig.Net.SASL.Enable = true
		saramaConfig.Net.TLS.Enable = true
		if err := configureSASL(saramaConfig, cfg, logger); err != nil {
			return err
		}
		return configureTLS(saramaConfig, cfg.TLS, logger)

	default:
		return fmt.Errorf("unsupported security protocol: %s", cfg.SecurityProtocol)
	}

	return nil
}

// configureSASL configures SASL authentication.
func configureSASL(saramaConfig *sarama.Config, cfg dto.KafkaConfig, logger *zap.Logger) error {
	switch cfg.SASLMechanism {
	case "PLAIN":
		saramaConfig.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		saramaConfig.Net.SASL.User = cfg.SASLUsername
		saramaConfig.Net.SASL.Password = cfg.SASLPassword

	case "SCRAM-SHA-256", "SCRAM-SHA-512":
		mechanism, generator, err := scramMechanism(cfg.SASLMechanism)
		if err != nil {
			return err
		}
		saramaConfig.Net.SASL.Mechanism = mechanism
		saramaConfig.Net.SASL.User = cfg.SASLUsername
		saramaConfig.Net.SASL.Password = cfg.SASLPassword
		saramaConfig.Net.SASL.SCRAMClientGeneratorFunc = generator

	case "AWS_MSK_IAM":
		if !cfg.AWSMSK.Enabled {
			return fmt.Errorf("AWS MSK IAM authentication requires aws_msk.enabled=true")
		}
		saramaConfig.Net.SASL.Mechanism = sarama.SASLTypeOAuth
		saramaConfig.Net.SASL.TokenProvider = &MSKAccessTokenProvider{region: cfg.AWSMSK.Region}

	default:
		return fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}

	logger.Info("using SASL authentication",
		zap.String("mechanism", cfg.SASLMechanism),
		zap.String("protocol", cfg.SecurityProtocol),
	)
	return nil
}

// configureTLS configures TLS settings.
func configureTLS(saramaConfig *sarama.Config, cfg dto.TLSConfig, logger *zap.Logger) error {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
		logger.Info("loaded CA certificate", zap.String("file", cfg.CACertFile))
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
		logger.Info("loaded client certificate", zap.String("cert_file", cfg.ClientCertFile))
	}

	saramaConfig.Net.TLS.Config = tlsConfig
	return nil
}

// MSKAccessTokenProvider implements AWS MSK IAM token provider.
type MSKAccessTokenProvider struct {
	region string
}

// Token generates a signed IAM auth token for the configured region.
func (m *MSKAccessTokenProvider) Token() (*sarama.AccessToken, error) {
	token, _, err := signer.GenerateAuthToken(context.Background(), m.region)
	if err != nil {
		return nil, err
	}
	return &sarama.AccessToken{Token: token}, nil
}

// parseCompressionType parses compression type string.
func parseCompressionType(compressionType string) sarama.CompressionCodec {
	switch compressionType {
	case "gzip":
		return sarama.CompressionGZIP
	case "snappy":
		return sarama.CompressionSnappy
	case "lz4":
		return sarama.CompressionLZ4
	case "zstd":
		return sarama.CompressionZSTD
	default:
		return sarama.CompressionNone
	}
}

// newSaramaConfig builds the producer configuration.
func newSaramaConfig(cfg dto.KafkaConfig, logger *zap.Logger) (*sarama.Config, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	saramaConfig.Producer.RequiredAcks = sarama.RequiredAcks(cfg.Producer.RequiredAcks)
	saramaConfig.Producer.Compression = parseCompressionType(cfg.Producer.CompressionType)
	if cfg.Producer.MaxMessageBytes > 0 {
		saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	}
	saramaConfig.Producer.Idempotent = cfg.Producer.IdempotentWrites
	saramaConfig.Producer.Retry.Max = cfg.Producer.RetryMax
	if cfg.Producer.RetryBackoffMS > 0 {
		saramaConfig.Producer.Retry.Backoff = msDuration(cfg.Producer.RetryBackoffMS)
	}

	// Idempotent producer requires Net.MaxOpenRequests to be 1
	if cfg.Producer.IdempotentWrites {
		saramaConfig.Net.MaxOpenRequests = 1
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
		saramaConfig.Version = sarama.V2_8_0_0
	}

	if err := configureSecurity(saramaConfig, cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to configure security: %w", err)
	}

	if err := saramaConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid producer configuration: %w", err)
	}
	return saramaConfig, nil
}
