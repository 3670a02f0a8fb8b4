package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// NewBackend creates the writer and router for the configured backend.
func NewBackend(
	ctx context.Context,
	cfg dto.StorageConfig,
	logger *zap.Logger,
	metrics MetricsCollector,
) (storage.Writer, *DefaultRouter, error) {
	format := encoder.Format(cfg.Format)

	switch cfg.Backend {
	case "file":
		w, err := NewFileWriter(FileConfig{BasePath: cfg.File.BasePath}, format, cfg.Compression, logger, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create file writer: %w", err)
		}
		return w, NewRouter("file", "", ""), nil

	case "s3":
		w, err := NewS3Writer(ctx, S3Config{
			Bucket:       cfg.S3.Bucket,
			Region:       cfg.S3.Region,
			Endpoint:     cfg.S3.Endpoint,
			UsePathStyle: cfg.S3.UsePathStyle,
			SSEEnabled:   cfg.S3.SSEEnabled,
			SSEKMSKeyID:  cfg.S3.SSEKMSKeyID,
		}, format, cfg.Compression, logger, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create S3 writer: %w", err)
		}
		return w, NewRouter("s3", cfg.S3.Bucket, cfg.S3.BasePath), nil

	case "gcs":
		w, err := NewGCSWriter(ctx, GCSConfig{
			Bucket:               cfg.GCS.Bucket,
			ProjectID:            cfg.GCS.ProjectID,
			CredentialsFile:      cfg.GCS.CredentialsFile,
			CredentialsJSON:      cfg.GCS.CredentialsJSON,
			Endpoint:             cfg.GCS.Endpoint,
			UseDefaultCredential: cfg.GCS.UseDefaultCredential,
		}, format, cfg.Compression, logger, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GCS writer: %w", err)
		}
		return w, NewRouter("gs", cfg.GCS.Bucket, cfg.GCS.BasePath), nil

	case "azure":
		w, err := NewAzureWriter(AzureConfig{
			AccountName:   cfg.Azure.AccountName,
			AccountKey:    cfg.Azure.AccountKey,
			ContainerName: cfg.Azure.Container,
			Endpoint:      cfg.Azure.Endpoint,
		}, format, cfg.Compression, logger, metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Azure Blob writer: %w", err)
		}
		return w, NewRouter("wasbs", cfg.Azure.Container, cfg.Azure.BasePath), nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage backend: %s (supported: file, s3, azure, gcs)", cfg.Backend)
	}
}

// NewSinkFromConfig creates a storage sink for the configured backend.
func NewSinkFromConfig(ctx context.Context, cfg dto.StorageConfig, logger *zap.Logger, metrics MetricsCollector) (*Sink, error) {
	writer, router, err := NewBackend(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return NewSink(writer, router), nil
}
