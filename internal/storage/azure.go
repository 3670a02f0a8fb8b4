package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"

	internalencoder "github.com/jittakal/tsdbbuffer/internal/encoder"
	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*AzureWriter)(nil)

// AzureConfig contains Azure Blob Storage configuration.
type AzureConfig struct {
	AccountName   string
	AccountKey    string
	ContainerName string
	Endpoint      string
}

func (c AzureConfig) connectionString() string {
	if c.Endpoint != "" {
		return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;BlobEndpoint=%s",
			c.AccountName, c.AccountKey, c.Endpoint)
	}
	return fmt.Sprintf("DefaultEndpointsProtocol=https;AccountName=%s;AccountKey=%s;EndpointSuffix=core.windows.net",
		c.AccountName, c.AccountKey)
}

// AzureWriter implements storage.Writer for Azure Blob Storage using
// shared key authentication.
type AzureWriter struct {
	client        *azblob.Client
	containerName string
	enc           encoder.Encoder
	namer         *fileNamer
	logger        *zap.Logger
	metrics       MetricsCollector
}

// NewAzureWriter creates a new Azure Blob storage writer.
func NewAzureWriter(
	cfg AzureConfig,
	format encoder.Format,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*AzureWriter, error) {
	client, err := azblob.NewClientFromConnectionString(cfg.connectionString(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure client: %w", err)
	}

	enc, err := internalencoder.NewFactory(format, compression).CreateEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("Azure writer created",
		zap.String("container", cfg.ContainerName),
		zap.String("account", cfg.AccountName),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &AzureWriter{
		client:        client,
		containerName: cfg.ContainerName,
		enc:           enc,
		namer:         newFileNamer(),
		logger:        logger,
		metrics:       metrics,
	}, nil
}

// Write encodes the batch and uploads it as a block blob below path.
func (w *AzureWriter) Write(ctx context.Context, batch encoder.Batch, path string) (int64, error) {
	if batch.Len() == 0 {
		return 0, fmt.Errorf("no points to write")
	}

	startTime := time.Now()
	format := string(w.enc.Format())
	blobPath := objectKey(path, "wasbs") + w.namer.next(string(batch.Stream), w.enc.FileExtension())
	location := "wasbs://" + w.containerName + "/" + blobPath

	tempFile, stats, err := encodeTemp(w.enc, batch, "azure")
	if err != nil {
		w.recordError("encode")
		return 0, &errors.StorageError{Operation: "encode", Path: location, Err: err}
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		w.recordError("file_open")
		return 0, &errors.StorageError{Operation: "read", Path: tempFile, Err: err}
	}
	defer file.Close()

	ct := contentType(w.enc.Format())
	_, err = w.client.UploadFile(ctx, w.containerName, blobPath, file, &azblob.UploadFileOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &ct},
	})
	if err != nil {
		w.recordError("upload")
		return 0, &errors.StorageError{Operation: "upload", Path: location, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote points to Azure Blob",
		zap.String("container", w.containerName),
		zap.String("blob", blobPath),
		zap.String("stream", string(batch.Stream)),
		zap.Int("record_count", stats.RecordCount),
		zap.Int64("file_size", stats.SizeBytes),
		zap.Int64("total_duration_ms", duration.Milliseconds()),
	)

	if w.metrics != nil {
		w.metrics.IncFilesWritten(string(batch.Stream), format, "success")
		w.metrics.ObserveFileSize(string(batch.Stream), format, float64(stats.SizeBytes))
		w.metrics.ObserveFileWriteDuration("azure", format, duration.Seconds())
	}

	return stats.SizeBytes, nil
}

func (w *AzureWriter) recordError(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors("azure", operation)
	}
}

// Close closes the Azure writer.
func (w *AzureWriter) Close() error {
	w.logger.Info("Azure writer closed")
	return nil
}
