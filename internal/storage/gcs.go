package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	internalencoder "github.com/jittakal/tsdbbuffer/internal/encoder"
	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	pkgstorage "github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ pkgstorage.Writer = (*GCSWriter)(nil)

// GCSConfig contains Google Cloud Storage configuration.
type GCSConfig struct {
	Bucket               string
	ProjectID            string
	CredentialsFile      string
	CredentialsJSON      string
	Endpoint             string
	UseDefaultCredential bool
}

// clientOptions picks the authentication method. An endpoint without
// explicit credentials is treated as an emulator and skips authentication.
func (c GCSConfig) clientOptions() []option.ClientOption {
	var opts []option.ClientOption
	if c.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.Endpoint))
	}

	switch {
	case c.UseDefaultCredential:
	case c.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(c.CredentialsJSON)))
	case c.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(c.CredentialsFile))
	case c.Endpoint != "":
		opts = append(opts, option.WithoutAuthentication())
	}
	return opts
}

// GCSWriter implements storage.Writer for Google Cloud Storage.
type GCSWriter struct {
	client  *storage.Client
	bucket  string
	enc     encoder.Encoder
	namer   *fileNamer
	logger  *zap.Logger
	metrics MetricsCollector
}

// NewGCSWriter creates a new Google Cloud Storage writer.
func NewGCSWriter(
	ctx context.Context,
	cfg GCSConfig,
	format encoder.Format,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*GCSWriter, error) {
	enc, err := internalencoder.NewFactory(format, compression).CreateEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	client, err := storage.NewClient(ctx, cfg.clientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	logger.Info("GCS writer created",
		zap.String("bucket", cfg.Bucket),
		zap.String("project_id", cfg.ProjectID),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &GCSWriter{
		client:  client,
		bucket:  cfg.Bucket,
		enc:     enc,
		namer:   newFileNamer(),
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Write encodes the batch and uploads it below path.
func (w *GCSWriter) Write(ctx context.Context, batch encoder.Batch, path string) (int64, error) {
	if batch.Len() == 0 {
		return 0, fmt.Errorf("no points to write")
	}

	startTime := time.Now()
	format := string(w.enc.Format())
	objectPath := objectKey(path, "gs") + w.namer.next(string(batch.Stream), w.enc.FileExtension())
	location := "gs://" + w.bucket + "/" + objectPath

	tempFile, stats, err := encodeTemp(w.enc, batch, "gcs")
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

	gcsWriter := w.client.Bucket(w.bucket).Object(objectPath).NewWriter(ctx)
	gcsWriter.ContentType = contentType(w.enc.Format())

	bytesWritten, err := io.Copy(gcsWriter, file)
	if err != nil {
		w.recordError("upload")
		gcsWriter.Close()
		return 0, &errors.StorageError{Operation: "upload", Path: location, Err: err}
	}

	// Close finalizes the upload.
	if err := gcsWriter.Close(); err != nil {
		w.recordError("close")
		return 0, &errors.StorageError{Operation: "upload", Path: location, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote points to GCS",
		zap.String("bucket", w.bucket),
		zap.String("object", objectPath),
		zap.String("stream", string(batch.Stream)),
		zap.Int("record_count", stats.RecordCount),
		zap.Int64("bytes_written", bytesWritten),
		zap.Int64("total_duration_ms", duration.Milliseconds()),
	)

	if w.metrics != nil {
		w.metrics.IncFilesWritten(string(batch.Stream), format, "success")
		w.metrics.ObserveFileSize(string(batch.Stream), format, float64(stats.SizeBytes))
		w.metrics.ObserveFileWriteDuration("gcs", format, duration.Seconds())
	}

	return stats.SizeBytes, nil
}

func (w *GCSWriter) recordError(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors("gcs", operation)
	}
}

// Close closes the GCS client.
func (w *GCSWriter) Close() error {
	w.logger.Info("closing GCS writer")
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}
