package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	internalencoder "github.com/jittakal/tsdbbuffer/internal/encoder"
	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*S3Writer)(nil)

// S3Config contains AWS S3 configuration.
type S3Config struct {
	Bucket       string
	Region       string
	Endpoint     string
	UsePathStyle bool
	SSEEnabled   bool
	SSEKMSKeyID  string
}

// S3Writer implements storage.Writer for AWS S3.
// Uploads go through the multipart upload manager with optional SSE.
type S3Writer struct {
	uploader    *manager.Uploader
	bucket      string
	sseEnabled  bool
	sseKMSKeyID string
	enc         encoder.Encoder
	namer       *fileNamer
	logger      *zap.Logger
	metrics     MetricsCollector
}

// NewS3Writer creates a new S3 storage writer.
func NewS3Writer(
	ctx context.Context,
	cfg S3Config,
	format encoder.Format,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*S3Writer, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	uploader := manager.NewUploader(s3Client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 5
	})

	enc, err := internalencoder.NewFactory(format, compression).CreateEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("S3 writer created",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.String("format", string(format)),
		zap.String("compression", compression),
		zap.Bool("sse_enabled", cfg.SSEEnabled),
	)

	return &S3Writer{
		uploader:    uploader,
		bucket:      cfg.Bucket,
		sseEnabled:  cfg.SSEEnabled,
		sseKMSKeyID: cfg.SSEKMSKeyID,
		enc:         enc,
		namer:       newFileNamer(),
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Write encodes the batch and uploads it below path.
func (w *S3Writer) Write(ctx context.Context, batch encoder.Batch, path string) (int64, error) {
	if batch.Len() == 0 {
		return 0, fmt.Errorf("no points to write")
	}

	startTime := time.Now()
	format := string(w.enc.Format())
	key := objectKey(path, "s3") + w.namer.next(string(batch.Stream), w.enc.FileExtension())

	tempFile, stats, err := encodeTemp(w.enc, batch, "s3")
	if err != nil {
		w.recordError("encode")
		return 0, &errors.StorageError{Operation: "encode", Path: key, Err: err}
	}
	defer os.Remove(tempFile)

	file, err := os.Open(tempFile)
	if err != nil {
		w.recordError("file_open")
		return 0, &errors.StorageError{Operation: "read", Path: tempFile, Err: err}
	}
	defer file.Close()

	input := &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType(w.enc.Format())),
	}
	if w.sseEnabled {
		if w.sseKMSKeyID != "" {
			input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
			input.SSEKMSKeyId = aws.String(w.sseKMSKeyID)
		} else {
			input.ServerSideEncryption = types.ServerSideEncryptionAes256
		}
	}

	result, err := w.uploader.Upload(ctx, input)
	if err != nil {
		w.recordError("upload")
		return 0, &errors.StorageError{Operation: "upload", Path: "s3://" + w.bucket + "/" + key, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote points to S3",
		zap.String("bucket", w.bucket),
		zap.String("key", key),
		zap.String("stream", string(batch.Stream)),
		zap.Int("record_count", stats.RecordCount),
		zap.Int64("file_size", stats.SizeBytes),
		zap.String("location", result.Location),
		zap.Int64("total_duration_ms", duration.Milliseconds()),
	)

	if w.metrics != nil {
		w.metrics.IncFilesWritten(string(batch.Stream), format, "success")
		w.metrics.ObserveFileSize(string(batch.Stream), format, float64(stats.SizeBytes))
		w.metrics.ObserveFileWriteDuration("s3", format, duration.Seconds())
	}

	return stats.SizeBytes, nil
}

func (w *S3Writer) recordError(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors("s3", operation)
	}
}

// Close closes the S3 writer.
func (w *S3Writer) Close() error {
	w.logger.Info("closing S3 writer")
	return nil
}
