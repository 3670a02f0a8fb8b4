package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	internalencoder "github.com/jittakal/tsdbbuffer/internal/encoder"
	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Writer = (*FileWriter)(nil)

// FileConfig contains local filesystem configuration.
type FileConfig struct {
	BasePath string
}

// FileWriter implements storage.Writer for the local filesystem.
// Routed paths are created as directories below BasePath.
type FileWriter struct {
	basePath string
	enc      encoder.Encoder
	namer    *fileNamer
	logger   *zap.Logger
	metrics  MetricsCollector
}

// NewFileWriter creates a new filesystem storage writer.
func NewFileWriter(
	config FileConfig,
	format encoder.Format,
	compression string,
	logger *zap.Logger,
	metrics MetricsCollector,
) (*FileWriter, error) {
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	enc, err := internalencoder.NewFactory(format, compression).CreateEncoder()
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	logger.Info("filesystem writer created",
		zap.String("base_path", config.BasePath),
		zap.String("format", string(format)),
		zap.String("compression", compression),
	)

	return &FileWriter{
		basePath: config.BasePath,
		enc:      enc,
		namer:    newFileNamer(),
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// Write encodes the batch into a new file under path.
func (w *FileWriter) Write(ctx context.Context, batch encoder.Batch, path string) (int64, error) {
	if batch.Len() == 0 {
		return 0, fmt.Errorf("no points to write")
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", errors.ErrCancelled, err)
	}

	startTime := time.Now()
	format := string(w.enc.Format())

	dir := filepath.Join(w.basePath, filepath.FromSlash(strings.TrimPrefix(path, "file://")))
	if err := os.MkdirAll(dir, 0755); err != nil {
		w.recordError("mkdir")
		return 0, &errors.StorageError{Operation: "create", Path: dir, Err: err}
	}

	fullPath := filepath.Join(dir, w.namer.next(string(batch.Stream), w.enc.FileExtension()))
	stats, err := w.enc.Encode(fullPath, batch)
	if err != nil {
		w.recordError("encode")
		return 0, &errors.StorageError{Operation: "encode", Path: fullPath, Err: err}
	}

	duration := time.Since(startTime)

	w.logger.Info("wrote points to file",
		zap.String("path", fullPath),
		zap.String("stream", string(batch.Stream)),
		zap.Int("record_count", stats.RecordCount),
		zap.Int64("file_size", stats.SizeBytes),
		zap.Int64("total_duration_ms", duration.Milliseconds()),
	)

	if w.metrics != nil {
		w.metrics.IncFilesWritten(string(batch.Stream), format, "success")
		w.metrics.ObserveFileSize(string(batch.Stream), format, float64(stats.SizeBytes))
		w.metrics.ObserveFileWriteDuration("file", format, duration.Seconds())
	}

	return stats.SizeBytes, nil
}

func (w *FileWriter) recordError(operation string) {
	if w.metrics != nil {
		w.metrics.IncStorageErrors("file", operation)
	}
}

// Close closes the writer.
func (w *FileWriter) Close() error {
	w.logger.Info("closing filesystem writer")
	return nil
}
