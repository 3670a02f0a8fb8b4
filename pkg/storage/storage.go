// Package storage defines interfaces for writing point batches to object
// storage backends (S3, GCS, Azure Blob, local filesystem).
package storage

import (
	"context"
	"time"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Writer encodes and stores point batches.
type Writer interface {
	// Write stores the batch under the directory path and returns the number
	// of bytes written.
	Write(ctx context.Context, batch encoder.Batch, path string) (int64, error)

	// Close closes the writer and releases resources.
	Close() error
}

// Router determines storage paths based on partitioning strategy.
type Router interface {
	// Route returns the directory path for a stream at the given time.
	Route(stream point.Stream, timestamp time.Time) string
}
