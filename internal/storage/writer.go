// Package storage writes encoded point batches to the local filesystem and
// to object storage (S3, GCS, Azure Blob).
package storage

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
)

// MetricsCollector defines metrics operations for storage.
type MetricsCollector interface {
	IncFilesWritten(stream, format, status string)
	ObserveFileSize(stream, format string, size float64)
	ObserveFileWriteDuration(backend, format string, duration float64)
	IncStorageErrors(backend, operation string)
}

// fileNamer generates unique file names of the form
// <stream>_YYYYMMDD_HHMMSS_NNN<ext>. The sequence restarts every second.
type fileNamer struct {
	mu       sync.Mutex
	lastTime string
	sequence int
	now      func() time.Time
}

func newFileNamer() *fileNamer {
	return &fileNamer{now: time.Now}
}

func (n *fileNamer) next(stream, ext string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	ts := n.now().UTC().Format("20060102_150405")
	if ts == n.lastTime {
		n.sequence++
	} else {
		n.sequence = 1
		n.lastTime = ts
	}
	return fmt.Sprintf("%s_%s_%03d%s", stream, ts, n.sequence, ext)
}

// objectKey strips the scheme and bucket from a routed path.
// "s3://bucket/base/points/dt=2025-01-02/" becomes "base/points/dt=2025-01-02/".
func objectKey(path, scheme string) string {
	prefix := scheme + "://"
	if !strings.HasPrefix(path, prefix) {
		return strings.TrimPrefix(path, "/")
	}

	parts := strings.SplitN(strings.TrimPrefix(path, prefix), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimPrefix(parts[1], "/")
}

// encodeTemp encodes the batch into a temporary file. The caller removes it.
func encodeTemp(enc encoder.Encoder, batch encoder.Batch, backend string) (string, *encoder.FileStats, error) {
	f, err := os.CreateTemp("", backend+"-upload-*"+enc.FileExtension())
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	name := f.Name()
	f.Close()

	stats, err := enc.Encode(name, batch)
	if err != nil {
		os.Remove(name)
		return "", nil, err
	}
	return name, stats, nil
}

func contentType(format encoder.Format) string {
	if format == encoder.FormatAvro {
		return "application/avro"
	}
	return "application/octet-stream"
}
