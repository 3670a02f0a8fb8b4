// Package encoder defines interfaces for encoding point batches to
// columnar and row-based file formats.
package encoder

import (
	"time"

	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Format is a supported output file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

// Batch is a set of points from one stream. Exactly one of Points and
// MultiField is populated, matching Stream.
type Batch struct {
	Stream     point.Stream
	Points     []point.Point
	MultiField []point.MultiFieldPoint
}

// PointBatch wraps single-field points.
func PointBatch(points []point.Point) Batch {
	return Batch{Stream: point.StreamPoints, Points: points}
}

// MultiFieldBatch wraps multi-field points.
func MultiFieldBatch(points []point.MultiFieldPoint) Batch {
	return Batch{Stream: point.StreamMultiField, MultiField: points}
}

// Len returns the number of points in the batch.
func (b Batch) Len() int {
	if b.Stream == point.StreamMultiField {
		return len(b.MultiField)
	}
	return len(b.Points)
}

// FirstTimestamp returns the timestamp of the first point, or the zero time
// for an empty batch.
func (b Batch) FirstTimestamp() time.Time {
	switch {
	case b.Stream == point.StreamMultiField && len(b.MultiField) > 0:
		return b.MultiField[0].Timestamp()
	case b.Stream != point.StreamMultiField && len(b.Points) > 0:
		return b.Points[0].Timestamp()
	default:
		return time.Time{}
	}
}

// FileStats describes an encoded file.
type FileStats struct {
	RecordCount int
	SizeBytes   int64
}

// Encoder encodes batches to a specific file format.
type Encoder interface {
	// Encode writes the batch to a file and returns file statistics.
	Encode(filePath string, batch Batch) (*FileStats, error)

	// Format returns the file format this encoder produces.
	Format() Format

	// FileExtension returns the file extension (e.g., ".parquet", ".avro").
	FileExtension() string
}
