package storage

import (
	"context"

	"github.com/jittakal/tsdbbuffer/pkg/encoder"
	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/sink"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*Sink)(nil)

// Sink writes each batch as one file through a storage writer. The file
// location is chosen by the router from the batch's first timestamp.
type Sink struct {
	writer storage.Writer
	router storage.Router
}

// NewSink creates a storage sink.
func NewSink(writer storage.Writer, router storage.Router) *Sink {
	return &Sink{writer: writer, router: router}
}

// WritePoints encodes and stores a batch of points.
func (s *Sink) WritePoints(ctx context.Context, points []point.Point) error {
	return s.write(ctx, encoder.PointBatch(points))
}

// WriteMultiFieldPoints encodes and stores a batch of multi-field points.
func (s *Sink) WriteMultiFieldPoints(ctx context.Context, points []point.MultiFieldPoint) error {
	return s.write(ctx, encoder.MultiFieldBatch(points))
}

func (s *Sink) write(ctx context.Context, batch encoder.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	_, err := s.writer.Write(ctx, batch, s.router.Route(batch.Stream, batch.FirstTimestamp()))
	return err
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return "storage"
}

// Close closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}
