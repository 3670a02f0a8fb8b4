// Package sink defines the transport contract between the dispatcher and
// the remote time-series store.
package sink

import (
	"context"

	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Sink delivers batches of points to the remote store.
// Implementations must be safe for concurrent use by dispatcher workers.
type Sink interface {
	// WritePoints delivers a batch of single-field points.
	// Errors matching ErrBackpressure ask the caller to slow producers down.
	WritePoints(ctx context.Context, points []point.Point) error

	// WriteMultiFieldPoints delivers a batch of multi-field points.
	WriteMultiFieldPoints(ctx context.Context, points []point.MultiFieldPoint) error

	// Name identifies the sink in logs and metrics.
	Name() string

	// Close releases connections. Writes after Close fail with ErrSinkClosed.
	Close() error
}
