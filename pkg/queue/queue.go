// Package queue defines the contract between point producers and the
// dispatcher that drains buffered points to the remote store.
package queue

import (
	"context"
	"time"

	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// DataQueue buffers single-field and multi-field points in two independent
// FIFO sequences. All implementations must be thread-safe.
type DataQueue interface {
	// Send appends a point, blocking while the queue is paused or the point
	// sequence is full. Returns ErrQueueClosed once sending is forbidden.
	Send(ctx context.Context, p point.Point) error

	// SendMultiField is Send for the multi-field sequence.
	SendMultiField(ctx context.Context, p point.MultiFieldPoint) error

	// Receive removes the oldest point, blocking until one is available.
	// Returns ErrCancelled if ctx ends first.
	Receive(ctx context.Context) (point.Point, error)

	// ReceiveTimeout is Receive bounded by timeout. It reports false without
	// an error when the timeout elapses with no point available.
	ReceiveTimeout(ctx context.Context, timeout time.Duration) (point.Point, bool, error)

	// ReceiveMultiField is Receive for the multi-field sequence.
	ReceiveMultiField(ctx context.Context) (point.MultiFieldPoint, error)

	// ReceiveMultiFieldTimeout is ReceiveTimeout for the multi-field sequence.
	ReceiveMultiFieldTimeout(ctx context.Context, timeout time.Duration) (point.MultiFieldPoint, bool, error)

	// GetPoints atomically removes and returns every buffered point in FIFO order.
	GetPoints() []point.Point

	// GetMultiFieldPoints atomically removes and returns every buffered
	// multi-field point in FIFO order.
	GetMultiFieldPoints() []point.MultiFieldPoint

	// ForbidSend permanently rejects further sends. Buffered points remain
	// retrievable.
	ForbidSend()

	// WaitEmpty blocks until both sequences are empty.
	WaitEmpty(ctx context.Context) error

	// IsEmpty reports whether both sequences are currently empty.
	IsEmpty() bool

	// Pause blocks subsequent sends until Unpause is called.
	Pause()

	// Unpause releases producers blocked by Pause.
	Unpause()
}

// Stats is a point-in-time view of queue occupancy and control flags.
type Stats struct {
	Points             int  `json:"points"`
	PointCapacity      int  `json:"point_capacity"`
	MultiField         int  `json:"multi_field"`
	MultiFieldCapacity int  `json:"multi_field_capacity"`
	Paused             bool `json:"paused"`
	SendForbidden      bool `json:"send_forbidden"`
}
