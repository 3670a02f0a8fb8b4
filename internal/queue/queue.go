package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/queue"
)

// Ensure implementation satisfies interface at compile time.
var _ queue.DataQueue = (*BufferedPointQueue)(nil)

// maxPrealloc caps the slice capacity reserved up front for a sequence.
const maxPrealloc = 1024

// Config holds the fixed capacities of the two sequences.
type Config struct {
	PointCapacity      int
	MultiFieldCapacity int
}

// signal is a broadcast notification. Waiters take the current channel
// under the queue lock and are released when it is closed.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) wait() <-chan struct{} {
	return s.ch
}

func (s *signal) broadcast() {
	close(s.ch)
	s.ch = make(chan struct{})
}

// sequence is one bounded FIFO. It is guarded by the owning queue's mutex.
type sequence[T any] struct {
	items    []T
	capacity int
	added    *signal
	removed  *signal
}

func newSequence[T any](capacity int) *sequence[T] {
	return &sequence[T]{
		items:    make([]T, 0, min(capacity, maxPrealloc)),
		capacity: capacity,
		added:    newSignal(),
		removed:  newSignal(),
	}
}

// BufferedPointQueue buffers points and multi-field points in two bounded
// FIFO sequences that share the pause and send-forbidden flags.
// A single mutex serializes every mutation, so the order in which sends are
// accepted is the order in which receives return them.
type BufferedPointQueue struct {
	mu            sync.Mutex
	points        *sequence[point.Point]
	multi         *sequence[point.MultiFieldPoint]
	paused        bool
	sendForbidden bool
	stateChanged  *signal
	drained       *signal
}

// New creates a queue with the given capacities.
func New(cfg Config) (*BufferedPointQueue, error) {
	if cfg.PointCapacity <= 0 {
		return nil, fmt.Errorf("%w: point capacity must be positive, got %d", errors.ErrInvalidArgument, cfg.PointCapacity)
	}
	if cfg.MultiFieldCapacity <= 0 {
		return nil, fmt.Errorf("%w: multi-field capacity must be positive, got %d", errors.ErrInvalidArgument, cfg.MultiFieldCapacity)
	}

	return &BufferedPointQueue{
		points:       newSequence[point.Point](cfg.PointCapacity),
		multi:        newSequence[point.MultiFieldPoint](cfg.MultiFieldCapacity),
		stateChanged: newSignal(),
		drained:      newSignal(),
	}, nil
}

// NewWithCapacity creates a queue using the same capacity for both sequences.
func NewWithCapacity(capacity int) (*BufferedPointQueue, error) {
	return New(Config{PointCapacity: capacity, MultiFieldCapacity: capacity})
}

// Send appends p to the point sequence.
func (q *BufferedPointQueue) Send(ctx context.Context, p point.Point) error {
	if p.IsZero() {
		return fmt.Errorf("%w: cannot send empty point", errors.ErrInvalidArgument)
	}
	return send(ctx, q, q.points, p)
}

// SendMultiField appends p to the multi-field sequence.
func (q *BufferedPointQueue) SendMultiField(ctx context.Context, p point.MultiFieldPoint) error {
	if p.IsZero() {
		return fmt.Errorf("%w: cannot send empty multi-field point", errors.ErrInvalidArgument)
	}
	return send(ctx, q, q.multi, p)
}

// TrySend appends p without blocking. It returns ErrQueueFull when the
// point sequence is at capacity or the queue is paused.
func (q *BufferedPointQueue) TrySend(p point.Point) error {
	if p.IsZero() {
		return fmt.Errorf("%w: cannot send empty point", errors.ErrInvalidArgument)
	}
	return trySend(q, q.points, p)
}

// TrySendMultiField is TrySend for the multi-field sequence.
func (q *BufferedPointQueue) TrySendMultiField(p point.MultiFieldPoint) error {
	if p.IsZero() {
		return fmt.Errorf("%w: cannot send empty multi-field point", errors.ErrInvalidArgument)
	}
	return trySend(q, q.multi, p)
}

// Receive removes and returns the oldest point, waiting for one if necessary.
func (q *BufferedPointQueue) Receive(ctx context.Context) (point.Point, error) {
	p, _, err := receive(ctx, q, q.points, 0, false)
	return p, err
}

// ReceiveTimeout removes and returns the oldest point, waiting at most
// timeout. A zero timeout polls without waiting.
func (q *BufferedPointQueue) ReceiveTimeout(ctx context.Context, timeout time.Duration) (point.Point, bool, error) {
	return receive(ctx, q, q.points, timeout, true)
}

// ReceiveMultiField removes and returns the oldest multi-field point.
func (q *BufferedPointQueue) ReceiveMultiField(ctx context.Context) (point.MultiFieldPoint, error) {
	p, _, err := receive(ctx, q, q.multi, 0, false)
	return p, err
}

// ReceiveMultiFieldTimeout is ReceiveTimeout for the multi-field sequence.
func (q *BufferedPointQueue) ReceiveMultiFieldTimeout(ctx context.Context, timeout time.Duration) (point.MultiFieldPoint, bool, error) {
	return receive(ctx, q, q.multi, timeout, true)
}

// GetPoints removes and returns all buffered points.
// The returned slice is owned by the caller.
func (q *BufferedPointQueue) GetPoints() []point.Point {
	return drain(q, q.points)
}

// GetMultiFieldPoints removes and returns all buffered multi-field points.
func (q *BufferedPointQueue) GetMultiFieldPoints() []point.MultiFieldPoint {
	return drain(q, q.multi)
}

// ForbidSend makes every blocked and future send fail with ErrQueueClosed.
func (q *BufferedPointQueue) ForbidSend() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sendForbidden {
		return
	}
	q.sendForbidden = true
	q.stateChanged.broadcast()
}

// WaitEmpty blocks until both sequences are empty at the same time.
// Call it after ForbidSend, otherwise producers may keep it waiting.
func (q *BufferedPointQueue) WaitEmpty(ctx context.Context) error {
	q.mu.Lock()
	for {
		if q.isEmptyLocked() {
			q.mu.Unlock()
			return nil
		}
		wake := q.drained.wait()
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errors.ErrCancelled, ctx.Err())
		}
		q.mu.Lock()
	}
}

// IsEmpty reports whether both sequences are empty. The answer may be stale
// by the time the caller acts on it.
func (q *BufferedPointQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isEmptyLocked()
}

// Pause makes subsequent sends block until Unpause.
func (q *BufferedPointQueue) Pause() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paused = true
}

// Unpause releases every producer blocked by Pause.
func (q *BufferedPointQueue) Unpause() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.paused {
		return
	}
	q.paused = false
	q.stateChanged.broadcast()
}

// Stats returns current occupancy and flags.
func (q *BufferedPointQueue) Stats() queue.Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	return queue.Stats{
		Points:             len(q.points.items),
		PointCapacity:      q.points.capacity,
		MultiField:         len(q.multi.items),
		MultiFieldCapacity: q.multi.capacity,
		Paused:             q.paused,
		SendForbidden:      q.sendForbidden,
	}
}

func (q *BufferedPointQueue) isEmptyLocked() bool {
	return len(q.points.items) == 0 && len(q.multi.items) == 0
}

// removedLocked notifies waiters after items left seq.
func (q *BufferedPointQueue) removedLocked(removed *signal) {
	removed.broadcast()
	if q.isEmptyLocked() {
		q.drained.broadcast()
	}
}

func send[T any](ctx context.Context, q *BufferedPointQueue, seq *sequence[T], item T) error {
	q.mu.Lock()
	for {
		if q.sendForbidden {
			q.mu.Unlock()
			return errors.ErrQueueClosed
		}
		if !q.paused && len(seq.items) < seq.capacity {
			seq.items = append(seq.items, item)
			seq.added.broadcast()
			q.mu.Unlock()
			return nil
		}

		stateCh := q.stateChanged.wait()
		removedCh := seq.removed.wait()
		q.mu.Unlock()

		select {
		case <-stateCh:
		case <-removedCh:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", errors.ErrCancelled, ctx.Err())
		}
		q.mu.Lock()
	}
}

func trySend[T any](q *BufferedPointQueue, seq *sequence[T], item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.sendForbidden {
		return errors.ErrQueueClosed
	}
	if q.paused {
		return fmt.Errorf("%w: queue is paused", errors.ErrQueueFull)
	}
	if len(seq.items) >= seq.capacity {
		return fmt.Errorf("%w: capacity %d reached", errors.ErrQueueFull, seq.capacity)
	}
	seq.items = append(seq.items, item)
	seq.added.broadcast()
	return nil
}

func receive[T any](ctx context.Context, q *BufferedPointQueue, seq *sequence[T], timeout time.Duration, bounded bool) (T, bool, error) {
	var zero T
	if bounded && timeout < 0 {
		return zero, false, fmt.Errorf("%w: negative timeout %v", errors.ErrInvalidArgument, timeout)
	}

	var expired <-chan time.Time
	if bounded && timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	q.mu.Lock()
	for {
		if len(seq.items) > 0 {
			item := seq.items[0]
			seq.items[0] = zero
			seq.items = seq.items[1:]
			q.removedLocked(seq.removed)
			q.mu.Unlock()
			return item, true, nil
		}
		if bounded && timeout == 0 {
			q.mu.Unlock()
			return zero, false, nil
		}

		addedCh := seq.added.wait()
		q.mu.Unlock()

		select {
		case <-addedCh:
		case <-expired:
			return zero, false, nil
		case <-ctx.Done():
			return zero, false, fmt.Errorf("%w: %w", errors.ErrCancelled, ctx.Err())
		}
		q.mu.Lock()
	}
}

func drain[T any](q *BufferedPointQueue, seq *sequence[T]) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(seq.items) == 0 {
		return nil
	}
	items := seq.items
	seq.items = make([]T, 0, min(seq.capacity, maxPrealloc))
	q.removedLocked(seq.removed)
	return items
}
