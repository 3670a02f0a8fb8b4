// Package queue provides the bounded, thread-safe point buffer that sits
// between producers and the dispatcher.
//
// # BufferedPointQueue
//
// BufferedPointQueue holds two independent FIFO sequences, one for Point and
// one for MultiFieldPoint, each with its own fixed capacity:
//
//	q, err := queue.New(queue.Config{PointCapacity: 10000, MultiFieldCapacity: 5000})
//
// Producers block in Send while the matching sequence is full or while the
// queue is paused. Consumers block in Receive until a point arrives, or use
// ReceiveTimeout to bound the wait:
//
//	if err := q.Send(ctx, p); err != nil {
//	    if errors.Is(err, errors.ErrQueueClosed) {
//	        // shutting down
//	    }
//	}
//
//	p, ok, err := q.ReceiveTimeout(ctx, 100*time.Millisecond)
//
// # Bulk Extraction
//
// GetPoints and GetMultiFieldPoints remove everything buffered in one step.
// No point is returned twice and none is lost to a concurrent Receive.
//
//	batch := q.GetPoints()
//
// # Flow Control
//
// Pause stops new points from entering without affecting consumers, which is
// how the dispatcher applies backpressure when the remote store is
// overloaded. Unpause releases every blocked producer.
//
// # Shutdown
//
//  1. ForbidSend: blocked and future sends fail with ErrQueueClosed
//  2. WaitEmpty: consumers drain what is left
//
// # Thread Safety
//
// All operations are safe for concurrent use. A single mutex guards both
// sequences and the control flags; waits are channel based so they honor
// context cancellation.
package queue
