// Package dispatcher drains a BufferedPointQueue in batches and writes them
// to a sink.
//
// # Batching
//
// Each stream gets its own worker goroutines. A worker collects points with
// ReceiveTimeout until the FlushPolicy says the batch is full or old enough,
// then writes it.
//
// # Retries and Backpressure
//
// Retryable sink errors are retried with exponential backoff. A backpressure
// error pauses the queue; it is unpaused once PauseDuration passes without a
// further backpressure signal.
//
// # Shutdown
//
// Stop cancels the workers, writes their partial batches and then drains
// whatever is left in the queue with bulk extraction.
package dispatcher
