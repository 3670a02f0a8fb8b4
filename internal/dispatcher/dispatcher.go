package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/queue"
	"github.com/jittakal/tsdbbuffer/pkg/sink"
)

const (
	defaultFlushInterval = time.Second
	defaultPauseDuration = 5 * time.Second
)

// MetricsCollector defines metrics operations for the dispatcher.
type MetricsCollector interface {
	IncBatchesWritten(sink, stream, status string)
	ObserveBatchSize(stream string, size int)
	ObserveSinkWriteDuration(sink, stream string, duration float64)
	IncSinkRetries(sink, stream string)
	IncPointsDropped(sink, stream string, n int)
	IncBackpressurePauses(sink string)
}

// RetryConfig controls retries of failed sink writes.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	EnableJitter   bool
}

// Config holds dispatcher settings.
type Config struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	PauseDuration time.Duration
	Retry         RetryConfig
}

// Dispatcher moves points from a queue to a sink.
type Dispatcher struct {
	queue   queue.DataQueue
	sink    sink.Sink
	cfg     Config
	policy  FlushPolicy
	logger  *zap.Logger
	metrics MetricsCollector

	wg          sync.WaitGroup
	cancel      context.CancelFunc
	writeCtx    context.Context
	writeCancel context.CancelFunc

	pauseMu    sync.Mutex
	paused     bool
	pauseGen   uint64
	pauseTimer *time.Timer
}

// New creates a dispatcher. Workers and BatchSize below one are raised to one.
func New(q queue.DataQueue, s sink.Sink, cfg Config, logger *zap.Logger, metrics MetricsCollector) *Dispatcher {
	cfg.Workers = max(cfg.Workers, 1)
	cfg.BatchSize = max(cfg.BatchSize, 1)
	cfg.Retry.MaxAttempts = max(cfg.Retry.MaxAttempts, 1)
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.PauseDuration <= 0 {
		cfg.PauseDuration = defaultPauseDuration
	}

	writeCtx, writeCancel := context.WithCancel(context.Background())

	return &Dispatcher{
		queue:       q,
		sink:        s,
		cfg:         cfg,
		policy:      NewFlushPolicy(cfg.BatchSize, cfg.FlushInterval),
		logger:      logger.With(zap.String("sink", s.Name())),
		metrics:     metrics,
		writeCtx:    writeCtx,
		writeCancel: writeCancel,
	}
}

// Start launches the workers. They run until ctx is cancelled or Stop is called.
func (d *Dispatcher) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(2)
		go func() {
			defer d.wg.Done()
			run(runCtx, d, point.StreamPoints, d.queue.ReceiveTimeout, d.sink.WritePoints)
		}()
		go func() {
			defer d.wg.Done()
			run(runCtx, d, point.StreamMultiField, d.queue.ReceiveMultiFieldTimeout, d.sink.WriteMultiFieldPoints)
		}()
	}

	d.logger.Info("dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Duration("flush_interval", d.cfg.FlushInterval),
	)
}

// Stop cancels the workers, writes their pending batches and flushes
// whatever remains in the queue. If ctx expires first, in-flight writes are
// cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		d.writeCancel()
		<-done
		d.stopBackpressure()
		return fmt.Errorf("dispatcher stop: %w", ctx.Err())
	}

	d.stopBackpressure()
	err := d.Flush(ctx)
	d.writeCancel()

	d.logger.Info("dispatcher stopped")
	return err
}

// Flush writes everything currently buffered in the queue, in chunks of
// BatchSize.
func (d *Dispatcher) Flush(ctx context.Context) error {
	var result *multierror.Error

	points := d.queue.GetPoints()
	for _, chunk := range chunks(points, d.cfg.BatchSize) {
		if err := deliver(ctx, d, point.StreamPoints, chunk, d.sink.WritePoints); err != nil {
			result = multierror.Append(result, err)
		}
	}

	multi := d.queue.GetMultiFieldPoints()
	for _, chunk := range chunks(multi, d.cfg.BatchSize) {
		if err := deliver(ctx, d, point.StreamMultiField, chunk, d.sink.WriteMultiFieldPoints); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if len(points)+len(multi) > 0 {
		d.logger.Info("flushed queue",
			zap.Int("points", len(points)),
			zap.Int("multi_field_points", len(multi)),
		)
	}
	return result.ErrorOrNil()
}

func run[T any](
	ctx context.Context,
	d *Dispatcher,
	stream point.Stream,
	receive func(context.Context, time.Duration) (T, bool, error),
	write func(context.Context, []T) error,
) {
	batch := make([]T, 0, d.cfg.BatchSize)
	var firstAt time.Time

	for {
		item, ok, err := receive(ctx, d.policy.Wait(len(batch), firstAt, time.Now()))
		if err != nil {
			// Cancelled: hand the partial batch to the sink before exiting.
			_ = deliver(d.writeCtx, d, stream, batch, write)
			return
		}

		now := time.Now()
		if ok {
			if len(batch) == 0 {
				firstAt = now
			}
			batch = append(batch, item)
		}

		if d.policy.ShouldFlush(len(batch), firstAt, now) {
			_ = deliver(d.writeCtx, d, stream, batch, write)
			batch = make([]T, 0, d.cfg.BatchSize)
		}
	}
}

// deliver writes one batch with retries. A batch that still fails is dropped
// and reported as a DispatchError.
func deliver[T any](
	ctx context.Context,
	d *Dispatcher,
	stream point.Stream,
	batch []T,
	write func(context.Context, []T) error,
) error {
	if len(batch) == 0 {
		return nil
	}

	batchID := uuid.NewString()
	sinkName := d.sink.Name()
	start := time.Now()

	err := retry.Do(
		func() error {
			err := write(ctx, batch)
			if errors.IsBackpressure(err) {
				d.applyBackpressure()
			}
			return err
		},
		d.retryOptions(ctx, stream, batchID)...,
	)

	if d.metrics != nil {
		d.metrics.ObserveSinkWriteDuration(sinkName, string(stream), time.Since(start).Seconds())
		d.metrics.ObserveBatchSize(string(stream), len(batch))
	}

	if err != nil {
		if d.metrics != nil {
			d.metrics.IncBatchesWritten(sinkName, string(stream), "failed")
			d.metrics.IncPointsDropped(sinkName, string(stream), len(batch))
		}
		dispatchErr := &errors.DispatchError{
			Sink:    sinkName,
			Stream:  string(stream),
			BatchID: batchID,
			Size:    len(batch),
			Err:     err,
		}
		d.logger.Error("dropping batch after failed write",
			zap.String("batch_id", batchID),
			zap.String("stream", string(stream)),
			zap.Int("size", len(batch)),
			zap.Error(err),
		)
		return dispatchErr
	}

	if d.metrics != nil {
		d.metrics.IncBatchesWritten(sinkName, string(stream), "success")
	}
	d.logger.Debug("batch written",
		zap.String("batch_id", batchID),
		zap.String("stream", string(stream)),
		zap.Int("size", len(batch)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (d *Dispatcher) retryOptions(ctx context.Context, stream point.Stream, batchID string) []retry.Option {
	delayType := retry.BackOffDelay
	if d.cfg.Retry.EnableJitter {
		delayType = retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)
	}

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(d.cfg.Retry.MaxAttempts)),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
		retry.RetryIf(errors.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			if d.metrics != nil {
				d.metrics.IncSinkRetries(d.sink.Name(), string(stream))
			}
			d.logger.Warn("sink write failed",
				zap.String("batch_id", batchID),
				zap.String("stream", string(stream)),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	}
	if d.cfg.Retry.InitialBackoff > 0 {
		opts = append(opts, retry.Delay(d.cfg.Retry.InitialBackoff), retry.MaxJitter(d.cfg.Retry.InitialBackoff))
	}
	if d.cfg.Retry.MaxBackoff > 0 {
		opts = append(opts, retry.MaxDelay(d.cfg.Retry.MaxBackoff))
	}
	return opts
}

// applyBackpressure pauses the queue and (re)arms the unpause timer.
func (d *Dispatcher) applyBackpressure() {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	d.pauseGen++
	gen := d.pauseGen

	if !d.paused {
		d.paused = true
		d.queue.Pause()
		if d.metrics != nil {
			d.metrics.IncBackpressurePauses(d.sink.Name())
		}
		d.logger.Warn("sink signalled backpressure, pausing producers",
			zap.Duration("pause_duration", d.cfg.PauseDuration),
		)
	}

	if d.pauseTimer != nil {
		d.pauseTimer.Stop()
	}
	d.pauseTimer = time.AfterFunc(d.cfg.PauseDuration, func() { d.resume(gen) })
}

func (d *Dispatcher) resume(gen uint64) {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	if gen != d.pauseGen || !d.paused {
		return
	}
	d.paused = false
	d.pauseTimer = nil
	d.queue.Unpause()
	d.logger.Info("backpressure cleared, producers resumed")
}

func (d *Dispatcher) stopBackpressure() {
	d.pauseMu.Lock()
	defer d.pauseMu.Unlock()

	d.pauseGen++
	if d.pauseTimer != nil {
		d.pauseTimer.Stop()
		d.pauseTimer = nil
	}
	if d.paused {
		d.paused = false
		d.queue.Unpause()
	}
}

func chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > 0 {
		n := min(size, len(items))
		out = append(out, items[:n:n])
		items = items[n:]
	}
	return out
}
