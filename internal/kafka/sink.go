// Package kafka implements a sink that publishes points to Kafka as
// CloudEvents.
package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/config/dto"
	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*Sink)(nil)

// CloudEvent types for published points.
const (
	PointEventType      = "io.tsdbbuffer.point.v1"
	MultiFieldEventType = "io.tsdbbuffer.multifield.v1"
)

// MetricsCollector defines metrics operations for the Kafka sink.
type MetricsCollector interface {
	IncMessagesProduced(topic, status string, n int)
}

// Sink publishes one CloudEvent per point, keyed by metric name so a series
// always lands on the same partition.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
	source   string
	logger   *zap.Logger
	metrics  MetricsCollector
	closed   atomic.Bool
}

// NewSink connects a synchronous producer to the configured brokers.
func NewSink(cfg dto.KafkaConfig, source string, logger *zap.Logger, metrics MetricsCollector) (*Sink, error) {
	saramaConfig, err := newSaramaConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	logger.Info("Kafka sink created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.String("security_protocol", cfg.SecurityProtocol),
	)

	return newSinkWithProducer(producer, cfg.Topic, source, logger, metrics), nil
}

func newSinkWithProducer(producer sarama.SyncProducer, topic, source string, logger *zap.Logger, metrics MetricsCollector) *Sink {
	return &Sink{
		producer: producer,
		topic:    topic,
		source:   source,
		logger:   logger,
		metrics:  metrics,
	}
}

// WritePoints publishes a batch of points.
func (s *Sink) WritePoints(ctx context.Context, points []point.Point) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(points))
	for _, p := range points {
		msg, err := s.message(PointEventType, p.Metric(), p.Timestamp(), p)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return s.send(ctx, msgs)
}

// WriteMultiFieldPoints publishes a batch of multi-field points.
func (s *Sink) WriteMultiFieldPoints(ctx context.Context, points []point.MultiFieldPoint) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(points))
	for _, p := range points {
		msg, err := s.message(MultiFieldEventType, p.Metric(), p.Timestamp(), p)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return s.send(ctx, msgs)
}

func (s *Sink) message(eventType, metric string, ts time.Time, data any) (*sarama.ProducerMessage, error) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(s.source)
	event.SetType(eventType)
	event.SetSubject(metric)
	event.SetTime(ts)
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return nil, fmt.Errorf("%w: failed to set event data: %v", errors.ErrInvalidArgument, err)
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CloudEvent: %w", err)
	}

	return &sarama.ProducerMessage{
		Topic:     s.topic,
		Key:       sarama.StringEncoder(metric),
		Value:     sarama.ByteEncoder(eventBytes),
		Timestamp: ts,
		Headers: []sarama.RecordHeader{
			{Key: []byte("ce_specversion"), Value: []byte(event.SpecVersion())},
			{Key: []byte("ce_type"), Value: []byte(event.Type())},
			{Key: []byte("ce_source"), Value: []byte(event.Source())},
			{Key: []byte("ce_id"), Value: []byte(event.ID())},
		},
	}, nil
}

func (s *Sink) send(ctx context.Context, msgs []*sarama.ProducerMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	if s.closed.Load() {
		return errors.ErrSinkClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrCancelled, err)
	}

	if err := s.producer.SendMessages(msgs); err != nil {
		failed := len(msgs)
		var producerErrs sarama.ProducerErrors
		if stderrors.As(err, &producerErrs) {
			failed = len(producerErrs)
		}
		s.record("failed", failed)
		s.record("success", len(msgs)-failed)
		return classify(err)
	}

	s.record("success", len(msgs))
	s.logger.Debug("published points", zap.String("topic", s.topic), zap.Int("count", len(msgs)))
	return nil
}

func (s *Sink) record(status string, n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.IncMessagesProduced(s.topic, status, n)
	}
}

// classify maps broker errors onto the sink error contract. Quota
// throttling becomes ErrBackpressure and broker availability problems
// become ErrConnectionLost.
func classify(err error) error {
	var producerErrs sarama.ProducerErrors
	if stderrors.As(err, &producerErrs) && len(producerErrs) > 0 {
		err = producerErrs[0].Err
	}

	switch {
	case stderrors.Is(err, sarama.ErrThrottlingQuotaExceeded):
		return fmt.Errorf("%w: %v", errors.ErrBackpressure, err)
	case stderrors.Is(err, sarama.ErrOutOfBrokers),
		stderrors.Is(err, sarama.ErrNotConnected),
		stderrors.Is(err, sarama.ErrBrokerNotAvailable),
		stderrors.Is(err, sarama.ErrLeaderNotAvailable),
		stderrors.Is(err, sarama.ErrNotLeaderForPartition),
		stderrors.Is(err, sarama.ErrRequestTimedOut),
		stderrors.Is(err, sarama.ErrNotEnoughReplicas),
		stderrors.Is(err, sarama.ErrNetworkException):
		return fmt.Errorf("%w: %v", errors.ErrConnectionLost, err)
	default:
		return fmt.Errorf("failed to send messages to Kafka: %w", err)
	}
}

// Name returns the sink name.
func (s *Sink) Name() string {
	return "kafka"
}

// Close closes the producer.
func (s *Sink) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.logger.Info("closing Kafka sink")
	return s.producer.Close()
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
