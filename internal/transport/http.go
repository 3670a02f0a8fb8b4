// Package transport implements the HTTP sink that writes point batches to a
// remote time-series store.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/sink"
)

// Ensure implementation satisfies interface at compile time.
var _ sink.Sink = (*HTTPSink)(nil)

const (
	PutPath  = "/api/put"
	MPutPath = "/api/mput"

	maxErrorBody = 1024
)

// Config contains remote store endpoint settings.
type Config struct {
	Address      string
	Timeout      time.Duration
	MaxIdleConns int
}

// HTTPSink posts JSON arrays of points to the remote store.
//
// Responses map to errors as follows: 2xx succeeds, 429 and 503 signal
// backpressure, other 5xx and network failures are retryable, and 4xx are
// permanent.
type HTTPSink struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	closed  atomic.Bool
}

// NewHTTPSink creates a new HTTP sink.
func NewHTTPSink(cfg Config, logger *zap.Logger) (*HTTPSink, error) {
	u, err := url.Parse(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %v", errors.ErrInvalidArgument, cfg.Address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: address %q must use http or https", errors.ErrInvalidArgument, cfg.Address)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
	}

	logger.Info("HTTP sink created",
		zap.String("address", cfg.Address),
		zap.Duration("timeout", cfg.Timeout),
	)

	return &HTTPSink{
		client:  &http.Client{Transport: transport, Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.Address, "/"),
		logger:  logger,
	}, nil
}

// WritePoints posts points to /api/put.
func (s *HTTPSink) WritePoints(ctx context.Context, points []point.Point) error {
	if len(points) == 0 {
		return nil
	}
	return s.post(ctx, PutPath, points)
}

// WriteMultiFieldPoints posts multi-field points to /api/mput.
func (s *HTTPSink) WriteMultiFieldPoints(ctx context.Context, points []point.MultiFieldPoint) error {
	if len(points) == 0 {
		return nil
	}
	return s.post(ctx, MPutPath, points)
}

func (s *HTTPSink) post(ctx context.Context, path string, payload any) error {
	if s.closed.Load() {
		return errors.ErrSinkClosed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", errors.ErrCancelled, ctx.Err())
		}
		return &errors.TransportError{
			Endpoint: path,
			Err:      fmt.Errorf("%w: %v", errors.ErrConnectionLost, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	transportErr := &errors.TransportError{
		Endpoint:   path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(respBody)),
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		transportErr.Err = errors.ErrBackpressure
	}

	s.logger.Debug("remote store rejected batch",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.String("body", transportErr.Body),
	)
	return transportErr
}

// Name returns the sink name.
func (s *HTTPSink) Name() string {
	return "http"
}

// Close rejects further writes and releases idle connections.
func (s *HTTPSink) Close() error {
	s.closed.Store(true)
	s.client.CloseIdleConnections()
	s.logger.Info("HTTP sink closed")
	return nil
}
