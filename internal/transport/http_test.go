package transport

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

func testPoints(t *testing.T) []point.Point {
	t.Helper()
	p1, _ := point.New("sys.cpu.user", time.UnixMilli(1700000000000), 42.5, map[string]string{"host": "web-1"})
	p2, _ := point.New("sys.cpu.user", time.UnixMilli(1700000001000), 43, map[string]string{"host": "web-1"})
	return []point.Point{p1, p2}
}

func newTestSink(t *testing.T, handler http.HandlerFunc) *HTTPSink {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewHTTPSink(Config{Address: server.URL + "/", Timeout: 2 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}
	return s
}

func TestNewHTTPSink_InvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "localhost:4242", "ftp://host", "http://[::1"} {
		if _, err := NewHTTPSink(Config{Address: addr}, zap.NewNop()); !stderrors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("NewHTTPSink(%q) error = %v, want ErrInvalidArgument", addr, err)
		}
	}
}

func TestHTTPSink_WritePoints(t *testing.T) {
	var got []map[string]any
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != PutPath {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("body is not a JSON array: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := s.WritePoints(context.Background(), testPoints(t)); err != nil {
		t.Fatalf("WritePoints() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("received %d points, want 2", len(got))
	}
	if got[0]["metric"] != "sys.cpu.user" || got[0]["value"] != 42.5 || got[0]["timestamp"] != float64(1700000000000) {
		t.Errorf("point = %v", got[0])
	}
}

func TestHTTPSink_WriteMultiFieldPoints(t *testing.T) {
	var path string
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	p, _ := point.NewMultiField("disk", time.UnixMilli(1700000000000), map[string]float64{"used": 1}, nil)
	if err := s.WriteMultiFieldPoints(context.Background(), []point.MultiFieldPoint{p}); err != nil {
		t.Fatalf("WriteMultiFieldPoints() error = %v", err)
	}
	if path != MPutPath {
		t.Errorf("path = %s, want %s", path, MPutPath)
	}
}

func TestHTTPSink_StatusMapping(t *testing.T) {
	tests := []struct {
		name             string
		status           int
		wantRetryable    bool
		wantBackpressure bool
	}{
		{"too many requests", http.StatusTooManyRequests, true, true},
		{"service unavailable", http.StatusServiceUnavailable, true, true},
		{"internal error", http.StatusInternalServerError, true, false},
		{"bad gateway", http.StatusBadGateway, true, false},
		{"bad request", http.StatusBadRequest, false, false},
		{"not found", http.StatusNotFound, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "rejected", tt.status)
			})

			err := s.WritePoints(context.Background(), testPoints(t))
			var transportErr *errors.TransportError
			if !stderrors.As(err, &transportErr) {
				t.Fatalf("error = %v, want TransportError", err)
			}
			if transportErr.StatusCode != tt.status || transportErr.Body != "rejected" {
				t.Errorf("TransportError = %+v", transportErr)
			}
			if got := errors.IsRetryable(err); got != tt.wantRetryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.wantRetryable)
			}
			if got := errors.IsBackpressure(err); got != tt.wantBackpressure {
				t.Errorf("IsBackpressure() = %v, want %v", got, tt.wantBackpressure)
			}
		})
	}
}

func TestHTTPSink_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	s, err := NewHTTPSink(Config{Address: addr, Timeout: time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHTTPSink() error = %v", err)
	}

	err = s.WritePoints(context.Background(), testPoints(t))
	if !stderrors.Is(err, errors.ErrConnectionLost) {
		t.Errorf("error = %v, want ErrConnectionLost", err)
	}
	if !errors.IsRetryable(err) {
		t.Error("connection failures should be retryable")
	}
}

func TestHTTPSink_Cancelled(t *testing.T) {
	release := make(chan struct{})
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	// Runs before the server's cleanup so Close never waits on the handler.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := s.WritePoints(ctx, testPoints(t)); !stderrors.Is(err, errors.ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
}

func TestHTTPSink_EmptyAndClosed(t *testing.T) {
	var calls atomic.Int32
	s := newTestSink(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	})

	if err := s.WritePoints(context.Background(), nil); err != nil {
		t.Errorf("WritePoints(nil) error = %v", err)
	}
	if calls.Load() != 0 {
		t.Error("empty batch should not be sent")
	}

	if s.Name() != "http" {
		t.Errorf("Name() = %s", s.Name())
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.WritePoints(context.Background(), testPoints(t)); !stderrors.Is(err, errors.ErrSinkClosed) {
		t.Errorf("write after close error = %v, want ErrSinkClosed", err)
	}
}
