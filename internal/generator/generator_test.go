package generator

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/internal/queue"
	"github.com/jittakal/tsdbbuffer/internal/validator"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

type recordingMetrics struct {
	mu       sync.Mutex
	accepted map[string]int
}

func (m *recordingMetrics) IncPointsAccepted(stream, source string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accepted == nil {
		m.accepted = make(map[string]int)
	}
	m.accepted[stream+"/"+source] += n
}

func TestNew_Defaults(t *testing.T) {
	g := New(Config{}, nil, zap.NewNop(), nil)
	if g.cfg.Interval != time.Second {
		t.Errorf("Interval = %v, want 1s", g.cfg.Interval)
	}
	if len(g.hosts) != 1 {
		t.Errorf("hosts = %d, want 1", len(g.hosts))
	}
}

func TestGenerator_SampleIsValid(t *testing.T) {
	g := New(Config{Hosts: 4}, nil, zap.NewNop(), nil)
	v := validator.NewPointValidator(validator.Config{MinTags: 1})
	now := time.Now()

	points, multi := g.Sample(now)

	if len(points) != 4*3 {
		t.Errorf("points = %d, want 12", len(points))
	}
	if len(multi) != 4*(2+len(mounts)) {
		t.Errorf("multi-field points = %d, want %d", len(multi), 4*(2+len(mounts)))
	}

	for _, p := range points {
		if err := v.Validate(p); err != nil {
			t.Errorf("invalid point %s: %v", p, err)
		}
		if !p.Timestamp().Equal(now) {
			t.Errorf("timestamp = %v, want %v", p.Timestamp(), now)
		}
	}
	for _, p := range multi {
		if err := v.ValidateMultiField(p); err != nil {
			t.Errorf("invalid multi-field point %s: %v", p, err)
		}
	}
}

func TestGenerator_NetworkCountersIncrease(t *testing.T) {
	g := New(Config{Hosts: 1}, nil, zap.NewNop(), nil)

	rx := func(multi []point.MultiFieldPoint) float64 {
		for _, p := range multi {
			if p.Metric() == "sys.net" {
				v, _ := p.Field("rx_bytes")
				return v
			}
		}
		t.Fatal("no sys.net point")
		return 0
	}

	_, first := g.Sample(time.Now())
	_, second := g.Sample(time.Now())
	if rx(second) <= rx(first) {
		t.Errorf("rx_bytes did not increase: %v -> %v", rx(first), rx(second))
	}
}

func TestGenerator_RunProducesIntoQueue(t *testing.T) {
	q, err := queue.NewWithCapacity(1000)
	if err != nil {
		t.Fatalf("queue.NewWithCapacity() error = %v", err)
	}
	metrics := &recordingMetrics{}
	g := New(Config{Hosts: 2, Interval: 10 * time.Millisecond}, q, zap.NewNop(), metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for q.Stats().Points == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	stats := q.Stats()
	if stats.Points == 0 || stats.MultiField == 0 {
		t.Errorf("stats = %+v, want both streams populated", stats)
	}
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.accepted["points/generator"] == 0 {
		t.Errorf("accepted = %v", metrics.accepted)
	}
}

func TestGenerator_StopsWhenQueueClosed(t *testing.T) {
	q, err := queue.NewWithCapacity(100)
	if err != nil {
		t.Fatalf("queue.NewWithCapacity() error = %v", err)
	}
	q.ForbidSend()

	g := New(Config{Hosts: 1, Interval: 5 * time.Millisecond}, q, zap.NewNop(), nil)

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop after ForbidSend")
	}

	if err := q.Send(context.Background(), mustPoint(point.New("m", time.Now(), 1, nil))); err != errors.ErrQueueClosed {
		t.Errorf("Send() error = %v, want ErrQueueClosed", err)
	}
}
