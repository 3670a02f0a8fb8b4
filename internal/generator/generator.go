// Package generator produces synthetic host metrics into the queue.
package generator

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// Producer accepts generated points.
type Producer interface {
	Send(ctx context.Context, p point.Point) error
	SendMultiField(ctx context.Context, p point.MultiFieldPoint) error
}

// MetricsCollector defines metrics operations for the generator.
type MetricsCollector interface {
	IncPointsAccepted(stream, source string, n int)
}

// Config contains generator settings.
type Config struct {
	Interval time.Duration
	Hosts    int
}

var (
	datacenters = []string{"eu-west-1", "eu-central-1", "us-east-1", "us-west-2", "ap-south-1"}
	roles       = []string{"web", "api", "db", "cache", "worker"}
	mounts      = []string{"/", "/var", "/data"}
)

type host struct {
	name    string
	dc      string
	role    string
	rxBytes float64
	txBytes float64
}

// Generator emits one round of samples per host every interval.
type Generator struct {
	cfg      Config
	producer Producer
	faker    faker.Faker
	hosts    []*host
	logger   *zap.Logger
	metrics  MetricsCollector
}

// New creates a generator with cfg.Hosts fake hosts.
func New(cfg Config, producer Producer, logger *zap.Logger, metrics MetricsCollector) *Generator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	cfg.Hosts = max(cfg.Hosts, 1)

	f := faker.New()
	hosts := make([]*host, cfg.Hosts)
	for i := range hosts {
		role := f.RandomStringElement(roles)
		hosts[i] = &host{
			name: fmt.Sprintf("%s-%s-%02d", role, strings.ToLower(f.Lorem().Word()), i+1),
			dc:   f.RandomStringElement(datacenters),
			role: role,
		}
	}

	return &Generator{
		cfg:      cfg,
		producer: producer,
		faker:    f,
		hosts:    hosts,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run produces samples until ctx is cancelled or the queue stops accepting
// points. Both are normal termination and return nil.
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("generator started",
		zap.Int("hosts", len(g.hosts)),
		zap.Duration("interval", g.cfg.Interval),
	)

	ticker := time.NewTicker(g.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("generator stopped")
			return nil
		case now := <-ticker.C:
			if err := g.produce(ctx, now); err != nil {
				if stderrors.Is(err, errors.ErrQueueClosed) || stderrors.Is(err, errors.ErrCancelled) {
					g.logger.Info("generator stopped", zap.Error(err))
					return nil
				}
				return err
			}
		}
	}
}

func (g *Generator) produce(ctx context.Context, now time.Time) error {
	points, multi := g.Sample(now)

	for _, p := range points {
		if err := g.producer.Send(ctx, p); err != nil {
			return err
		}
	}
	for _, p := range multi {
		if err := g.producer.SendMultiField(ctx, p); err != nil {
			return err
		}
	}

	if g.metrics != nil {
		g.metrics.IncPointsAccepted(string(point.StreamPoints), "generator", len(points))
		g.metrics.IncPointsAccepted(string(point.StreamMultiField), "generator", len(multi))
	}
	return nil
}

// Sample returns one round of samples for every host at the given time.
// Each host yields cpu and load points plus memory, disk and network
// multi-field points.
func (g *Generator) Sample(now time.Time) ([]point.Point, []point.MultiFieldPoint) {
	points := make([]point.Point, 0, len(g.hosts)*3)
	multi := make([]point.MultiFieldPoint, 0, len(g.hosts)*(2+len(mounts)))

	for _, h := range g.hosts {
		tags := map[string]string{"host": h.name, "dc": h.dc, "role": h.role}

		user := g.percent(0, 80)
		points = append(points,
			mustPoint(point.New("sys.cpu.user", now, user, tags)),
			mustPoint(point.New("sys.cpu.system", now, g.percent(0, 100-int(user)), tags)),
			mustPoint(point.New("sys.load.1m", now, float64(g.faker.IntBetween(0, 800))/100, tags)),
		)

		total := float64(16 << 30)
		used := total * g.percent(10, 95) / 100
		multi = append(multi, mustMulti(point.NewMultiField("sys.mem", now, map[string]float64{
			"total": total,
			"used":  used,
			"free":  total - used,
		}, tags)))

		for _, mount := range mounts {
			diskTags := map[string]string{"host": h.name, "dc": h.dc, "role": h.role, "mount": mount}
			multi = append(multi, mustMulti(point.NewMultiField("sys.disk", now, map[string]float64{
				"used_percent": g.percent(5, 99),
				"read_iops":    float64(g.faker.IntBetween(0, 5000)),
				"write_iops":   float64(g.faker.IntBetween(0, 5000)),
			}, diskTags)))
		}

		h.rxBytes += float64(g.faker.IntBetween(1<<10, 1<<24))
		h.txBytes += float64(g.faker.IntBetween(1<<10, 1<<22))
		multi = append(multi, mustMulti(point.NewMultiField("sys.net", now, map[string]float64{
			"rx_bytes": h.rxBytes,
			"tx_bytes": h.txBytes,
		}, tags)))
	}

	return points, multi
}

func (g *Generator) percent(lo, hi int) float64 {
	return float64(g.faker.IntBetween(lo*100, hi*100)) / 100
}

// Generated names and tags are always valid, so construction cannot fail.
func mustPoint(p point.Point, err error) point.Point {
	if err != nil {
		panic(err)
	}
	return p
}

func mustMulti(p point.MultiFieldPoint, err error) point.MultiFieldPoint {
	if err != nil {
		panic(err)
	}
	return p
}
