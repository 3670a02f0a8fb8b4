package point

import (
	"time"
)

// Builder assembles a Point step by step.
//
//	p, err := point.NewBuilder("cpu.usage").
//	    Tag("host", "web-1").
//	    Value(0.42).
//	    Build()
type Builder struct {
	metric    string
	timestamp time.Time
	value     float64
	tags      map[string]string
}

// NewBuilder starts a Point for metric. The timestamp defaults to the time
// Build is called.
func NewBuilder(metric string) *Builder {
	return &Builder{
		metric: metric,
		tags:   make(map[string]string),
	}
}

// Tag sets a single tag, replacing any previous value for key.
func (b *Builder) Tag(key, value string) *Builder {
	b.tags[key] = value
	return b
}

// Tags merges tags into the builder.
func (b *Builder) Tags(tags map[string]string) *Builder {
	for k, v := range tags {
		b.tags[k] = v
	}
	return b
}

// Timestamp sets the sample time.
func (b *Builder) Timestamp(ts time.Time) *Builder {
	b.timestamp = ts
	return b
}

// Value sets the sample value.
func (b *Builder) Value(v float64) *Builder {
	b.value = v
	return b
}

// Build returns the immutable Point.
func (b *Builder) Build() (Point, error) {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return New(b.metric, ts, b.value, b.tags)
}

// MultiFieldBuilder assembles a MultiFieldPoint step by step.
type MultiFieldBuilder struct {
	metric    string
	timestamp time.Time
	fields    map[string]float64
	tags      map[string]string
}

// NewMultiFieldBuilder starts a MultiFieldPoint for metric.
func NewMultiFieldBuilder(metric string) *MultiFieldBuilder {
	return &MultiFieldBuilder{
		metric: metric,
		fields: make(map[string]float64),
		tags:   make(map[string]string),
	}
}

// Tag sets a single tag.
func (b *MultiFieldBuilder) Tag(key, value string) *MultiFieldBuilder {
	b.tags[key] = value
	return b
}

// Tags merges tags into the builder.
func (b *MultiFieldBuilder) Tags(tags map[string]string) *MultiFieldBuilder {
	for k, v := range tags {
		b.tags[k] = v
	}
	return b
}

// Field sets a single field value.
func (b *MultiFieldBuilder) Field(name string, v float64) *MultiFieldBuilder {
	b.fields[name] = v
	return b
}

// Timestamp sets the sample time.
func (b *MultiFieldBuilder) Timestamp(ts time.Time) *MultiFieldBuilder {
	b.timestamp = ts
	return b
}

// Build returns the immutable MultiFieldPoint.
func (b *MultiFieldBuilder) Build() (MultiFieldPoint, error) {
	ts := b.timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return NewMultiField(b.metric, ts, b.fields, b.tags)
}
