package point

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// ErrInvalidPoint is returned by builders and decoders for malformed points.
var ErrInvalidPoint = errors.New("invalid point")

// Stream identifies one of the two independent point sequences.
type Stream string

const (
	StreamPoints     Stream = "points"
	StreamMultiField Stream = "multi_field"
)

// Point is a single-field sample. It is immutable once constructed.
type Point struct {
	metric    string
	timestamp time.Time
	value     float64
	tags      map[string]string
}

// New creates a Point. The tags map is copied.
func New(metric string, timestamp time.Time, value float64, tags map[string]string) (Point, error) {
	if strings.TrimSpace(metric) == "" {
		return Point{}, fmt.Errorf("%w: metric is required", ErrInvalidPoint)
	}
	if timestamp.IsZero() {
		return Point{}, fmt.Errorf("%w: timestamp is required", ErrInvalidPoint)
	}
	return Point{
		metric:    metric,
		timestamp: timestamp,
		value:     value,
		tags:      copyTags(tags),
	}, nil
}

// Metric returns the metric name.
func (p Point) Metric() string { return p.metric }

// Timestamp returns the sample time.
func (p Point) Timestamp() time.Time { return p.timestamp }

// Value returns the sample value.
func (p Point) Value() float64 { return p.value }

// Tags returns a copy of the tag set.
func (p Point) Tags() map[string]string { return copyTags(p.tags) }

// Tag returns a single tag value.
func (p Point) Tag(key string) (string, bool) {
	v, ok := p.tags[key]
	return v, ok
}

// NumTags returns the number of tags without copying them.
func (p Point) NumTags() int { return len(p.tags) }

// IsZero reports whether p is the zero Point, which stands for "no point".
func (p Point) IsZero() bool {
	return p.metric == "" && p.timestamp.IsZero() && p.tags == nil && p.value == 0
}

// String returns a line-protocol style representation for logs.
func (p Point) String() string {
	return fmt.Sprintf("%s%s %d %g", p.metric, formatTags(p.tags), p.timestamp.UnixMilli(), p.value)
}

type pointJSON struct {
	Metric    string            `json:"metric"`
	Timestamp int64             `json:"timestamp"`
	Value     float64           `json:"value"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// MarshalJSON encodes the point in the remote store wire shape with a
// millisecond timestamp.
func (p Point) MarshalJSON() ([]byte, error) {
	if math.IsNaN(p.value) || math.IsInf(p.value, 0) {
		return nil, fmt.Errorf("%w: value %v is not finite", ErrInvalidPoint, p.value)
	}
	return json.Marshal(pointJSON{
		Metric:    p.metric,
		Timestamp: p.timestamp.UnixMilli(),
		Value:     p.value,
		Tags:      p.tags,
	})
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (p *Point) UnmarshalJSON(data []byte) error {
	var raw pointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Timestamp == 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidPoint)
	}
	decoded, err := New(raw.Metric, time.UnixMilli(raw.Timestamp), raw.Value, raw.Tags)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

// MultiFieldPoint is a sample carrying several named numeric fields.
// It is immutable once constructed.
type MultiFieldPoint struct {
	metric    string
	timestamp time.Time
	fields    map[string]float64
	tags      map[string]string
}

// NewMultiField creates a MultiFieldPoint. The fields and tags maps are copied.
func NewMultiField(metric string, timestamp time.Time, fields map[string]float64, tags map[string]string) (MultiFieldPoint, error) {
	if strings.TrimSpace(metric) == "" {
		return MultiFieldPoint{}, fmt.Errorf("%w: metric is required", ErrInvalidPoint)
	}
	if timestamp.IsZero() {
		return MultiFieldPoint{}, fmt.Errorf("%w: timestamp is required", ErrInvalidPoint)
	}
	if len(fields) == 0 {
		return MultiFieldPoint{}, fmt.Errorf("%w: at least one field is required", ErrInvalidPoint)
	}
	return MultiFieldPoint{
		metric:    metric,
		timestamp: timestamp,
		fields:    copyFields(fields),
		tags:      copyTags(tags),
	}, nil
}

// Metric returns the metric name.
func (p MultiFieldPoint) Metric() string { return p.metric }

// Timestamp returns the sample time.
func (p MultiFieldPoint) Timestamp() time.Time { return p.timestamp }

// Fields returns a copy of the field values.
func (p MultiFieldPoint) Fields() map[string]float64 { return copyFields(p.fields) }

// Field returns a single field value.
func (p MultiFieldPoint) Field(name string) (float64, bool) {
	v, ok := p.fields[name]
	return v, ok
}

// FieldNames returns the field names in sorted order.
func (p MultiFieldPoint) FieldNames() []string {
	names := make([]string, 0, len(p.fields))
	for name := range p.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NumFields returns the number of fields.
func (p MultiFieldPoint) NumFields() int { return len(p.fields) }

// Tags returns a copy of the tag set.
func (p MultiFieldPoint) Tags() map[string]string { return copyTags(p.tags) }

// NumTags returns the number of tags without copying them.
func (p MultiFieldPoint) NumTags() int { return len(p.tags) }

// IsZero reports whether p is the zero MultiFieldPoint.
func (p MultiFieldPoint) IsZero() bool {
	return p.metric == "" && p.timestamp.IsZero() && p.fields == nil && p.tags == nil
}

// String returns a line-protocol style representation for logs.
func (p MultiFieldPoint) String() string {
	var b strings.Builder
	for i, name := range p.FieldNames() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%g", name, p.fields[name])
	}
	return fmt.Sprintf("%s%s %d %s", p.metric, formatTags(p.tags), p.timestamp.UnixMilli(), b.String())
}

type multiFieldJSON struct {
	Metric    string             `json:"metric"`
	Timestamp int64              `json:"timestamp"`
	Fields    map[string]float64 `json:"fields"`
	Tags      map[string]string  `json:"tags,omitempty"`
}

// MarshalJSON encodes the point in the remote store wire shape.
func (p MultiFieldPoint) MarshalJSON() ([]byte, error) {
	for name, v := range p.fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: field %s value %v is not finite", ErrInvalidPoint, name, v)
		}
	}
	return json.Marshal(multiFieldJSON{
		Metric:    p.metric,
		Timestamp: p.timestamp.UnixMilli(),
		Fields:    p.fields,
		Tags:      p.tags,
	})
}

// UnmarshalJSON decodes the wire shape produced by MarshalJSON.
func (p *MultiFieldPoint) UnmarshalJSON(data []byte) error {
	var raw multiFieldJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Timestamp == 0 {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidPoint)
	}
	decoded, err := NewMultiField(raw.Metric, time.UnixMilli(raw.Timestamp), raw.Fields, raw.Tags)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func copyTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

func copyFields(fields map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteByte(',')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(tags[k])
	}
	return b.String()
}
