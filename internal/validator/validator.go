// Package validator provides point validation against the remote store's
// naming rules.
package validator

import (
	"fmt"
	"math"
	"unicode"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// DefaultMaxTags is the tag limit applied when none is configured.
const DefaultMaxTags = 8

// Config holds tag count limits. Zero MaxTags means DefaultMaxTags.
type Config struct {
	MaxTags int
	MinTags int
}

// PointValidator validates points before they are queued.
type PointValidator struct {
	maxTags int
	minTags int
}

// NewPointValidator creates a new point validator.
func NewPointValidator(cfg Config) *PointValidator {
	maxTags := cfg.MaxTags
	if maxTags <= 0 {
		maxTags = DefaultMaxTags
	}
	return &PointValidator{maxTags: maxTags, minTags: cfg.MinTags}
}

// Validate validates a single-field point.
func (v *PointValidator) Validate(p point.Point) error {
	if err := v.validateCommon(p.Metric(), p.Tags()); err != nil {
		return err
	}

	if !isFinite(p.Value()) {
		return &errors.ValidationError{
			Metric: p.Metric(),
			Field:  "value",
			Reason: fmt.Sprintf("value %v is not finite", p.Value()),
		}
	}

	return nil
}

// ValidateMultiField validates a multi-field point.
func (v *PointValidator) ValidateMultiField(p point.MultiFieldPoint) error {
	if err := v.validateCommon(p.Metric(), p.Tags()); err != nil {
		return err
	}

	if p.NumFields() == 0 {
		return &errors.ValidationError{
			Metric: p.Metric(),
			Field:  "fields",
			Reason: "at least one field is required",
		}
	}

	for _, name := range p.FieldNames() {
		if !validName(name) {
			return &errors.ValidationError{
				Metric: p.Metric(),
				Field:  "fields." + name,
				Reason: "field name contains invalid characters",
			}
		}
		value, _ := p.Field(name)
		if !isFinite(value) {
			return &errors.ValidationError{
				Metric: p.Metric(),
				Field:  "fields." + name,
				Reason: fmt.Sprintf("value %v is not finite", value),
			}
		}
	}

	return nil
}

func (v *PointValidator) validateCommon(metric string, tags map[string]string) error {
	if metric == "" {
		return &errors.ValidationError{
			Field:  "metric",
			Reason: "required field is missing",
		}
	}

	if !validName(metric) {
		return &errors.ValidationError{
			Metric: metric,
			Field:  "metric",
			Reason: "contains invalid characters",
		}
	}

	if len(tags) < v.minTags {
		return &errors.ValidationError{
			Metric: metric,
			Field:  "tags",
			Reason: fmt.Sprintf("at least %d tags required, got %d", v.minTags, len(tags)),
		}
	}

	if len(tags) > v.maxTags {
		return &errors.ValidationError{
			Metric: metric,
			Field:  "tags",
			Reason: fmt.Sprintf("at most %d tags allowed, got %d", v.maxTags, len(tags)),
		}
	}

	for key, value := range tags {
		if !validName(key) {
			return &errors.ValidationError{
				Metric: metric,
				Field:  "tags." + key,
				Reason: "tag key contains invalid characters",
			}
		}
		if !validName(value) {
			return &errors.ValidationError{
				Metric: metric,
				Field:  "tags." + key,
				Reason: fmt.Sprintf("tag value %q contains invalid characters", value),
			}
		}
	}

	return nil
}

// validName reports whether s is non-empty and uses only letters, digits
// and -_./:
func validName(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
		case r == '-', r == '_', r == '.', r == '/', r == ':':
		default:
			return false
		}
	}
	return true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
