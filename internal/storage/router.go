package storage

import (
	"path"
	"time"

	"github.com/jittakal/tsdbbuffer/pkg/point"
	"github.com/jittakal/tsdbbuffer/pkg/storage"
)

// Ensure implementation satisfies interface at compile time.
var _ storage.Router = (*DefaultRouter)(nil)

// DefaultRouter implements Hive-style partitioning for storage paths.
type DefaultRouter struct {
	protocol string
	bucket   string
	basePath string
}

// NewRouter creates a new storage router.
func NewRouter(protocol, bucket, basePath string) *DefaultRouter {
	return &DefaultRouter{
		protocol: protocol,
		bucket:   bucket,
		basePath: basePath,
	}
}

// Route returns the directory for a stream at the given time.
// Format: protocol://bucket/basePath/<stream>/dt=YYYY-MM-DD/
// Partitioning uses the point timestamp rather than processing time.
func (r *DefaultRouter) Route(stream point.Stream, timestamp time.Time) string {
	date := timestamp.UTC().Format("2006-01-02")
	rel := path.Join(r.basePath, string(stream), "dt="+date)
	return r.protocol + "://" + r.bucket + "/" + rel + "/"
}
