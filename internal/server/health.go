package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/pkg/queue"
)

// HealthChecker interface for checking component health.
type HealthChecker interface {
	Liveness() bool
	Readiness(ctx context.Context) bool
	GetStatus() map[string]string
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// QueueHealth reports readiness from queue state. The service stops being
// ready once sends are forbidden so load balancers drain it during shutdown.
type QueueHealth struct {
	stats func() queue.Stats
}

// NewQueueHealth creates a health checker over a queue stats source.
func NewQueueHealth(stats func() queue.Stats) *QueueHealth {
	return &QueueHealth{stats: stats}
}

// Liveness always reports alive while the process serves requests.
func (h *QueueHealth) Liveness() bool {
	return true
}

// Readiness reports whether the queue accepts sends.
func (h *QueueHealth) Readiness(_ context.Context) bool {
	return !h.stats().SendForbidden
}

// GetStatus returns queue occupancy and flags.
func (h *QueueHealth) GetStatus() map[string]string {
	s := h.stats()
	return map[string]string{
		"points":         strconv.Itoa(s.Points) + "/" + strconv.Itoa(s.PointCapacity),
		"multi_field":    strconv.Itoa(s.MultiField) + "/" + strconv.Itoa(s.MultiFieldCapacity),
		"paused":         strconv.FormatBool(s.Paused),
		"send_forbidden": strconv.FormatBool(s.SendForbidden),
	}
}

// LivenessHandler returns a handler for Kubernetes liveness probes.
// Liveness probes should only fail if the process needs to be restarted.
func LivenessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "alive"
		statusCode := http.StatusOK

		if !checker.Liveness() {
			status = "not alive"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, logger)
	}
}

// ReadinessHandler returns a handler for Kubernetes readiness probes.
func ReadinessHandler(checker HealthChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ready"
		statusCode := http.StatusOK

		if !checker.Readiness(r.Context()) {
			status = "not ready"
			statusCode = http.StatusServiceUnavailable
		}

		writeJSON(w, statusCode, HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checker.GetStatus(),
		}, logger)
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}
