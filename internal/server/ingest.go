package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jittakal/tsdbbuffer/internal/errors"
	"github.com/jittakal/tsdbbuffer/pkg/point"
)

// maxIngestBody bounds a single ingest request.
const maxIngestBody = 8 << 20

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// ingestHandler accepts points over HTTP and sends them to the queue.
type ingestHandler struct {
	queue     Queue
	validator Validator
	metrics   MetricsCollector
	logger    *zap.Logger
}

// put handles POST /api/put with a JSON point or array of points.
func (h *ingestHandler) put(w http.ResponseWriter, r *http.Request) {
	points, err := decodeBody[point.Point](w, r)
	if err != nil {
		h.reject(w, point.StreamPoints, "decode", 1, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var details []string
	for _, p := range points {
		if err := h.validator.Validate(p); err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		h.reject(w, point.StreamPoints, "validation", len(points), http.StatusBadRequest, "invalid points", details)
		return
	}

	for i, p := range points {
		if err := h.queue.Send(r.Context(), p); err != nil {
			h.sendFailed(w, point.StreamPoints, len(points)-i, err)
			return
		}
	}

	h.accepted(point.StreamPoints, len(points))
	w.WriteHeader(http.StatusNoContent)
}

// mput handles POST /api/mput with a JSON multi-field point or array.
func (h *ingestHandler) mput(w http.ResponseWriter, r *http.Request) {
	points, err := decodeBody[point.MultiFieldPoint](w, r)
	if err != nil {
		h.reject(w, point.StreamMultiField, "decode", 1, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var details []string
	for _, p := range points {
		if err := h.validator.ValidateMultiField(p); err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		h.reject(w, point.StreamMultiField, "validation", len(points), http.StatusBadRequest, "invalid points", details)
		return
	}

	for i, p := range points {
		if err := h.queue.SendMultiField(r.Context(), p); err != nil {
			h.sendFailed(w, point.StreamMultiField, len(points)-i, err)
			return
		}
	}

	h.accepted(point.StreamMultiField, len(points))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ingestHandler) sendFailed(w http.ResponseWriter, stream point.Stream, remaining int, err error) {
	switch {
	case stderrors.Is(err, errors.ErrQueueClosed):
		h.reject(w, stream, "closed", remaining, http.StatusServiceUnavailable, err.Error(), nil)
	case stderrors.Is(err, errors.ErrCancelled):
		// Client went away while the queue was full or paused.
		h.reject(w, stream, "cancelled", remaining, http.StatusServiceUnavailable, err.Error(), nil)
	default:
		h.reject(w, stream, "error", remaining, http.StatusInternalServerError, err.Error(), nil)
	}
}

func (h *ingestHandler) accepted(stream point.Stream, n int) {
	if h.metrics != nil {
		h.metrics.IncPointsAccepted(string(stream), "http", n)
	}
}

func (h *ingestHandler) reject(w http.ResponseWriter, stream point.Stream, reason string, n, statusCode int, msg string, details []string) {
	if h.metrics != nil {
		h.metrics.IncPointsRejected(string(stream), reason, n)
	}
	h.logger.Debug("ingest request rejected",
		zap.String("stream", string(stream)),
		zap.String("reason", reason),
		zap.Int("status", statusCode),
		zap.String("error", msg),
	)
	writeJSON(w, statusCode, ErrorResponse{Error: msg, Details: details}, h.logger)
}

// decodeBody accepts either a single JSON object or an array of objects.
func decodeBody[T any](w http.ResponseWriter, r *http.Request) ([]T, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty request body")
	}

	if trimmed[0] != '[' {
		var single T
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("invalid point: %w", err)
		}
		return []T{single}, nil
	}

	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("invalid points: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no points in request")
	}
	return items, nil
}
