package server

import (
	"net/http"

	"go.uber.org/zap"
)

// adminHandler exposes manual flow control over the queue.
type adminHandler struct {
	queue   Queue
	flusher Flusher
	logger  *zap.Logger
}

func (h *adminHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.queue.Pause()
	h.logger.Info("queue paused via admin API")
	writeJSON(w, http.StatusOK, h.queue.Stats(), h.logger)
}

func (h *adminHandler) unpause(w http.ResponseWriter, r *http.Request) {
	h.queue.Unpause()
	h.logger.Info("queue unpaused via admin API")
	writeJSON(w, http.StatusOK, h.queue.Stats(), h.logger)
}

func (h *adminHandler) flush(w http.ResponseWriter, r *http.Request) {
	if h.flusher == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "flush not available"}, h.logger)
		return
	}
	if err := h.flusher.Flush(r.Context()); err != nil {
		h.logger.Error("admin flush failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: err.Error()}, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, h.queue.Stats(), h.logger)
}

func (h *adminHandler) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Stats(), h.logger)
}
