package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

type mockHealthChecker struct {
	alive bool
	ready bool
}

func (m *mockHealthChecker) Liveness() bool                 { return m.alive }
func (m *mockHealthChecker) Readiness(context.Context) bool { return m.ready }
func (m *mockHealthChecker) GetStatus() map[string]string {
	return map[string]string{"queue": "ok"}
}

func TestLivenessHandler(t *testing.T) {
	tests := []struct {
		name       string
		alive      bool
		wantStatus int
		wantBody   string
	}{
		{"alive", true, http.StatusOK, "alive"},
		{"not alive", false, http.StatusServiceUnavailable, "not alive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := LivenessHandler(&mockHealthChecker{alive: tt.alive}, zap.NewNop())
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %s", ct)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Status != tt.wantBody {
				t.Errorf("status = %s, want %s", resp.Status, tt.wantBody)
			}
			if resp.Timestamp == "" {
				t.Error("expected timestamp")
			}
			if resp.Checks != nil {
				t.Error("liveness must not include checks")
			}
		})
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		wantStatus int
	}{
		{"ready", true, http.StatusOK},
		{"not ready", false, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ReadinessHandler(&mockHealthChecker{ready: tt.ready}, zap.NewNop())
			w := httptest.NewRecorder()
			handler(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp HealthResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Checks["queue"] != "ok" {
				t.Errorf("checks = %v", resp.Checks)
			}
		})
	}
}

func TestQueueHealth(t *testing.T) {
	env := newTestEnv(t, 4)
	health := NewQueueHealth(env.queue.Stats)

	if !health.Liveness() {
		t.Error("expected liveness")
	}
	if !health.Readiness(context.Background()) {
		t.Error("expected ready before ForbidSend")
	}

	env.do(http.MethodPost, "/api/put", `{"metric":"cpu","timestamp":1,"value":1}`)
	env.queue.Pause()
	status := health.GetStatus()
	if status["points"] != "1/4" {
		t.Errorf("points = %s, want 1/4", status["points"])
	}
	if status["paused"] != "true" {
		t.Errorf("paused = %s, want true", status["paused"])
	}

	env.queue.ForbidSend()
	if health.Readiness(context.Background()) {
		t.Error("expected not ready after ForbidSend")
	}

	w := env.do(http.MethodGet, "/health/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readiness endpoint status = %d, want 503", w.Code)
	}
}
