package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus `json:"status"`
	Message    string       `json:"message,omitempty"`
	CheckedAt  time.Time    `json:"checked_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Pinger is implemented by every storage backend so readiness does not
// care which one is configured.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	storage Pinger
}

func NewHealthHandler(storage Pinger) *HealthHandler {
	return &HealthHandler{storage: storage}
}

// pingHandler → just says service is up
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "OK"}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// healthCheckHandler → checks the session storage backend
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.storage.Ping(ctx)

	entry := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	overall := HealthHealthy
	statusCode := http.StatusOK
	if err != nil {
		entry.Status = HealthUnhealthy
		entry.Message = err.Error()
		overall = HealthUnhealthy
		statusCode = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:    overall,
		CheckedAt: time.Now(),
		Components: map[string]CheckEntry{
			"storage": entry,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
