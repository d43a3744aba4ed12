package handler

import (
	"net/http"
	"runtime"
	"time"

	"creatorhub-api/pkg/response"
)

// StartTime tracks when the server started for uptime calculation
var StartTime = time.Now()

// Handler contains shared HTTP handlers and their dependencies.
type Handler struct {
	checkStore func() error
	checkCache func() error
}

// New creates a new handler. The check functions may be nil when the
// backing service is optional.
func New(checkStore, checkCache func() error) *Handler {
	return &Handler{
		checkStore: checkStore,
		checkCache: checkCache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// Health handles GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	response.OK(w, resp)
}

// ReadyResponse represents the readiness check response.
type ReadyResponse struct {
	Ready     bool      `json:"ready"`
	Timestamp time.Time `json:"timestamp"`
	Checks    []Check   `json:"checks"`
}

// Check represents an individual readiness check.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready handles GET /api/v1/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := []Check{
		{Name: "api", Status: "ok"},
	}
	if h.checkStore != nil {
		checks = append(checks, checkResult("store", h.checkStore()))
	}
	if h.checkCache != nil {
		checks = append(checks, checkResult("cache", h.checkCache()))
	}

	allReady := true
	for _, check := range checks {
		if check.Status != "ok" {
			allReady = false
			break
		}
	}

	resp := ReadyResponse{
		Ready:     allReady,
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	}

	if !allReady {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response.OK(w, resp)
}

func checkResult(name string, err error) Check {
	if err != nil {
		return Check{Name: name, Status: "error"}
	}
	return Check{Name: name, Status: "ok"}
}

// StatusChecks represents the checks in status response
type StatusChecks struct {
	Store    string  `json:"store"`
	MemoryMB float64 `json:"memory_mb"`
}

// StatusResponse represents the unified status response for uptime monitoring
type StatusResponse struct {
	Service       string       `json:"service"`
	Status        string       `json:"status"`
	Timestamp     string       `json:"timestamp"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	PingMS        int64        `json:"ping_ms"`
	Checks        StatusChecks `json:"checks"`
}

// Status handles GET /api/status - unified health check for uptime monitoring
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	requestStart := time.Now()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	memoryMB := float64(memStats.Alloc) / 1024 / 1024

	storeStatus := "ok"
	if h.checkStore != nil && h.checkStore() != nil {
		storeStatus = "error"
	}

	pingMS := time.Since(requestStart).Milliseconds()
	uptimeSeconds := int64(time.Since(StartTime).Seconds())

	resp := StatusResponse{
		Service:       "creatorhub-api",
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		UptimeSeconds: uptimeSeconds,
		PingMS:        pingMS,
		Checks: StatusChecks{
			Store:    storeStatus,
			MemoryMB: float64(int(memoryMB*100)) / 100,
		},
	}

	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	response.OK(w, resp)
}
