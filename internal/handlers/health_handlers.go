package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStatusProvider reports on scheduled background jobs.
type JobStatusProvider interface {
	GetJobStatus() map[string]interface{}
}

// HealthHandlers handles health check and monitoring endpoints
type HealthHandlers struct {
	db        Pinger
	cache     Pinger
	documents Pinger
	jobs      JobStatusProvider
	version   string
	startedAt time.Time
}

// NewHealthHandlers creates health handlers. cache, documents and jobs may be nil
// when the corresponding component is not configured.
func NewHealthHandlers(db, cache, documents Pinger, jobs JobStatusProvider, version string) *HealthHandlers {
	return &HealthHandlers{
		db:        db,
		cache:     cache,
		documents: documents,
		jobs:      jobs,
		version:   version,
		startedAt: time.Now().UTC(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
}

const checkTimeout = 3 * time.Second

func check(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

// HealthCheck handles GET /health
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services: map[string]string{
			"database": check(ctx, h.db),
			"redis":    check(ctx, h.cache),
			"storage":  check(ctx, h.documents),
		},
		Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		Version: h.version,
	}

	for _, state := range health.Services {
		if state == "unhealthy" {
			health.Status = "degraded"
		}
	}

	statusCode := http.StatusOK
	if health.Status == "degraded" {
		statusCode = http.StatusPartialContent
	}
	return c.JSON(statusCode, health)
}

// ReadinessCheck reports ready only when the database is reachable.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	if check(c.Request().Context(), h.db) != "healthy" {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Database unavailable",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}

// LivenessCheck determines if the application is running (basic liveness check)
func (h *HealthHandlers) LivenessCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "alive",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetMetrics handles GET /health/metrics
func (h *HealthHandlers) GetMetrics(c echo.Context) error {
	metrics := map[string]interface{}{
		"timestamp":  time.Now().UTC(),
		"version":    h.version,
		"goroutines": runtime.NumGoroutine(),
		"started_at": h.startedAt.Format(time.RFC3339),
	}
	if h.jobs != nil {
		metrics["jobs"] = h.jobs.GetJobStatus()
	}
	return c.JSON(http.StatusOK, metrics)
}
