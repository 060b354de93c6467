/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// StatusClientClosedRequest is a special HTTP status code used by Nginx to show that the client
// closed the request before the server could send a response
const StatusClientClosedRequest = 499

// DefaultHealthCheckTimeout limits the time of a single health check.
const DefaultHealthCheckTimeout = 5 * time.Second

// HealthStatus is an aggregated or per-check health status.
type HealthStatus string

// Health statuses.
const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckFunc checks a single dependency of the service.
type HealthCheckFunc func(ctx context.Context) error

// HealthCheck is a named dependency check.
// A failed critical check makes the whole service unhealthy, a failed non-critical one only degrades it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    HealthCheckFunc
}

// HealthCheckResult is the outcome of a single check as it is reported to the client.
type HealthCheckResult struct {
	Status    HealthStatus `json:"status"`
	LatencyMs int64        `json:"latency_ms"`
	Error     string       `json:"error,omitempty"`
}

// HealthReport is the body of the health endpoint response.
type HealthReport struct {
	Status    HealthStatus                 `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Uptime    float64                      `json:"uptime"`
	Version   string                       `json:"version"`
	Checks    map[string]HealthCheckResult `json:"checks"`
}

// HealthCheckHandlerOpts represents options for the HealthCheckHandler.
type HealthCheckHandlerOpts struct {
	Version string
	// Timeout limits every single check. DefaultHealthCheckTimeout is used if it is zero.
	Timeout time.Duration
	// StartedAt is used to compute uptime. The handler creation time is used if it is zero.
	StartedAt time.Time
	Now       func() time.Time
}

// HealthCheckHandler implements http.Handler and reports the health of the service and its dependencies.
type HealthCheckHandler struct {
	checks    []HealthCheck
	version   string
	timeout   time.Duration
	startedAt time.Time
	now       func() time.Time
}

// NewHealthCheckHandler creates a new http.Handler for doing health-check.
func NewHealthCheckHandler(checks []HealthCheck, opts HealthCheckHandlerOpts) *HealthCheckHandler {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StartedAt.IsZero() {
		opts.StartedAt = opts.Now()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultHealthCheckTimeout
	}
	return &HealthCheckHandler{
		checks:    checks,
		version:   opts.Version,
		timeout:   opts.Timeout,
		startedAt: opts.StartedAt,
		now:       opts.Now,
	}
}

// Report runs all checks concurrently and aggregates their results.
func (h *HealthCheckHandler) Report(ctx context.Context) HealthReport {
	results := make([]HealthCheckResult, len(h.checks))
	var wg sync.WaitGroup
	for i := range h.checks {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = h.runCheck(ctx, h.checks[i])
		}(i)
	}
	wg.Wait()

	now := h.now()
	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: now.UTC().Format(time.RFC3339),
		Uptime:    now.Sub(h.startedAt).Seconds(),
		Version:   h.version,
		Checks:    make(map[string]HealthCheckResult, len(h.checks)),
	}
	for i, check := range h.checks {
		report.Checks[check.Name] = results[i]
		if results[i].Status == HealthStatusHealthy {
			continue
		}
		if check.Critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}
	return report
}

func (h *HealthCheckHandler) runCheck(ctx context.Context, check HealthCheck) (res HealthCheckResult) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	startTime := time.Now()
	defer func() {
		res.LatencyMs = time.Since(startTime).Milliseconds()
		if p := recover(); p != nil {
			res.Status = HealthStatusUnhealthy
			res.Error = "check panicked"
		}
	}()

	if err := check.Check(ctx); err != nil {
		return HealthCheckResult{Status: HealthStatusUnhealthy, Error: err.Error()}
	}
	return HealthCheckResult{Status: HealthStatusHealthy}
}

// ServeHTTP serves heath-check HTTP request.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	report := h.Report(r.Context())
	if errors.Is(r.Context().Err(), context.Canceled) {
		rw.WriteHeader(StatusClientClosedRequest)
		return
	}

	respStatus := http.StatusOK
	if report.Status == HealthStatusUnhealthy {
		respStatus = http.StatusServiceUnavailable
		if logger != nil {
			logger.Warn("service is unhealthy", log.Any("checks", report.Checks))
		}
	}

	rw.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	rw.Header().Set("Pragma", "no-cache")
	rw.Header().Set("Expires", "0")
	restapi.RespondCodeAndJSON(rw, respStatus, report, logger)
}
