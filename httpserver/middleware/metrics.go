/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpRequestMetricsLabelMethod       = "method"
	httpRequestMetricsLabelRoutePattern = "route_pattern"
	httpRequestMetricsLabelStatusCode   = "status_code"
)

// DefaultHTTPRequestDurationBuckets is default buckets into which observations of serving HTTP requests are counted.
var DefaultHTTPRequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// HTTPRequestMetricsCollector represents collector of metrics for incoming HTTP requests.
type HTTPRequestMetricsCollector struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec
}

// NewHTTPRequestMetricsCollector creates a new metrics collector.
func NewHTTPRequestMetricsCollector(namespace string) *HTTPRequestMetricsCollector {
	return &HTTPRequestMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "A histogram of the HTTP request durations.",
			Buckets:   DefaultHTTPRequestDurationBuckets,
		}, []string{httpRequestMetricsLabelMethod, httpRequestMetricsLabelRoutePattern, httpRequestMetricsLabelStatusCode}),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being served.",
		}, []string{httpRequestMetricsLabelMethod}),
	}
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (c *HTTPRequestMetricsCollector) MustRegisterMetrics() {
	prometheus.MustRegister(c.Durations, c.InFlight)
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (c *HTTPRequestMetricsCollector) UnregisterMetrics() {
	prometheus.Unregister(c.InFlight)
	prometheus.Unregister(c.Durations)
}

// HTTPRequestMetrics is a middleware that collects metrics for incoming HTTP requests.
// The route pattern is resolved after the request is served since routers fill it during routing.
func HTTPRequestMetrics(
	collector *HTTPRequestMetricsCollector, getRoutePattern RoutePatternGetterFunc, excludedEndpoints ...string,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			for _, endpoint := range excludedEndpoints {
				if r.URL.Path == endpoint {
					next.ServeHTTP(rw, r)
					return
				}
			}

			startTime := GetRequestStartTimeFromContext(r.Context())
			if startTime.IsZero() {
				startTime = time.Now()
				r = r.WithContext(NewContextWithRequestStartTime(r.Context(), startTime))
			}
			inFlight := collector.InFlight.WithLabelValues(r.Method)
			inFlight.Inc()
			defer inFlight.Dec()

			wrw := WrapResponseWriterIfNeeded(rw)
			status := http.StatusInternalServerError
			defer func() {
				if p := recover(); p != nil {
					if p != http.ErrAbortHandler { //nolint:errorlint
						collector.observe(r, getRoutePattern, status, startTime)
					}
					panic(p)
				}
			}()
			next.ServeHTTP(wrw, r)
			collector.observe(r, getRoutePattern, wrw.Status(), startTime)
		})
	}
}

func (c *HTTPRequestMetricsCollector) observe(
	r *http.Request, getRoutePattern RoutePatternGetterFunc, status int, startTime time.Time,
) {
	routePattern := getRoutePattern(r)
	if routePattern == "" {
		routePattern = "unmatched"
	}
	c.Durations.WithLabelValues(r.Method, routePattern, strconv.Itoa(status)).Observe(time.Since(startTime).Seconds())
}
