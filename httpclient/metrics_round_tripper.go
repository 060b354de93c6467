/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector is an interface for collecting metrics for outgoing requests.
type MetricsCollector interface {
	// RequestDuration observes the duration of the request and its status code ("0" for transport errors).
	RequestDuration(provider, method, status string, startTime time.Time)
}

// PrometheusMetricsCollector is a Prometheus metrics collector.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "A histogram of the durations of requests to third-party APIs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "method", "status"}),
	}
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (c *PrometheusMetricsCollector) MustRegisterMetrics() {
	prometheus.MustRegister(c.Durations)
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (c *PrometheusMetricsCollector) UnregisterMetrics() {
	prometheus.Unregister(c.Durations)
}

// RequestDuration observes the duration of the request and its status code.
func (c *PrometheusMetricsCollector) RequestDuration(provider, method, status string, start time.Time) {
	c.Durations.WithLabelValues(provider, method, status).Observe(time.Since(start).Seconds())
}

// MetricsRoundTripper measures outgoing requests.
type MetricsRoundTripper struct {
	Delegate     http.RoundTripper
	ProviderName string
	Collector    MetricsCollector
}

// MetricsRoundTripperOpts represents options for MetricsRoundTripper.
type MetricsRoundTripperOpts struct {
	ProviderName string
	Collector    MetricsCollector
}

// NewMetricsRoundTripperWithOpts creates an HTTP transport that measures outgoing requests.
func NewMetricsRoundTripperWithOpts(delegate http.RoundTripper, opts MetricsRoundTripperOpts) http.RoundTripper {
	return &MetricsRoundTripper{Delegate: delegate, ProviderName: opts.ProviderName, Collector: opts.Collector}
}

// RoundTrip executes a single HTTP transaction and observes its duration.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Collector == nil {
		return rt.Delegate.RoundTrip(r)
	}
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	status := "0"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	rt.Collector.RequestDuration(rt.ProviderName, r.Method, status, start)
	return resp, err
}
