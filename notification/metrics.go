/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package notification

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Send results used as metric label values.
const (
	sendResultSent    = "sent"
	sendResultFailed  = "failed"
	sendResultInvalid = "invalid"
)

// PrometheusMetrics collects metrics of the Sender.
type PrometheusMetrics struct {
	Sends    *prometheus.CounterVec
	Attempts prometheus.Histogram
}

// NewPrometheusMetrics creates a new PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_sends_total",
			Help:      "The total number of notifications by template and result.",
		}, []string{"template", "result"}),
		Attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "notification_send_attempts",
			Help:      "The number of provider calls made per notification.",
			Buckets:   []float64{1, 2, 3, 5, 8},
		}),
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (m *PrometheusMetrics) MustRegisterMetrics() {
	prometheus.MustRegister(m.Sends, m.Attempts)
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (m *PrometheusMetrics) UnregisterMetrics() {
	prometheus.Unregister(m.Sends)
	prometheus.Unregister(m.Attempts)
}

func (m *PrometheusMetrics) observe(template, result string, attempts int) {
	if m == nil {
		return
	}
	m.Sends.WithLabelValues(template, result).Inc()
	if attempts > 0 {
		m.Attempts.Observe(float64(attempts))
	}
}
