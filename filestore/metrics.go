/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package filestore

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operations used as metric label values.
const (
	OperationUpload = "upload"
	OperationDelete = "delete"
	OperationFetch  = "fetch"
)

const (
	operationResultSuccess  = "success"
	operationResultError    = "error"
	operationResultRejected = "rejected"
)

// PrometheusMetrics collects metrics of the Storage.
type PrometheusMetrics struct {
	Operations  *prometheus.CounterVec
	UploadBytes prometheus.Histogram
}

// NewPrometheusMetrics creates a new PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_storage_operations_total",
			Help:      "The total number of file storage operations by operation and result.",
		}, []string{"op", "result"}),
		UploadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_storage_upload_size_bytes",
			Help:      "The size of uploaded files.",
			Buckets:   prometheus.ExponentialBuckets(16*1024, 4, 7),
		}),
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (m *PrometheusMetrics) MustRegisterMetrics() {
	prometheus.MustRegister(m.Operations, m.UploadBytes)
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (m *PrometheusMetrics) UnregisterMetrics() {
	prometheus.Unregister(m.Operations)
	prometheus.Unregister(m.UploadBytes)
}

func (m *PrometheusMetrics) incOperation(op, result string) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(op, result).Inc()
}

func (m *PrometheusMetrics) observeUpload(size int) {
	if m == nil {
		return
	}
	m.UploadBytes.Observe(float64(size))
}
