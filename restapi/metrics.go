/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import "github.com/prometheus/client_golang/prometheus"

var metricsResponseErrors *prometheus.CounterVec

const (
	metricsLabelResponseErrorDomain = "domain"
	metricsLabelResponseErrorCode   = "code"
)

// MustInitAndRegisterMetrics initializes and registers the response errors counter in the given registerer.
func MustInitAndRegisterMetrics(namespace string, registerer prometheus.Registerer) {
	metricsResponseErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restapi",
		Name:      "response_errors_total",
		Help:      "The total number of REST API errors that were respond.",
	}, []string{metricsLabelResponseErrorDomain, metricsLabelResponseErrorCode})
	registerer.MustRegister(metricsResponseErrors)
}

// UnregisterMetrics unregisters the response errors counter.
func UnregisterMetrics(registerer prometheus.Registerer) {
	if metricsResponseErrors != nil {
		registerer.Unregister(metricsResponseErrors)
		metricsResponseErrors = nil
	}
}
