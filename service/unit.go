/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs long-living parts of an application (HTTP server, background sweepers)
// with a common start/stop lifecycle.
package service

// Unit represents a service unit that can be started and stopped.
type Unit interface {
	// Start may block for the whole lifetime of the unit.
	// Nothing should be written to fatalErr when the unit starts successfully.
	Start(fatalErr chan<- error)

	// Stop may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register its own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
