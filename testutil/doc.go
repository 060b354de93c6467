/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package testutil contains helpers for testing shopkit components: JSON and error responses,
// Prometheus metrics and listening servers.
package testutil

type tHelper interface {
	Helper()
}
