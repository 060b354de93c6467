/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// LoggingRoundTripper logs outgoing requests.
type LoggingRoundTripper struct {
	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// ProviderName identifies the remote API in log messages.
	ProviderName string

	Opts LoggingRoundTripperOpts
}

// LoggingRoundTripperOpts represents options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider is a function that provides a context-specific logger.
	// middleware.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Mode of logging: none, all, failed. Failed is used by default.
	Mode LoggingMode

	// Requests faster than SlowRequestThreshold are not logged unless they fail.
	SlowRequestThreshold time.Duration
}

// NewLoggingRoundTripper creates an HTTP transport that logs failed requests.
func NewLoggingRoundTripper(delegate http.RoundTripper, providerName string) http.RoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, providerName, LoggingRoundTripperOpts{})
}

// NewLoggingRoundTripperWithOpts creates an HTTP transport that logs requests with options.
func NewLoggingRoundTripperWithOpts(
	delegate http.RoundTripper, providerName string, opts LoggingRoundTripperOpts,
) http.RoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeFailed
	}
	return &LoggingRoundTripper{Delegate: delegate, ProviderName: providerName, Opts: opts}
}

func (rt *LoggingRoundTripper) getLogger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		return rt.Opts.LoggerProvider(ctx)
	}
	return middleware.GetLoggerFromContext(ctx)
}

// RoundTrip executes a single HTTP transaction and logs its outcome.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	ctx := r.Context()
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil {
		lp.AddTimeSlotDurationInMs(fmt.Sprintf("external_request_%s_ms", rt.ProviderName), elapsed)
	}

	logger := rt.getLogger(ctx)
	if logger == nil {
		return resp, err
	}
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if !failed && (rt.Opts.Mode == LoggingModeFailed || elapsed < rt.Opts.SlowRequestThreshold) {
		return resp, err
	}

	fields := []log.Field{
		log.String("provider", rt.ProviderName),
		log.String("method", r.Method),
		log.String("url", r.URL.Redacted()),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if resp != nil {
		fields = append(fields, log.Int("status", resp.StatusCode))
	}
	switch {
	case err != nil:
		logger.Error("client http request failed", append(fields, log.Error(err))...)
	case failed:
		logger.Warn("client http request completed with error status", fields...)
	default:
		logger.Info("client http request completed", fields...)
	}
	return resp, err
}
