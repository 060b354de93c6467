/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds HTTP clients for talking to third-party APIs (email delivery, media storage).
// A client is a chain of round trippers that log, measure and rate limit outgoing requests,
// add Authorization, User-Agent and X-Request-ID headers.
// Retries are not done on the transport level, callers decide what and when to retry.
package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blackeyesartisan/shopkit/log"
)

// CloneHTTPRequest creates a shallow copy of the request along with a deep copy of the Headers.
func CloneHTTPRequest(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.Header = req.Header.Clone()
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	return r
}

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// UserAgent is a user agent string.
	UserAgent string

	// ProviderName identifies the remote API (e.g. "resend", "cloudinary") in logs and metrics.
	ProviderName string

	// Delegate is the last RoundTripper in the chain. A clone of http.DefaultTransport is used by default.
	Delegate http.RoundTripper

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// RequestIDProvider is a function that provides a request ID.
	RequestIDProvider func(ctx context.Context) string

	// Collector is a metrics collector.
	Collector MetricsCollector

	// AuthProvider provides a token for the "Authorization: Bearer" header.
	AuthProvider AuthProvider
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) (*http.Client, error) {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new HTTP client with the given configuration and options.
// From the outermost to the innermost, the chain is:
// request id, user agent, auth bearer, rate limiting, metrics, logging.
func NewWithOpts(cfg *Config, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Log.Enabled {
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.ProviderName, LoggingRoundTripperOpts{
			LoggerProvider:       opts.LoggerProvider,
			Mode:                 cfg.Log.Mode,
			SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
		})
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripperWithOpts(delegate, MetricsRoundTripperOpts{
			ProviderName: opts.ProviderName,
			Collector:    opts.Collector,
		})
	}

	if cfg.RateLimits.Enabled {
		var err error
		delegate, err = NewRateLimitingRoundTripperWithOpts(delegate, cfg.RateLimits.Limit, RateLimitingRoundTripperOpts{
			Burst:       cfg.RateLimits.Burst,
			WaitTimeout: cfg.RateLimits.WaitTimeout,
			Adaptation:  cfg.RateLimits.Adaptation,
		})
		if err != nil {
			return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
		}
	}

	if opts.AuthProvider != nil {
		delegate = NewAuthBearerRoundTripper(delegate, opts.AuthProvider)
	}

	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}

	delegate = NewRequestIDRoundTripperWithOpts(delegate, RequestIDRoundTripperOpts{
		RequestIDProvider: opts.RequestIDProvider,
	})

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}, nil
}

// MustWithOpts creates a new HTTP client with the given configuration and options.
// It panics if any error occurs.
func MustWithOpts(cfg *Config, opts Opts) *http.Client {
	client, err := NewWithOpts(cfg, opts)
	if err != nil {
		panic(err)
	}
	return client
}
