/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "net/http"

// UserAgentUpdateStrategy represents a strategy for updating User-Agent HTTP header.
type UserAgentUpdateStrategy int

// User-Agent update strategies.
const (
	UserAgentUpdateStrategySetIfEmpty UserAgentUpdateStrategy = iota
	UserAgentUpdateStrategyAppend
	UserAgentUpdateStrategyPrepend
)

// UserAgentRoundTripper sets User-Agent HTTP header in all outgoing requests.
type UserAgentRoundTripper struct {
	Delegate       http.RoundTripper
	UserAgent      string
	UpdateStrategy UserAgentUpdateStrategy
}

// NewUserAgentRoundTripper creates a new UserAgentRoundTripper that sets the header if it is empty.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) *UserAgentRoundTripper {
	return NewUserAgentRoundTripperWithStrategy(delegate, userAgent, UserAgentUpdateStrategySetIfEmpty)
}

// NewUserAgentRoundTripperWithStrategy creates a new UserAgentRoundTripper with the given update strategy.
func NewUserAgentRoundTripperWithStrategy(
	delegate http.RoundTripper, userAgent string, strategy UserAgentUpdateStrategy,
) *UserAgentRoundTripper {
	return &UserAgentRoundTripper{Delegate: delegate, UserAgent: userAgent, UpdateStrategy: strategy}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *UserAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	cur := req.Header.Get("User-Agent")
	newUA := rt.UserAgent
	if cur != "" {
		switch rt.UpdateStrategy {
		case UserAgentUpdateStrategyAppend:
			newUA = cur + " " + rt.UserAgent
		case UserAgentUpdateStrategyPrepend:
			newUA = rt.UserAgent + " " + cur
		default:
			return rt.Delegate.RoundTrip(req)
		}
	}
	req = CloneHTTPRequest(req) // Per RoundTripper contract.
	req.Header.Set("User-Agent", newUA)
	return rt.Delegate.RoundTrip(req)
}
