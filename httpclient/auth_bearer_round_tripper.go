/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
)

// AuthProvider provides a token for the "Authorization: Bearer" header.
type AuthProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticTokenProvider is an AuthProvider that always returns the same token, an API key for example.
type StaticTokenProvider string

// GetToken implements AuthProvider.
func (p StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p == "" {
		return "", fmt.Errorf("token is empty")
	}
	return string(p), nil
}

// AuthBearerRoundTripperError is returned when a token cannot be obtained.
type AuthBearerRoundTripperError struct {
	Inner error
}

func (e *AuthBearerRoundTripperError) Error() string {
	return fmt.Sprintf("auth bearer round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *AuthBearerRoundTripperError) Unwrap() error {
	return e.Inner
}

// AuthBearerRoundTripper sets the Authorization header in outgoing requests that don't have one.
type AuthBearerRoundTripper struct {
	Delegate     http.RoundTripper
	AuthProvider AuthProvider
}

// NewAuthBearerRoundTripper creates a new AuthBearerRoundTripper.
func NewAuthBearerRoundTripper(delegate http.RoundTripper, authProvider AuthProvider) *AuthBearerRoundTripper {
	return &AuthBearerRoundTripper{Delegate: delegate, AuthProvider: authProvider}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return rt.Delegate.RoundTrip(req)
	}
	token, err := rt.AuthProvider.GetToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close() // Per RoundTripper contract.
		}
		return nil, &AuthBearerRoundTripperError{Inner: err}
	}
	req = CloneHTTPRequest(req) // Per RoundTripper contract.
	req.Header.Set("Authorization", "Bearer "+token)
	return rt.Delegate.RoundTrip(req)
}
