/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

// Request id headers.
const (
	HeaderRequestID         = "X-Request-ID"
	HeaderInternalRequestID = "X-Int-Request-ID"
)

// RequestIDOpts represents options for RequestID middleware.
type RequestIDOpts struct {
	GenerateID         func() string
	GenerateInternalID func() string
}

type requestIDHandler struct {
	next http.Handler
	opts RequestIDOpts
}

func newID() string {
	return xid.New().String()
}

// RequestID is a middleware that takes the external request id from X-Request-ID header (or generates one)
// and always generates an internal request id.
// Both ids are put into the request context and returned in X-Request-ID and X-Int-Request-ID response headers.
// Outgoing requests to the providers carry the external id (see httpclient.RequestIDRoundTripper).
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is a more configurable version of RequestID middleware.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	if opts.GenerateID == nil {
		opts.GenerateID = newID
	}
	if opts.GenerateInternalID == nil {
		opts.GenerateInternalID = newID
	}
	return func(next http.Handler) http.Handler {
		return &requestIDHandler{next: next, opts: opts}
	}
}

func (h *requestIDHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(HeaderRequestID)
	if requestID == "" {
		requestID = h.opts.GenerateID()
	}
	internalRequestID := h.opts.GenerateInternalID()

	rw.Header().Set(HeaderRequestID, requestID)
	rw.Header().Set(HeaderInternalRequestID, internalRequestID)

	ctx := NewContextWithInternalRequestID(NewContextWithRequestID(r.Context(), requestID), internalRequestID)
	h.next.ServeHTTP(rw, r.WithContext(ctx))
}
