/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/restapi"
)

type requestBodyLimitHandler struct {
	next         http.Handler
	maxSizeBytes int64
	errDomain    string
}

// RequestBodyLimit is a middleware that limits the size of a request body (uploads mostly).
// Requests with a bigger Content-Length are rejected with 413 immediately,
// bodies without Content-Length are cut by http.MaxBytesReader.
func RequestBodyLimit(maxSize config.ByteSize, errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return &requestBodyLimitHandler{next: next, maxSizeBytes: int64(maxSize), errDomain: errDomain} //nolint:gosec
	}
}

func (h *requestBodyLimitHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxSizeBytes {
		apiErr := restapi.NewError(h.errDomain, restapi.ErrCodeTooLarge, restapi.ErrMessageTooLarge).
			AddContext("maxSize", config.ByteSize(h.maxSizeBytes).String())
		restapi.RespondError(rw, http.StatusRequestEntityTooLarge, apiErr, GetLoggerFromContext(r.Context()))
		return
	}
	if r.Body != nil && r.Body != http.NoBody {
		r.Body = http.MaxBytesReader(rw, r.Body, h.maxSizeBytes)
	}
	h.next.ServeHTTP(rw, r)
}
