/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// UnknownClientKey is used for all requests whose origin cannot be determined, so they share one counter.
const UnknownClientKey = "unknown"

// RoutePatternGetterFunc is a function for getting route pattern from the request. Used in multiple middlewares.
type RoutePatternGetterFunc func(r *http.Request) string

// GetChiRoutePattern returns the pattern of the chi route that matched the request.
func GetChiRoutePattern(r *http.Request) string {
	chiCtx := chi.RouteContext(r.Context())
	if chiCtx == nil {
		return ""
	}
	return chiCtx.RoutePattern()
}

// GetClientKey identifies the client that sent the request.
// The first address of X-Forwarded-For is preferred, then X-Real-IP, then the address of the connection.
func GetClientKey(r *http.Request) string {
	if addr := getOriginAddr(r); addr != "" {
		return addr
	}
	if r.RemoteAddr == "" {
		return UnknownClientKey
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if host == "" {
			return UnknownClientKey
		}
		return host
	}
	return r.RemoteAddr
}

func getOriginAddr(r *http.Request) string {
	if forwardedFor := r.Header.Get(headerForwardedFor); forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	return strings.TrimSpace(r.Header.Get(headerRealIP))
}
