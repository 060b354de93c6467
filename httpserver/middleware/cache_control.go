/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// CacheControl is a middleware that allows shared caches to keep GET responses for maxAge
// and serve them stale for twice as long while revalidating.
// A Cache-Control header set by an outer middleware is left untouched.
func CacheControl(maxAge time.Duration) func(next http.Handler) http.Handler {
	seconds := int64(maxAge / time.Second)
	value := fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d", seconds, seconds*2)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet && rw.Header().Get("Cache-Control") == "" {
				rw.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(rw, r)
		})
	}
}
