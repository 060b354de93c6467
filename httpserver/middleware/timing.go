/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"time"

	"github.com/blackeyesartisan/shopkit/log"
)

// Timing is a middleware that warns about requests served longer than the threshold.
// It uses the logger from the request context.
func Timing(threshold time.Duration) func(next http.Handler) http.Handler {
	if threshold <= 0 {
		threshold = DefaultSlowRequestThreshold
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrw := WrapResponseWriterIfNeeded(rw)
			next.ServeHTTP(wrw, r)
			elapsed := time.Since(start)
			if elapsed < threshold {
				return
			}
			if logger := GetLoggerFromContext(r.Context()); logger != nil {
				logger.Warn("slow request",
					log.String("method", r.Method),
					log.String("path", r.URL.Path),
					log.Int("status", wrw.Status()),
					log.Int64("duration_ms", elapsed.Milliseconds()),
				)
			}
		})
	}
}
