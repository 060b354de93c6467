/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import "net/http"

// HSTSHeaderValue is sent in Strict-Transport-Security header when HSTS is enabled.
const HSTSHeaderValue = "max-age=31536000; includeSubDomains; preload"

// SecurityHeadersOpts represents options for SecurityHeaders middleware.
type SecurityHeadersOpts struct {
	// HSTS enables Strict-Transport-Security header. It should be enabled in production only.
	HSTS bool
}

// SecurityHeaders is a middleware that sets the usual protective response headers
// and removes X-Powered-By that upstream frameworks like to add.
func SecurityHeaders(opts SecurityHeadersOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			h := rw.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if opts.HSTS {
				h.Set("Strict-Transport-Security", HSTSHeaderValue)
			}
			next.ServeHTTP(&headerFilteringWriter{ResponseWriter: rw, remove: "X-Powered-By"}, r)
		})
	}
}

// headerFilteringWriter removes a header right before the response headers are sent,
// so the header is dropped even if an underlying handler (a reverse proxy) copies it.
type headerFilteringWriter struct {
	http.ResponseWriter
	remove      string
	wroteHeader bool
}

func (w *headerFilteringWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.Header().Del(w.remove)
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *headerFilteringWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *headerFilteringWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		if !w.wroteHeader {
			w.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

func (w *headerFilteringWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
