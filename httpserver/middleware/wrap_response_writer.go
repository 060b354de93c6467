/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"
)

// WrapResponseWriter is a proxy around an http.ResponseWriter that remembers the status and the size of the response.
type WrapResponseWriter interface {
	http.ResponseWriter

	// Status returns the HTTP status of the request, or 200 if one has not yet been sent.
	Status() int

	// BytesWritten returns the total number of bytes sent to the client.
	BytesWritten() int

	// ElapsedTime returns the time spent in Write calls.
	ElapsedTime() time.Duration

	// Unwrap returns the original http.ResponseWriter (used by http.ResponseController).
	Unwrap() http.ResponseWriter
}

type wrapResponseWriter struct {
	http.ResponseWriter
	wroteHeader bool
	status      int
	bytes       int
	elapsed     time.Duration
}

// NewWrapResponseWriter wraps the given http.ResponseWriter.
func NewWrapResponseWriter(rw http.ResponseWriter) WrapResponseWriter {
	return &wrapResponseWriter{ResponseWriter: rw}
}

// WrapResponseWriterIfNeeded wraps an http.ResponseWriter if it is not already wrapped.
func WrapResponseWriterIfNeeded(rw http.ResponseWriter) WrapResponseWriter {
	if wrw, ok := rw.(WrapResponseWriter); ok {
		return wrw
	}
	return NewWrapResponseWriter(rw)
}

func (w *wrapResponseWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrapResponseWriter) Write(buf []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	start := time.Now()
	n, err := w.ResponseWriter.Write(buf)
	w.elapsed += time.Since(start)
	w.bytes += n
	return n, err
}

func (w *wrapResponseWriter) Status() int {
	if !w.wroteHeader {
		return http.StatusOK
	}
	return w.status
}

func (w *wrapResponseWriter) BytesWritten() int { return w.bytes }

func (w *wrapResponseWriter) ElapsedTime() time.Duration { return w.elapsed }

func (w *wrapResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Flush is needed by the reverse proxy for streaming responses.
func (w *wrapResponseWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *wrapResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying response writer doesn't support hijacking")
	}
	return hj.Hijack()
}
