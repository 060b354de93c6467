/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// IsTemporaryError reports whether err looks like a transient network failure
// after which repeating the same request may succeed.
// Cancellation of the caller's context is never temporary.
func IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var tmpErr interface{ Temporary() bool }
	if errors.As(err, &tmpErr) {
		return tmpErr.Temporary()
	}
	return false
}
