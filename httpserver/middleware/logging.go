/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/blackeyesartisan/shopkit/log"
)

// DefaultSlowRequestThreshold is the duration after which a request is considered slow.
const DefaultSlowRequestThreshold = time.Second

// LoggingOpts represents options for Logging middleware.
type LoggingOpts struct {
	RequestStart      bool
	ExcludedEndpoints []string
	// Responses slower than SlowRequestThreshold are logged with time slots and at warn level.
	SlowRequestThreshold time.Duration
}

type loggingHandler struct {
	next   http.Handler
	logger log.FieldLogger
	opts   LoggingOpts
}

// Logging is a middleware that logs every completed request and
// puts the logger (with request ids in fields) into the request context.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is a more configurable version of Logging middleware.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	if opts.SlowRequestThreshold == 0 {
		opts.SlowRequestThreshold = DefaultSlowRequestThreshold
	}
	logger = log.OrDisabled(logger)
	return func(next http.Handler) http.Handler {
		return &loggingHandler{next: next, logger: logger, opts: opts}
	}
}

func (h *loggingHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := GetRequestStartTimeFromContext(ctx)
	if startTime.IsZero() {
		startTime = time.Now()
		ctx = NewContextWithRequestStartTime(ctx, startTime)
	}

	logger := h.logger.With(
		log.String("request_id", GetRequestIDFromContext(ctx)),
		log.String("int_request_id", GetInternalRequestIDFromContext(ctx)),
	)
	reqLogger := logger.With(
		log.String("method", r.Method),
		log.String("uri", r.URL.RequestURI()),
		log.String("remote_addr", r.RemoteAddr),
		log.String("client_key", GetClientKey(r)),
		log.String("user_agent", r.UserAgent()),
	)

	noLog := isLoggingDisabled(r.URL.Path, h.opts.ExcludedEndpoints)
	if h.opts.RequestStart && !noLog {
		reqLogger.Info("request started")
	}

	lp := &LoggingParams{}
	ctx = NewContextWithLoggingParams(NewContextWithLogger(ctx, logger), lp)
	wrw := WrapResponseWriterIfNeeded(rw)
	h.next.ServeHTTP(wrw, r.WithContext(ctx))

	if noLog && wrw.Status() < http.StatusBadRequest {
		return
	}
	duration := time.Since(startTime)
	slow := duration >= h.opts.SlowRequestThreshold
	if slow {
		lp.AddTimeSlotDurationInMs("writing_response_ms", wrw.ElapsedTime())
	}
	fields := append([]log.Field{
		log.Int64("duration_ms", duration.Milliseconds()),
		log.Int("status", wrw.Status()),
		log.Int("bytes_sent", wrw.BytesWritten()),
	}, lp.logFields(slow)...)
	reqLogger.Info(fmt.Sprintf("response completed in %.3fs", duration.Seconds()), fields...)
}

func isLoggingDisabled(urlPath string, excludedEndpoints []string) bool {
	for _, endpoint := range excludedEndpoints {
		if urlPath == endpoint {
			return true
		}
	}
	return false
}
