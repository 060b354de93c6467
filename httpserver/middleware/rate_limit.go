/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vasayxtx/go-glob"

	"github.com/blackeyesartisan/shopkit/internal/ratelimit"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
	"github.com/blackeyesartisan/shopkit/service"
)

// Rate limiting response headers.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
	HeaderRetryAfter         = "Retry-After"
)

// DefaultRateLimitMessage is returned in the body of rejected requests.
const DefaultRateLimitMessage = "Too many requests, please try again later."

// RateLimitLogFieldKey is the name of the logged field that contains the client key.
const RateLimitLogFieldKey = "rate_limit_key"

// Rate limiting decisions used as metric label values.
const (
	RateLimitDecisionAllowed  = "allowed"
	RateLimitDecisionDelayed  = "delayed"
	RateLimitDecisionRejected = "rejected"
	RateLimitDecisionBypassed = "bypassed"
)

// RateLimitParams configures the fixed window rate limiting.
type RateLimitParams struct {
	// Max is the number of requests a client may send in one window.
	Max int
	// Window is the length of a window.
	Window time.Duration
	// Requests above DelayAfter (but not above Max) are delayed by TimeWait per each extra request.
	// Zero disables delaying.
	DelayAfter int
	TimeWait   time.Duration
	// MaxDelay caps the delay, 5s by default.
	MaxDelay time.Duration
}

// RateLimitRejectionBody is the JSON body of 429 responses.
type RateLimitRejectionBody struct {
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// RateLimitInfo is put into the request context for handlers that want to know the limiting state.
type RateLimitInfo struct {
	Key       string
	Limit     int
	Remaining int
	ResetAt   time.Time
	Delay     time.Duration
}

// RateLimitOpts represents options for RateLimiter.
type RateLimitOpts struct {
	// Message is returned in the body of rejected requests. DefaultRateLimitMessage is used by default.
	Message string
	// DisableHeaders turns off X-RateLimit-* headers. Retry-After is sent anyway.
	DisableHeaders bool
	// Whitelist contains glob patterns of client keys that are never limited.
	Whitelist []string
	// GetKey identifies the client. GetClientKey is used by default.
	GetKey func(r *http.Request) string
	// Now and Sleep may be replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
	// MetricsNamespace is prepended to the names of the metrics.
	MetricsNamespace string
}

// RateLimiter limits the number of requests per client.
// The fixed window registry behind it is owned by the RateLimiter
// and its expired entries are removed by the unit returned from NewSweeper.
type RateLimiter struct {
	limiter   ratelimit.Limiter
	registry  *ratelimit.FixedWindowRegistry
	whitelist []func(string) bool
	opts      RateLimitOpts

	decisions     *prometheus.CounterVec
	activeEntries prometheus.GaugeFunc
}

// NewRateLimiter creates a RateLimiter with the fixed window algorithm.
func NewRateLimiter(params RateLimitParams, opts RateLimitOpts) (*RateLimiter, error) {
	reg, err := ratelimit.NewFixedWindowRegistry(ratelimit.FixedWindowParams{
		Max:        params.Max,
		Window:     params.Window,
		DelayAfter: params.DelayAfter,
		TimeWait:   params.TimeWait,
		MaxDelay:   params.MaxDelay,
	})
	if err != nil {
		return nil, err
	}
	rl := newRateLimiter(reg, opts)
	rl.registry = reg
	rl.activeEntries = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: opts.MetricsNamespace,
		Name:      "rate_limit_active_entries",
		Help:      "The number of clients tracked by the rate limiter.",
	}, func() float64 { return float64(reg.Len()) })
	return rl, nil
}

// NewLeakyBucketRateLimiter creates a RateLimiter with the leaky bucket (GCRA) algorithm.
// It keeps at most maxKeys clients and doesn't need sweeping.
func NewLeakyBucketRateLimiter(maxRate int, per time.Duration, maxBurst, maxKeys int, opts RateLimitOpts) (*RateLimiter, error) {
	limiter, err := ratelimit.NewLeakyBucketLimiter(ratelimit.Rate{Count: maxRate, Duration: per}, maxBurst, maxKeys)
	if err != nil {
		return nil, err
	}
	return newRateLimiter(limiter, opts), nil
}

func newRateLimiter(limiter ratelimit.Limiter, opts RateLimitOpts) *RateLimiter {
	if opts.Message == "" {
		opts.Message = DefaultRateLimitMessage
	}
	if opts.GetKey == nil {
		opts.GetKey = GetClientKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	whitelist := make([]func(string) bool, 0, len(opts.Whitelist))
	for _, pattern := range opts.Whitelist {
		whitelist = append(whitelist, glob.Compile(pattern))
	}
	return &RateLimiter{
		limiter:   limiter,
		whitelist: whitelist,
		opts:      opts,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: opts.MetricsNamespace,
			Name:      "rate_limit_decisions_total",
			Help:      "The total number of rate limiting decisions.",
		}, []string{"decision"}),
	}
}

// NewSweeper returns a unit that removes expired entries every interval.
// It returns nil when the algorithm doesn't need sweeping.
func (rl *RateLimiter) NewSweeper(interval time.Duration, logger log.FieldLogger) *service.WorkerUnit {
	if rl.registry == nil {
		return nil
	}
	return ratelimit.NewSweeper(rl.registry, interval, rl.opts.Now, logger)
}

// ActiveEntries returns the number of tracked clients (0 for the leaky bucket algorithm).
func (rl *RateLimiter) ActiveEntries() int {
	if rl.registry == nil {
		return 0
	}
	return rl.registry.Len()
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (rl *RateLimiter) MustRegisterMetrics() {
	prometheus.MustRegister(rl.decisions)
	if rl.activeEntries != nil {
		prometheus.MustRegister(rl.activeEntries)
	}
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (rl *RateLimiter) UnregisterMetrics() {
	prometheus.Unregister(rl.decisions)
	if rl.activeEntries != nil {
		prometheus.Unregister(rl.activeEntries)
	}
}

func (rl *RateLimiter) isWhitelisted(key string) bool {
	for _, match := range rl.whitelist {
		if match(key) {
			return true
		}
	}
	return false
}

// Middleware returns a middleware that records every request of the client.
// Over-limit requests get 429 with Retry-After and {"message", "retryAfter"} body.
// Requests above the delay threshold are held before being served.
func (rl *RateLimiter) Middleware(errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rl.serveHTTP(rw, r, next, errDomain)
		})
	}
}

func (rl *RateLimiter) serveHTTP(rw http.ResponseWriter, r *http.Request, next http.Handler, errDomain string) {
	ctx := r.Context()
	logger := GetLoggerFromContext(ctx)
	key := rl.opts.GetKey(r)
	if key == "" {
		key = UnknownClientKey
	}
	if rl.isWhitelisted(key) {
		rl.decisions.WithLabelValues(RateLimitDecisionBypassed).Inc()
		next.ServeHTTP(rw, r)
		return
	}

	decision, err := rl.limiter.CheckAndRecord(ctx, key, rl.opts.Now())
	if err != nil {
		if logger != nil {
			logger.Error("rate limiting failed", log.String(RateLimitLogFieldKey, key), log.Error(err))
		}
		restapi.RespondInternalError(rw, errDomain, logger)
		return
	}

	if !rl.opts.DisableHeaders {
		h := rw.Header()
		h.Set(HeaderRateLimitLimit, strconv.Itoa(decision.Limit))
		h.Set(HeaderRateLimitRemaining, strconv.Itoa(decision.Remaining))
		h.Set(HeaderRateLimitReset, strconv.FormatInt(decision.ResetUnix(), 10))
	}

	if !decision.Allow {
		rl.decisions.WithLabelValues(RateLimitDecisionRejected).Inc()
		retryAfter := decision.RetryAfterSeconds()
		if logger != nil {
			logger.Warn("too many requests", log.String(RateLimitLogFieldKey, key), log.Int("retry_after", retryAfter))
		}
		rw.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
		restapi.RespondCodeAndJSON(rw, http.StatusTooManyRequests,
			RateLimitRejectionBody{Message: rl.opts.Message, RetryAfter: retryAfter}, logger)
		return
	}

	if decision.Delay > 0 {
		rl.decisions.WithLabelValues(RateLimitDecisionDelayed).Inc()
		if lp := GetLoggingParamsFromContext(ctx); lp != nil {
			lp.AddTimeSlotDurationInMs("rate_limit_delay_ms", decision.Delay)
		}
		if err = rl.opts.Sleep(ctx, decision.Delay); err != nil {
			return // The client has gone.
		}
	} else {
		rl.decisions.WithLabelValues(RateLimitDecisionAllowed).Inc()
	}

	ctx = NewContextWithRateLimitInfo(ctx, RateLimitInfo{
		Key: key, Limit: decision.Limit, Remaining: decision.Remaining, ResetAt: decision.ResetAt, Delay: decision.Delay,
	})
	next.ServeHTTP(rw, r.WithContext(ctx))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for %s: %w", d, ctx.Err())
	}
}
