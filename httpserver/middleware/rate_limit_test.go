/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/config"
	"github.com/blackeyesartisan/shopkit/internal/ratelimit"
	"github.com/blackeyesartisan/shopkit/log/logtest"
)

const testErrDomain = "ShopEdge"

type fakeSleeper struct {
	delays []time.Duration
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func makeRateLimitedHandler(t *testing.T, rl *RateLimiter) (http.Handler, *int) {
	t.Helper()
	served := 0
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		served++
		rw.WriteHeader(http.StatusOK)
	})
	return rl.Middleware(testErrDomain)(next), &served
}

func sendFrom(h http.Handler, clientIP string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/store/products", nil)
	req.Header.Set("X-Forwarded-For", clientIP+", 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl, err := NewRateLimiter(RateLimitParams{Max: 100, Window: time.Minute},
		RateLimitOpts{Now: func() time.Time { return now }})
	require.NoError(t, err)
	h, served := makeRateLimitedHandler(t, rl)

	for i := 1; i <= 100; i++ {
		rec := sendFrom(h, "1.2.3.4")
		require.Equal(t, http.StatusOK, rec.Code, "request #%d", i)
		require.Equal(t, "100", rec.Header().Get(HeaderRateLimitLimit))
		require.Equal(t, strconv.Itoa(100-i), rec.Header().Get(HeaderRateLimitRemaining), "request #%d", i)
		require.Equal(t, "1700000060", rec.Header().Get(HeaderRateLimitReset))
		now = now.Add(100 * time.Millisecond)
	}

	rec := sendFrom(h, "1.2.3.4")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get(HeaderRateLimitRemaining))
	require.Equal(t, "50", rec.Header().Get(HeaderRetryAfter))
	var body RateLimitRejectionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, RateLimitRejectionBody{Message: DefaultRateLimitMessage, RetryAfter: 50}, body)
	require.Equal(t, 100, *served)

	// Another client has its own counter.
	require.Equal(t, http.StatusOK, sendFrom(h, "5.6.7.8").Code)
	require.Equal(t, 2, rl.ActiveEntries())

	// After the window ends, the client starts from scratch.
	now = time.Unix(1700000061, 0)
	rec = sendFrom(h, "1.2.3.4")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "99", rec.Header().Get(HeaderRateLimitRemaining))

	require.Equal(t, float64(102), testutil.ToFloat64(rl.decisions.WithLabelValues(RateLimitDecisionAllowed)))
	require.Equal(t, float64(1), testutil.ToFloat64(rl.decisions.WithLabelValues(RateLimitDecisionRejected)))
}

func TestRateLimiter_Delay(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sleeper := &fakeSleeper{}
	rl, err := NewRateLimiter(RateLimitParams{Max: 10, Window: time.Minute, DelayAfter: 2, TimeWait: time.Second},
		RateLimitOpts{Now: func() time.Time { return now }, Sleep: sleeper.Sleep})
	require.NoError(t, err)
	h, served := makeRateLimitedHandler(t, rl)

	for i := 0; i < 11; i++ {
		sendFrom(h, "1.2.3.4")
	}
	require.Equal(t, 10, *served)
	require.Equal(t, []time.Duration{
		1 * time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second,
		5 * time.Second, 5 * time.Second, 5 * time.Second, 5 * time.Second,
	}, sleeper.delays)
}

func TestRateLimiter_DelayInterruptedByClient(t *testing.T) {
	rl, err := NewRateLimiter(RateLimitParams{Max: 10, Window: time.Minute, DelayAfter: 1, TimeWait: time.Hour},
		RateLimitOpts{})
	require.NoError(t, err)
	h, served := makeRateLimitedHandler(t, rl)

	require.Equal(t, http.StatusOK, sendFrom(h, "1.2.3.4").Code)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/store/products", nil).WithContext(ctx)
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, 1, *served)
}

func TestRateLimiter_Options(t *testing.T) {
	t.Run("whitelist", func(t *testing.T) {
		rl, err := NewRateLimiter(RateLimitParams{Max: 1, Window: time.Minute},
			RateLimitOpts{Whitelist: []string{"10.0.*", "127.0.0.1"}})
		require.NoError(t, err)
		h, served := makeRateLimitedHandler(t, rl)
		for i := 0; i < 5; i++ {
			rec := sendFrom(h, "10.0.3.4")
			require.Equal(t, http.StatusOK, rec.Code)
			require.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
		}
		require.Equal(t, 5, *served)
		require.Equal(t, 0, rl.ActiveEntries())
	})

	t.Run("no headers and custom message", func(t *testing.T) {
		rl, err := NewRateLimiter(RateLimitParams{Max: 1, Window: time.Minute},
			RateLimitOpts{DisableHeaders: true, Message: "Slow down."})
		require.NoError(t, err)
		h, _ := makeRateLimitedHandler(t, rl)
		require.Equal(t, http.StatusOK, sendFrom(h, "1.2.3.4").Code)
		rec := sendFrom(h, "1.2.3.4")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Empty(t, rec.Header().Get(HeaderRateLimitRemaining))
		require.NotEmpty(t, rec.Header().Get(HeaderRetryAfter))
		require.Contains(t, rec.Body.String(), `"message":"Slow down."`)
	})

	t.Run("rejection is logged", func(t *testing.T) {
		rl, err := NewRateLimiter(RateLimitParams{Max: 1, Window: time.Minute}, RateLimitOpts{})
		require.NoError(t, err)
		logger := logtest.NewRecorder()
		h, _ := makeRateLimitedHandler(t, rl)
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/store/products", nil)
			req.RemoteAddr = "1.2.3.4:5555"
			req = req.WithContext(NewContextWithLogger(req.Context(), logger))
			h.ServeHTTP(httptest.NewRecorder(), req)
		}
		entry, found := logger.FindEntry("too many requests")
		require.True(t, found)
		require.Equal(t, "1.2.3.4", entry.FieldString(RateLimitLogFieldKey))
	})

	t.Run("invalid params", func(t *testing.T) {
		_, err := NewRateLimiter(RateLimitParams{Max: 0, Window: time.Minute}, RateLimitOpts{})
		require.EqualError(t, err, "max requests should be positive, got 0")
	})
}

func TestRateLimiter_LeakyBucket(t *testing.T) {
	rl, err := NewLeakyBucketRateLimiter(1, time.Minute, 0, 100, RateLimitOpts{})
	require.NoError(t, err)
	require.Nil(t, rl.NewSweeper(time.Minute, nil))
	h, served := makeRateLimitedHandler(t, rl)

	require.Equal(t, http.StatusOK, sendFrom(h, "1.2.3.4").Code)
	rec := sendFrom(h, "1.2.3.4")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	retryAfter, err := strconv.Atoi(rec.Header().Get(HeaderRetryAfter))
	require.NoError(t, err)
	require.InDelta(t, 60, retryAfter, 1)
	require.Equal(t, 1, *served)
}

func TestGetClientKey(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 10.0.0.1"}, "10.0.0.2:80", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "10.0.0.2:80", "5.6.7.8"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"}, "", "1.2.3.4"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote addr without port", nil, "9.9.9.9", "9.9.9.9"},
		{"unknown", nil, "", UnknownClientKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientKey(req))
		})
	}
}

func TestRateLimitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewRateLimitConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg))
		require.Equal(t, RateLimitConfig{
			Enabled:       true,
			Alg:           RateLimitAlgFixedWindow,
			Max:           100,
			Window:        time.Minute,
			DelayAfter:    0,
			TimeWait:      time.Second,
			MaxDelay:      5 * time.Second,
			Headers:       true,
			Message:       DefaultRateLimitMessage,
			SweepInterval: time.Minute,
			LeakyBucket:   LeakyBucketConfig{MaxKeys: DefaultRateLimitMaxKeys},
		}, *cfg)
	})

	t.Run("defaults reject the request after max", func(t *testing.T) {
		cfg := NewRateLimitConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg))

		now := time.Unix(1700000000, 0)
		start := now
		sleeper := &fakeSleeper{}
		rl, err := NewRateLimiterFromConfig(cfg, RateLimitOpts{
			Now: func() time.Time { return now },
			Sleep: func(ctx context.Context, d time.Duration) error {
				now = now.Add(d)
				return sleeper.Sleep(ctx, d)
			},
		})
		require.NoError(t, err)
		h, served := makeRateLimitedHandler(t, rl)

		for i := 1; i <= 100; i++ {
			rec := sendFrom(h, "1.2.3.4")
			require.Equal(t, http.StatusOK, rec.Code, "request #%d", i)
			now = now.Add(100 * time.Millisecond)
		}
		rec := sendFrom(h, "1.2.3.4")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, 100, *served)
		require.Empty(t, sleeper.delays)
		require.Less(t, now.Sub(start), cfg.Window)
	})

	t.Run("custom", func(t *testing.T) {
		data := `
rateLimit:
  max: 5
  window: 10s
  delayAfter: 80
  headers: false
  whitelist: [127.0.0.1, "10.0.*"]
  sweepInterval: 5m
`
		cfg := NewRateLimitConfig()
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, cfg))
		require.Equal(t, 5, cfg.Max)
		require.Equal(t, 10*time.Second, cfg.Window)
		require.Equal(t, 80, cfg.DelayAfter)
		require.False(t, cfg.Headers)
		require.Equal(t, []string{"127.0.0.1", "10.0.*"}, cfg.Whitelist)
		require.Equal(t, ratelimit.LongSweepInterval, cfg.SweepInterval)

		rl, err := NewRateLimiterFromConfig(cfg, RateLimitOpts{})
		require.NoError(t, err)
		h, _ := makeRateLimitedHandler(t, rl)
		rec := sendFrom(h, "1.2.3.4")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, rec.Header().Get(HeaderRateLimitLimit))
	})

	t.Run("unknown alg", func(t *testing.T) {
		data := "rateLimit:\n  alg: sliding_log\n"
		err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, NewRateLimitConfig())
		require.EqualError(t, err, `rateLimit.alg: unknown value "sliding_log", should be one of [fixed_window leaky_bucket]`)
	})
}
