/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log/logtest"
	"github.com/blackeyesartisan/shopkit/restapi"
	"github.com/blackeyesartisan/shopkit/testutil"
)

const testErrDomain = "ShopEdge"

func newTestConfig(upstreamURL string) *Config {
	return &Config{
		Address:     "127.0.0.1:0",
		Environment: EnvironmentProduction,
		Version:     "1.0.0",
		UpstreamURL: upstreamURL,
		Timeouts:    TimeoutsConfig{Shutdown: 5 * time.Second},
		Limits:      LimitsConfig{MaxBodySize: 16},
		Log:         LogConfig{SlowRequestThreshold: time.Second},
	}
}

func startTestServer(t *testing.T, cfg *Config, opts Opts) *HTTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", cfg.Address)
	require.NoError(t, err)
	opts.Listener = ln
	opts.ErrorDomain = testErrDomain

	srv, err := New(cfg, logtest.NewRecorder(), opts)
	require.NoError(t, err)

	fatalErr := make(chan error, 1)
	go srv.Start(fatalErr)
	port, err := testutil.WaitPortAndListeningServer("127.0.0.1", srv.GetPort, 3*time.Second)
	require.NoError(t, err)
	srv.URL = fmt.Sprintf("http://127.0.0.1:%d", port)

	t.Cleanup(func() {
		require.NoError(t, srv.Stop(true))
		testutil.RequireNoErrorInChannel(t, fatalErr)
	})
	return srv
}

func doRequest(t *testing.T, method, url string, body io.Reader, headers map[string]string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(respBody)
}

func TestHTTPServer_ScopedStacks(t *testing.T) {
	upstreamHeaders := make(chan http.Header, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		select {
		case upstreamHeaders <- r.Header.Clone():
		default:
		}
		rw.Header().Set("X-Powered-By", "Express")
		_, _ = rw.Write([]byte("upstream:" + r.URL.Path))
	}))
	defer upstream.Close()

	rateLimiter, err := middleware.NewRateLimiter(
		middleware.RateLimitParams{Max: 2, Window: time.Minute}, middleware.RateLimitOpts{})
	require.NoError(t, err)

	srv := startTestServer(t, newTestConfig(upstream.URL), Opts{RateLimiter: rateLimiter})

	t.Run("store routes are proxied through the storefront stack", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/store/products", nil,
			map[string]string{"X-Forwarded-For": "203.0.113.7", middleware.HeaderRequestID: "req-1"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "upstream:/store/products", body)

		require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
		require.Equal(t, middleware.HSTSHeaderValue, resp.Header.Get("Strict-Transport-Security"))
		require.Empty(t, resp.Header.Get("X-Powered-By"))
		require.Equal(t, "public, max-age=60, stale-while-revalidate=120", resp.Header.Get("Cache-Control"))
		require.Equal(t, "2", resp.Header.Get(middleware.HeaderRateLimitLimit))
		require.Equal(t, "1", resp.Header.Get(middleware.HeaderRateLimitRemaining))

		gotHeaders := <-upstreamHeaders
		require.Equal(t, "req-1", gotHeaders.Get(middleware.HeaderRequestID))
		require.Contains(t, gotHeaders.Get("X-Forwarded-For"), "203.0.113.7")
	})

	t.Run("store routes are rate limited", func(t *testing.T) {
		headers := map[string]string{"X-Forwarded-For": "198.51.100.1"}
		for i := 0; i < 2; i++ {
			resp, _ := doRequest(t, http.MethodGet, srv.URL+"/store/carts", nil, headers)
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/store/carts", nil, headers)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get(middleware.HeaderRetryAfter))
		require.Contains(t, body, `"retryAfter":`)
		require.Equal(t, 2, rateLimiter.ActiveEntries())
	})

	t.Run("admin routes skip rate limiting and caching", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			resp, body := doRequest(t, http.MethodGet, srv.URL+"/admin/orders", nil,
				map[string]string{"X-Forwarded-For": "198.51.100.1"})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			require.Equal(t, "upstream:/admin/orders", body)
			require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			require.Empty(t, resp.Header.Get(middleware.HeaderRateLimitLimit))
			require.Empty(t, resp.Header.Get("Cache-Control"))
		}
	})

	t.Run("admin body limit", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodPost, srv.URL+"/admin/products", strings.NewReader(strings.Repeat("x", 17)), nil)
		require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		require.Contains(t, body, restapi.ErrCodeTooLarge)
	})

	t.Run("health", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/health", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, body, `"status":"healthy"`)
		require.Contains(t, body, `"version":"1.0.0"`)
		require.Empty(t, resp.Header.Get("X-Content-Type-Options"))
	})

	t.Run("not found", func(t *testing.T) {
		resp, body := doRequest(t, http.MethodGet, srv.URL+"/unknown", nil, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.Contains(t, body, `"code":"notFound"`)
		require.Contains(t, body, `"domain":"`+testErrDomain+`"`)
	})
}

func TestHTTPServer_CustomRoutes(t *testing.T) {
	srv := startTestServer(t, newTestConfig(""), Opts{
		Routes: func(router chi.Router) {
			router.Post("/admin/uploads", func(rw http.ResponseWriter, r *http.Request) {
				rw.WriteHeader(http.StatusCreated)
			})
		},
	})

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/admin/uploads", strings.NewReader("file"), nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/admin/uploads", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Contains(t, body, `"code":"methodNotAllowed"`)

	// Without upstream there is nothing behind the scopes.
	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/store/products", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHTTPServer_UpstreamUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	upstreamURL := upstream.URL
	upstream.Close()

	srv := startTestServer(t, newTestConfig(upstreamURL), Opts{})

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/store/products", nil, nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Contains(t, body, `"code":"badGateway"`)
}

func TestHTTPServer_StopWithoutStart(t *testing.T) {
	srv, err := New(newTestConfig(""), nil, Opts{})
	require.NoError(t, err)
	require.NoError(t, srv.Stop(true))
	require.Equal(t, 0, srv.GetPort())
}
