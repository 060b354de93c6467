/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the edge HTTP server: chi router with the default middlewares,
// route-scoped middleware stacks for /store/* and /admin/*, health and metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/service"
)

const (
	networkTCP  = "tcp"
	networkUnix = "unix"
)

// systemEndpoints is a list of endpoints which are not involved in metrics collecting.
var systemEndpoints = []string{"/metrics", "/health", "/healthz"}

// Opts represents options for creating HTTPServer.
type Opts struct {
	// ErrorDomain is used for error response formatting.
	ErrorDomain string
	// HealthChecks are run by the /health endpoint.
	HealthChecks []HealthCheck
	// RateLimiter is applied to /store/* requests. Rate limiting is disabled when it is nil.
	RateLimiter *middleware.RateLimiter
	// StoreHandler serves /store/*. If it is nil and Config.UpstreamURL is set, a reverse proxy is used.
	StoreHandler http.Handler
	// AdminHandler serves /admin/*. If it is nil and Config.UpstreamURL is set, a reverse proxy is used.
	AdminHandler http.Handler
	// Routes registers additional routes (e.g. /admin/uploads).
	Routes func(router chi.Router)
	// UpstreamTransport is used by the reverse proxy. http.DefaultTransport is used if it is nil.
	UpstreamTransport http.RoundTripper
	// MetricsHandler is a custom handler for the /metrics endpoint.
	MetricsHandler http.Handler
	// MetricsNamespace is a namespace of the HTTP request metrics.
	MetricsNamespace string
	// Listener is a pre-configured network listener to use instead of creating a new one.
	Listener net.Listener
}

// HTTPServer represents a wrapper around http.Server with additional fields and methods.
// It also implements service.Unit and service.MetricsRegisterer interfaces.
type HTTPServer struct {
	URL             string
	HTTPServer      *http.Server
	UnixSocketPath  string
	TLS             TLSConfig
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener         net.Listener
	port             atomic.Int32
	httpServerDone   atomic.Value
	metricsCollector *middleware.HTTPRequestMetricsCollector
	rateLimiter      *middleware.RateLimiter
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer with predefined logging, metrics collecting,
// recovering after panics, route-scoped middlewares and health-checking functionality.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) { //nolint // hugeParam: opts is heavy, it's ok in this case.
	logger = log.OrDisabled(logger)

	storeHandler, adminHandler := opts.StoreHandler, opts.AdminHandler
	if cfg.UpstreamURL != "" && (storeHandler == nil || adminHandler == nil) {
		proxy, err := NewReverseProxy(cfg.UpstreamURL, opts.ErrorDomain, opts.UpstreamTransport)
		if err != nil {
			return nil, fmt.Errorf("create reverse proxy: %w", err)
		}
		if storeHandler == nil {
			storeHandler = proxy
		}
		if adminHandler == nil {
			adminHandler = proxy
		}
	}

	metricsCollector := middleware.NewHTTPRequestMetricsCollector(opts.MetricsNamespace)
	router := chi.NewRouter()
	applyDefaultMiddlewaresToRouter(router, cfg, logger, opts, metricsCollector)
	configureRouter(router, logger, RouterOpts{
		ErrorDomain:    opts.ErrorDomain,
		HealthHandler:  NewHealthCheckHandler(opts.HealthChecks, HealthCheckHandlerOpts{Version: cfg.Version}),
		MetricsHandler: opts.MetricsHandler,
		StoreHandler:   storeHandler,
		AdminHandler:   adminHandler,
		Routes:         opts.Routes,
	})

	srv := newWithHandler(cfg, logger, router, opts.Listener)
	srv.metricsCollector = metricsCollector
	srv.rateLimiter = opts.RateLimiter
	return srv, nil
}

func newWithHandler(cfg *Config, logger log.FieldLogger, handler http.Handler, listener net.Listener) *HTTPServer {
	httpServer := &http.Server{
		Addr:              cfg.Address,
		WriteTimeout:      cfg.Timeouts.Write,
		ReadTimeout:       cfg.Timeouts.Read,
		ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
		IdleTimeout:       cfg.Timeouts.Idle,
		Handler:           handler,
	}

	buildServerURL := func() string {
		serverURL := httpServer.Addr
		if cfg.UnixSocketPath != "" {
			serverURL = "localhost" // Any domain can be used here. It will not be used in unix-socket case.
		}
		if cfg.TLS.Enabled {
			return "https://" + serverURL
		}
		return "http://" + serverURL
	}

	router, _ := handler.(chi.Router)

	return &HTTPServer{
		URL:             buildServerURL(),
		HTTPServer:      httpServer,
		UnixSocketPath:  cfg.UnixSocketPath,
		Logger:          logger,
		TLS:             cfg.TLS,
		ShutdownTimeout: cfg.Timeouts.Shutdown,
		HTTPRouter:      router,
		listener:        listener,
	}
}

// Start starts application HTTP server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("read_header_timeout", s.HTTPServer.ReadHeaderTimeout),
		log.Duration("idle_timeout", s.HTTPServer.IdleTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	if s.UnixSocketPath != "" {
		logger = logger.With(log.String("unix_socket_path", s.UnixSocketPath))
		if err := os.Remove(s.UnixSocketPath); err != nil && !os.IsNotExist(err) {
			fatalError <- fmt.Errorf("remove unix socket file %q: %w", s.UnixSocketPath, err)
			return
		}
	}

	logger.Info("starting edge HTTP server...")

	var err error
	if s.listener == nil {
		network, addr := s.NetworkAndAddr()
		if s.listener, err = net.Listen(network, addr); err != nil {
			logger.Error("edge HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
	}

	if s.listener.Addr().Network() == networkTCP {
		var portStr string
		if _, portStr, err = net.SplitHostPort(s.listener.Addr().String()); err != nil {
			logger.Error("unexpected format of TCP listener address: unable to split host and port", log.Error(err))
			fatalError <- err
			return
		}
		var port int64
		if port, err = strconv.ParseInt(portStr, 10, 32); err != nil {
			logger.Error("unexpected format of TCP listener address: no numeric port", log.Error(err))
			fatalError <- err
			return
		}
		s.port.Store(int32(port))
	}

	if s.TLS.Enabled {
		err = s.HTTPServer.ServeTLS(s.listener, s.TLS.Certificate, s.TLS.Key)
	} else {
		err = s.HTTPServer.Serve(s.listener)
	}
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("edge HTTP server closed")
			return
		}
		logger.Error("edge HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops application HTTP server (gracefully or not).
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing edge HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("edge HTTP server closing error", log.Error(err))
			return err
		}
		s.waitDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down edge HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("edge HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("edge HTTP server shut down")
	s.waitDone()
	return nil
}

// waitDone waits for Start to return if it has been called.
func (s *HTTPServer) waitDone() {
	if done, ok := s.httpServerDone.Load().(chan struct{}); ok && done != nil {
		<-done
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	if s.metricsCollector != nil {
		s.metricsCollector.MustRegisterMetrics()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.MustRegisterMetrics()
	}
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *HTTPServer) UnregisterMetrics() {
	if s.metricsCollector != nil {
		s.metricsCollector.UnregisterMetrics()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.UnregisterMetrics()
	}
}

// NetworkAndAddr returns network type ("tcp" or "unix") and address (path to unix socket in case of "unix" network).
func (s *HTTPServer) NetworkAndAddr() (network string, addr string) {
	if s.UnixSocketPath != "" {
		return networkUnix, s.UnixSocketPath
	}
	return networkTCP, s.HTTPServer.Addr
}

// GetPort returns the TCP port the server listens on. It is 0 until the listener is created.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}
