/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// Route scopes of the edge server.
const (
	StoreScopePattern = "/store/*"
	AdminScopePattern = "/admin/*"
)

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	RootMiddlewares []func(http.Handler) http.Handler
	ErrorDomain     string
	HealthHandler   http.Handler
	MetricsHandler  http.Handler
	// StoreHandler serves /store/* requests (usually a reverse proxy to the commerce API).
	StoreHandler http.Handler
	// AdminHandler serves /admin/* requests that are not handled by Routes.
	AdminHandler http.Handler
	// Routes registers additional routes. Static routes take precedence over the scope wildcards.
	Routes func(router chi.Router)
}

// NewRouter creates a new chi.Router and performs its basic configuration.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	router := chi.NewRouter()
	configureRouter(router, logger, opts)
	return router
}

// nolint // hugeParam: opts is heavy, it's ok in this case.
func configureRouter(router chi.Router, logger log.FieldLogger, opts RouterOpts) {
	router.Use(opts.RootMiddlewares...)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)

	healthHandler := opts.HealthHandler
	if healthHandler == nil {
		healthHandler = NewHealthCheckHandler(nil, HealthCheckHandlerOpts{})
	}
	router.Method(http.MethodGet, "/health", healthHandler)
	router.Method(http.MethodGet, "/healthz", healthHandler)

	if opts.StoreHandler != nil {
		router.Handle(StoreScopePattern, opts.StoreHandler)
	}
	if opts.AdminHandler != nil {
		router.Handle(AdminScopePattern, opts.AdminHandler)
	}
	if opts.Routes != nil {
		opts.Routes(router)
	}

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound)
		restapi.RespondError(rw, http.StatusNotFound, apiErr, logger)
	})

	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed)
		restapi.RespondError(rw, http.StatusMethodNotAllowed, apiErr, logger)
	})
}

// nolint // hugeParam: opts is heavy, it's ok in this case.
func applyDefaultMiddlewaresToRouter(
	router chi.Router, cfg *Config, logger log.FieldLogger, opts Opts, metricsCollector *middleware.HTTPRequestMetricsCollector,
) {
	router.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			handler.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
		})
	})

	router.Use(middleware.RequestID())

	router.Use(middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
		RequestStart:         cfg.Log.RequestStart,
		ExcludedEndpoints:    cfg.Log.ExcludedEndpoints,
		SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
	}))

	router.Use(middleware.Recovery(opts.ErrorDomain))

	router.Use(middleware.HTTPRequestMetrics(metricsCollector, middleware.GetChiRoutePattern, systemEndpoints...))

	router.Use(middleware.Scoped(
		middleware.Scope{PathPattern: StoreScopePattern, Middlewares: storeMiddlewares(cfg, opts)},
		middleware.Scope{PathPattern: AdminScopePattern, Middlewares: adminMiddlewares(cfg, opts)},
	))
}

func storeMiddlewares(cfg *Config, opts Opts) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders(middleware.SecurityHeadersOpts{HSTS: cfg.IsProduction()}),
	}
	if opts.RateLimiter != nil {
		mws = append(mws, opts.RateLimiter.Middleware(opts.ErrorDomain))
	}
	return append(mws,
		middleware.CacheControl(cfg.CacheMaxAge()),
		middleware.Timing(cfg.Log.SlowRequestThreshold),
	)
}

func adminMiddlewares(cfg *Config, opts Opts) []func(http.Handler) http.Handler {
	mws := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders(middleware.SecurityHeadersOpts{HSTS: cfg.IsProduction()}),
	}
	if cfg.Limits.MaxBodySize > 0 {
		mws = append(mws, middleware.RequestBodyLimit(cfg.Limits.MaxBodySize, opts.ErrorDomain))
	}
	return append(mws, middleware.Timing(cfg.Log.SlowRequestThreshold))
}
