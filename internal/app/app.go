/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

// Package app assembles the shopedge service from the shopkit components.
package app

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/blackeyesartisan/shopkit/filestore"
	"github.com/blackeyesartisan/shopkit/filestore/cloudinary"
	"github.com/blackeyesartisan/shopkit/httpclient"
	"github.com/blackeyesartisan/shopkit/httpserver"
	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/internal/libinfo"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/notification"
	"github.com/blackeyesartisan/shopkit/profserver"
	"github.com/blackeyesartisan/shopkit/service"
)

// ErrorDomain is used in the error responses of the edge.
const ErrorDomain = "ShopEdge"

const partialCloudinaryWarning = "cloudinary is partially configured (cloudName, apiKey and apiSecret are required), " +
	"falling back to the local file storage"

// Opts represents options for New.
type Opts struct {
	MetricsNamespace string
	// Listener is used by the HTTP server instead of listening on the configured address.
	Listener net.Listener
	// UpstreamTransport is used for proxying requests to the commerce API.
	UpstreamTransport http.RoundTripper
	// ProfListener is used by the profiling server, if it's enabled.
	ProfListener net.Listener
}

// App is the shopedge service. It implements service.Unit and service.MetricsRegisterer.
type App struct {
	Server  *httpserver.HTTPServer
	Storage *filestore.Storage
	// Sender is nil when notifications are not configured.
	Sender *notification.Sender
	// ProfServer is nil when profiling is disabled.
	ProfServer *profserver.ProfServer

	unit        *service.CompositeUnit
	collectors  []service.MetricsRegisterer
	redisClient *redis.Client
	logger      log.FieldLogger
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// New creates the App: the file storage (Cloudinary or the local disk), the email sender,
// the rate limiter with its sweeper, the HTTP server exposing all of them and the optional profiling server.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*App, error) { //nolint // hugeParam: opts is heavy, it's ok in this case.
	logger = log.OrDisabled(logger)
	a := &App{logger: logger}

	httpClientMetrics := httpclient.NewPrometheusMetricsCollector(opts.MetricsNamespace)
	a.collectors = append(a.collectors, httpClientMetrics)
	httpOpts := httpclient.Opts{
		UserAgent:         libinfo.UserAgent("edge"),
		Collector:         httpClientMetrics,
		RequestIDProvider: middleware.GetRequestIDFromContext,
	}

	provider, staticHandler, err := newFileProvider(cfg.FileStorage, logger, httpOpts)
	if err != nil {
		return nil, err
	}
	storageMetrics := filestore.NewPrometheusMetrics(opts.MetricsNamespace)
	a.collectors = append(a.collectors, storageMetrics)
	a.Storage = filestore.NewStorage(provider, filestore.StorageOpts{
		SizeLimit: cfg.FileStorage.SizeLimit,
		Logger:    logger,
		Metrics:   storageMetrics,
	})

	if cfg.Notification.Enabled() {
		notificationMetrics := notification.NewPrometheusMetrics(opts.MetricsNamespace)
		a.collectors = append(a.collectors, notificationMetrics)
		if a.Sender, err = notification.NewSenderFromConfig(cfg.Notification, logger, httpOpts, notificationMetrics); err != nil {
			return nil, fmt.Errorf("create notification sender: %w", err)
		}
	} else {
		logger.Warn("notifications are disabled, notification.apiKey is not set")
	}

	healthChecks := []httpserver.HealthCheck{a.Storage.HealthCheck()}
	if cfg.Cache.Enabled() {
		if a.redisClient, err = httpserver.NewRedisClient(cfg.Cache); err != nil {
			return nil, err
		}
		healthChecks = append(healthChecks, httpserver.NewRedisPingCheck(a.redisClient))
	}

	var units []service.Unit
	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		if rateLimiter, err = middleware.NewRateLimiterFromConfig(cfg.RateLimit, middleware.RateLimitOpts{
			MetricsNamespace: opts.MetricsNamespace,
		}); err != nil {
			a.closeRedis()
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		if sweeper := rateLimiter.NewSweeper(cfg.RateLimit.SweepInterval, logger); sweeper != nil {
			units = append(units, sweeper)
		}
	}

	if cfg.ProfServer.Enabled {
		a.ProfServer = profserver.New(cfg.ProfServer, logger, opts.ProfListener)
		units = append(units, a.ProfServer)
	}

	uploads := filestore.NewUploadsHandler(a.Storage, ErrorDomain)
	a.Server, err = httpserver.New(cfg.Server, logger, httpserver.Opts{
		ErrorDomain:       ErrorDomain,
		HealthChecks:      healthChecks,
		RateLimiter:       rateLimiter,
		UpstreamTransport: opts.UpstreamTransport,
		MetricsNamespace:  opts.MetricsNamespace,
		Listener:          opts.Listener,
		Routes: func(router chi.Router) {
			uploads.Routes(router)
			if a.Sender != nil {
				notification.NewHandler(a.Sender, ErrorDomain).Routes(router)
			}
			if staticHandler != nil {
				mountStatic(router, cfg.FileStorage.Local.BaseURL, staticHandler)
			}
		},
	})
	if err != nil {
		a.closeRedis()
		return nil, fmt.Errorf("create http server: %w", err)
	}
	a.unit = service.NewCompositeUnit(append([]service.Unit{a.Server}, units...)...)
	return a, nil
}

// newFileProvider returns the Cloudinary provider when it's fully configured and the local one otherwise.
// The handler serving the local files is returned along with the latter.
func newFileProvider(
	cfg *filestore.Config, logger log.FieldLogger, httpOpts httpclient.Opts,
) (filestore.Provider, http.Handler, error) {
	if cfg.CloudinaryEnabled() {
		httpOpts.ProviderName = "cloudinary"
		httpClient, err := httpclient.NewWithOpts(cfg.HTTP, httpOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("create cloudinary http client: %w", err)
		}
		provider, err := cloudinary.New(cloudinary.Opts{
			CloudName:          cfg.Cloudinary.CloudName,
			APIKey:             cfg.Cloudinary.APIKey,
			APISecret:          cfg.Cloudinary.APISecret,
			Folder:             cfg.Cloudinary.Folder,
			UploadPreset:       cfg.Cloudinary.UploadPreset,
			APIBaseURL:         cfg.Cloudinary.APIBaseURL,
			DeliveryBaseURL:    cfg.Cloudinary.DeliveryBaseURL,
			MaxParallelDeletes: cfg.Cloudinary.MaxParallelDeletes,
			HTTPClient:         httpClient,
			Logger:             logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return provider, nil, nil
	}

	if cfg.CloudinaryPartiallyConfigured() {
		logger.Warn(partialCloudinaryWarning)
	}
	provider, err := filestore.NewLocalProvider(filestore.LocalProviderOpts{
		Dir:     cfg.Local.Dir,
		BaseURL: cfg.Local.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("local file storage is used", log.String("dir", cfg.Local.Dir))
	return provider, provider.Handler(), nil
}

// mountStatic serves the local files under the path of their base URL.
func mountStatic(router chi.Router, baseURL string, handler http.Handler) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return
	}
	prefix := strings.TrimRight(u.Path, "/")
	if prefix == "" {
		return
	}
	router.Method(http.MethodGet, prefix+"/*", http.StripPrefix(prefix, handler))
}

// Start implements service.Unit.
func (a *App) Start(fatalError chan<- error) {
	a.unit.Start(fatalError)
}

// Stop implements service.Unit.
func (a *App) Stop(gracefully bool) error {
	err := a.unit.Stop(gracefully)
	a.closeRedis()
	return err
}

// MustRegisterMetrics implements service.MetricsRegisterer.
func (a *App) MustRegisterMetrics() {
	a.unit.MustRegisterMetrics()
	for _, c := range a.collectors {
		c.MustRegisterMetrics()
	}
}

// UnregisterMetrics implements service.MetricsRegisterer.
func (a *App) UnregisterMetrics() {
	a.unit.UnregisterMetrics()
	for _, c := range a.collectors {
		c.UnregisterMetrics()
	}
}

func (a *App) closeRedis() {
	if a.redisClient == nil {
		return
	}
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warn("failed to close redis client", log.Error(err))
	}
	a.redisClient = nil
}
