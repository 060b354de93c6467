/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides a separate HTTP server exposing pprof handlers under /debug/pprof/.
package profserver

import (
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/atomic"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/service"
)

// ProfServer is the profiling HTTP server. It implements service.Unit.
type ProfServer struct {
	HTTPServer *http.Server
	Logger     log.FieldLogger

	listener net.Listener
	port     atomic.Int32
	done     chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new ProfServer. If listener is nil, the server listens on cfg.Address.
func New(cfg *Config, logger log.FieldLogger, listener net.Listener) *ProfServer {
	logger = log.OrDisabled(logger)
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{}),
	)
	router.Mount("/debug", chimiddleware.Profiler())

	return &ProfServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		Logger:   logger,
		listener: listener,
		done:     make(chan struct{}),
	}
}

// Start serves pprof in a blocking way. A listening error is sent into fatalError.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.done)
	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))

	ln := s.listener
	if ln == nil {
		var err error
		if ln, err = net.Listen("tcp", s.HTTPServer.Addr); err != nil {
			logger.Error("profiling HTTP server listen error", log.Error(err))
			fatalError <- err
			return
		}
	}
	if tcpAddr, ok := ln.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(tcpAddr.Port))
	}

	logger.Info("starting profiling HTTP server...")
	if err := s.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("profiling HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	logger.Info("profiling HTTP server closed")
}

// Stop closes the server. Profiling requests may last for tens of seconds, so it's never graceful.
func (s *ProfServer) Stop(_ bool) error {
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling HTTP server closing error", log.Error(err))
		return err
	}
	<-s.done
	return nil
}

// GetPort returns the listening port, 0 until the server is started.
func (s *ProfServer) GetPort() int {
	return int(s.port.Load())
}
