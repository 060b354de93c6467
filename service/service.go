/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/blackeyesartisan/shopkit/log"
)

// Service starts a unit, registers its metrics and stops it gracefully on a shutdown signal.
type Service struct {
	Unit    Unit
	Signals chan os.Signal
	Logger  log.FieldLogger

	shutdownSignals []os.Signal
}

// New creates a Service that stops on SIGINT and SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return &Service{
		Unit:            unit,
		Signals:         make(chan os.Signal, 1),
		Logger:          log.OrDisabled(logger),
		shutdownSignals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// Start wraps StartContext using the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext starts the unit in a separate goroutine and blocks until a fatal error occurs,
// ctx is canceled or a shutdown signal is received.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	fatalError := make(chan error, 1)
	go s.Unit.Start(fatalError)

	signal.Notify(s.Signals, s.shutdownSignals...)
	defer signal.Stop(s.Signals)

	select {
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
	case err := <-fatalError:
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
	}
	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
