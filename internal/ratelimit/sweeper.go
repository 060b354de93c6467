/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/service"
)

// Sweep intervals used by the storefront and the CMS deployments.
const (
	DefaultSweepInterval = time.Minute
	LongSweepInterval    = 5 * time.Minute
)

// NewSweeper returns a unit that periodically removes expired entries from the registry.
// Stopping the unit stops the timer, so the registry may be dropped afterwards.
// nowFn may be nil, time.Now is used then.
func NewSweeper(
	reg *FixedWindowRegistry, interval time.Duration, nowFn func() time.Time, logger log.FieldLogger,
) *service.WorkerUnit {
	if nowFn == nil {
		nowFn = time.Now
	}
	logger = log.OrDisabled(logger)
	sweep := service.WorkerFunc(func(ctx context.Context) error {
		if removed := reg.Sweep(nowFn()); removed > 0 {
			logger.Debug("expired rate limit entries removed",
				log.Int("removed", removed), log.Int("remaining", reg.Len()))
		}
		return nil
	})
	pw := service.NewPeriodicWorkerWithOpts(sweep, interval, logger, service.PeriodicWorkerOpts{InitialDelay: interval})
	return service.NewWorkerUnitWithOpts(pw, service.WorkerUnitOpts{GracefulStopTimeout: 5 * time.Second})
}
