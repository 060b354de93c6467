/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type blockingUnit struct {
	stop      chan struct{}
	stopCalls atomic.Int32
	stopErr   error
}

func newBlockingUnit() *blockingUnit {
	return &blockingUnit{stop: make(chan struct{})}
}

func (u *blockingUnit) Start(_ chan<- error) { <-u.stop }

func (u *blockingUnit) Stop(_ bool) error {
	if u.stopCalls.Inc() == 1 {
		close(u.stop)
	}
	return u.stopErr
}

type failingUnit struct{ err error }

func (u failingUnit) Start(fatalErr chan<- error) { fatalErr <- u.err }
func (u failingUnit) Stop(_ bool) error          { return nil }

func TestCompositeUnit(t *testing.T) {
	t.Run("stop stops all units", func(t *testing.T) {
		u1, u2 := newBlockingUnit(), newBlockingUnit()
		cu := NewCompositeUnit(u1, u2)
		fatalErr := make(chan error, 1)
		started := make(chan struct{})
		go func() {
			cu.Start(fatalErr)
			close(started)
		}()
		require.NoError(t, cu.Stop(true))
		<-started
		require.Empty(t, fatalErr)
		require.Equal(t, int32(1), u1.stopCalls.Load())
		require.Equal(t, int32(1), u2.stopCalls.Load())
	})

	t.Run("failure of one unit stops others", func(t *testing.T) {
		blocking := newBlockingUnit()
		blocking.stopErr = errors.New("stop failed")
		cu := NewCompositeUnit(blocking, failingUnit{errors.New("listen failed")})
		fatalErr := make(chan error, 1)
		cu.Start(fatalErr)

		var cuErr *CompositeUnitError
		require.ErrorAs(t, <-fatalErr, &cuErr)
		require.Len(t, cuErr.UnitErrors, 2)
		require.EqualError(t, cuErr, "listen failed; stop failed")
	})
}

func TestService_StartContext(t *testing.T) {
	unit := NewWorkerUnit(WorkerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, New(nil, unit).StartContext(ctx))

	failing := New(nil, failingUnit{errors.New("port is busy")})
	require.EqualError(t, failing.StartContext(context.Background()), "fatal error: port is busy")
}
