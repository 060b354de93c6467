/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnit starts and stops a group of units together.
type CompositeUnit struct {
	Units []Unit
}

// NewCompositeUnit creates a new composite unit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{units}
}

// Start starts all units concurrently and blocks until every Start returns.
// If any unit fails, the rest are stopped non-gracefully and a CompositeUnitError is reported.
func (cu *CompositeUnit) Start(fatalError chan<- error) {
	fatalErrs := make(chan error, len(cu.Units))
	var wg sync.WaitGroup
	failed := make(chan struct{})
	var failOnce sync.Once
	for _, u := range cu.Units {
		wg.Add(1)
		go func(u Unit) {
			defer wg.Done()
			unitErr := make(chan error, 1)
			u.Start(unitErr)
			select {
			case err := <-unitErr:
				fatalErrs <- err
				failOnce.Do(func() { close(failed) })
			default:
			}
		}(u)
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		if len(fatalErrs) == 0 {
			return
		}
	case <-failed:
	}

	stopErr := cu.Stop(false)
	<-allDone
	close(fatalErrs)
	var errs []error
	for err := range fatalErrs {
		errs = append(errs, err)
	}
	if stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	fatalError <- &CompositeUnitError{errs}
}

// Stop stops all units concurrently and collects their errors into a single CompositeUnitError.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	results := make(chan error, len(cu.Units))
	var wg sync.WaitGroup
	for _, u := range cu.Units {
		wg.Add(1)
		go func(u Unit) {
			defer wg.Done()
			results <- u.Stop(gracefully)
		}(u)
	}
	wg.Wait()
	close(results)

	var errs []error
	for err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &CompositeUnitError{errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that have them.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that have them.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, u := range cu.Units {
		if mr, ok := u.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError is an error which may occurs in CompositeUnit's methods.
type CompositeUnitError struct {
	UnitErrors []error
}

func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(cue.UnitErrors))
	for _, err := range cue.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}
