/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/blackeyesartisan/shopkit/log"
)

type loggableIntMap map[string]int64

func (lm loggableIntMap) EncodeLogfObject(e logf.FieldEncoder) error {
	for key, value := range lm {
		e.EncodeFieldInt64(key, value)
	}
	return nil
}

// LoggingParams stores fields that underlying middlewares and handlers want to see
// in the final "response completed" message of the Logging middleware.
// Provider calls made while serving the request add their durations as time slots.
type LoggingParams struct {
	mu        sync.Mutex
	fields    []log.Field
	timeSlots loggableIntMap
}

// ExtendFields extends list of fields that will be logged by the Logging middleware.
func (lp *LoggingParams) ExtendFields(fields ...log.Field) {
	lp.mu.Lock()
	lp.fields = append(lp.fields, fields...)
	lp.mu.Unlock()
}

// AddTimeSlotDurationInMs adds the duration in milliseconds to the named element of the time_slots map.
func (lp *LoggingParams) AddTimeSlotDurationInMs(name string, dur time.Duration) {
	lp.mu.Lock()
	if lp.timeSlots == nil {
		lp.timeSlots = make(loggableIntMap, 1)
	}
	lp.timeSlots[name] += dur.Milliseconds()
	lp.mu.Unlock()
}

func (lp *LoggingParams) logFields(withTimeSlots bool) []log.Field {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	res := append([]log.Field(nil), lp.fields...)
	if withTimeSlots && len(lp.timeSlots) != 0 {
		slots := make(loggableIntMap, len(lp.timeSlots))
		for k, v := range lp.timeSlots {
			slots[k] = v
		}
		res = append(res, log.Field{Key: "time_slots", Type: logf.FieldTypeObject, Any: slots})
	}
	return res
}
