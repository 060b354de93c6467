/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// RecoveryDefaultStackSize defines the default size of stack part which will be logged.
const RecoveryDefaultStackSize = 8192

// Recovery is a middleware that recovers from panics, logs the panic value with a part of the stack
// and responds with 500 and an internal error of the given domain.
// http.ErrAbortHandler is propagated without logging the stack.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				logger := GetLoggerFromContext(r.Context())
				if p == http.ErrAbortHandler { //nolint:errorlint
					if logger != nil {
						logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
					}
					panic(p)
				}
				if logger != nil {
					stack := make([]byte, RecoveryDefaultStackSize)
					stack = stack[:runtime.Stack(stack, false)]
					logger.Error(fmt.Sprintf("Panic: %+v", p), log.Bytes("stack", stack))
				}
				restapi.RespondInternalError(rw, errDomain, logger)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
