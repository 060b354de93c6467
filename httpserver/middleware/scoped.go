/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/vasayxtx/go-glob"
)

// Scope binds a stack of middlewares to the request paths that match a glob pattern ("/store/*").
type Scope struct {
	PathPattern string
	Middlewares []func(http.Handler) http.Handler
}

type compiledScope struct {
	match   func(string) bool
	handler http.Handler
}

// Scoped is a middleware that serves each request through the stack of the first scope whose pattern
// matches the request path. Requests that match no scope go straight to next.
func Scoped(scopes ...Scope) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compiled := make([]compiledScope, 0, len(scopes))
		for _, s := range scopes {
			h := next
			for i := len(s.Middlewares) - 1; i >= 0; i-- {
				h = s.Middlewares[i](h)
			}
			compiled = append(compiled, compiledScope{match: glob.Compile(s.PathPattern), handler: h})
		}
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			for i := range compiled {
				if compiled[i].match(r.URL.Path) {
					compiled[i].handler.ServeHTTP(rw, r)
					return
				}
			}
			next.ServeHTTP(rw, r)
		})
	}
}
