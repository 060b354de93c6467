/*
Copyright © 2025 BlackEyes Artisan.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/blackeyesartisan/shopkit/httpserver/middleware"
	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/restapi"
)

// NewReverseProxy creates a handler that forwards requests to the upstream commerce API.
// Request ids are passed upstream, upstream failures are answered with 502 in the usual error format.
func NewReverseProxy(upstreamURL string, errDomain string, transport http.RoundTripper) (http.Handler, error) {
	target, err := url.Parse(upstreamURL)
	if err != nil {
		return nil, err
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, errors.New("upstream URL should be absolute")
	}
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
			if reqID := middleware.GetRequestIDFromContext(pr.In.Context()); reqID != "" {
				pr.Out.Header.Set(middleware.HeaderRequestID, reqID)
			}
		},
		Transport: transport,
		ErrorHandler: func(rw http.ResponseWriter, r *http.Request, err error) {
			logger := middleware.GetLoggerFromContext(r.Context())
			if errors.Is(err, context.Canceled) {
				rw.WriteHeader(StatusClientClosedRequest)
				return
			}
			if logger != nil {
				logger.Error("upstream request failed", log.Error(err), log.String("upstream", target.Host))
			}
			apiErr := restapi.NewError(errDomain, restapi.ErrCodeBadGateway, restapi.ErrMessageBadGateway)
			restapi.RespondError(rw, http.StatusBadGateway, apiErr, logger)
		},
	}, nil
}
