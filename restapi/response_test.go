/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/log"
	"github.com/blackeyesartisan/shopkit/log/logtest"
)

func TestRespondCodeAndJSON(t *testing.T) {
	t.Run("html is not escaped", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusTooManyRequests, map[string]interface{}{"message": "<b>slow down</b> & retry"}, nil)
		require.Equal(t, http.StatusTooManyRequests, resp.Code)
		require.Equal(t, ContentTypeAppJSON, resp.Header().Get("Content-Type"))
		require.Equal(t, `{"message":"<b>slow down</b> & retry"}`, resp.Body.String())
	})

	t.Run("content type set by caller is kept", func(t *testing.T) {
		resp := httptest.NewRecorder()
		resp.Header().Set("Content-Type", "application/health+json")
		RespondJSON(resp, struct{ Status string }{"ok"}, nil)
		require.Equal(t, "application/health+json", resp.Header().Get("Content-Type"))
		require.Equal(t, `{"Status":"ok"}`, resp.Body.String())
	})

	t.Run("nil data", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
		require.Equal(t, http.StatusNoContent, resp.Code)
		require.Empty(t, resp.Body.String())
	})

	t.Run("marshaling error", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusOK, math.Inf(1), logRecorder)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		require.Len(t, logRecorder.EntriesAtLevel(log.LevelError), 1)
	})
}

func TestRespondError(t *testing.T) {
	registry := prometheus.NewRegistry()
	MustInitAndRegisterMetrics("shopkit", registry)
	defer UnregisterMetrics(registry)

	logRecorder := logtest.NewRecorder()
	resp := httptest.NewRecorder()
	RespondError(resp, http.StatusBadGateway,
		NewError("ShopEdge", ErrCodeBadGateway, ErrMessageBadGateway).AddContext("upstream", "medusa"), logRecorder)

	require.Equal(t, http.StatusBadGateway, resp.Code)
	require.JSONEq(t, `{"error":{"domain":"ShopEdge","code":"badGateway","message":"Upstream service is unavailable.","context":{"upstream":"medusa"}}}`,
		resp.Body.String())

	entry, found := logRecorder.FindEntry("error in response")
	require.True(t, found)
	require.Equal(t, "badGateway", entry.FieldString("error_code"))

	require.Equal(t, 1.0, testutil.ToFloat64(metricsResponseErrors.WithLabelValues("ShopEdge", "badGateway")))

	resp = httptest.NewRecorder()
	RespondInternalError(resp, "ShopEdge", nil)
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.JSONEq(t, `{"error":{"domain":"ShopEdge","code":"internalError","message":"Internal error."}}`, resp.Body.String())
}
