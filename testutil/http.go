/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/restapi"
)

// RequireErrorInRecorder asserts that the recorder contains {"error": {...}} with the given status, domain and code.
// The decoded error is returned, so its message and context may be checked too.
func RequireErrorInRecorder(
	t require.TestingT, rec *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string,
) *restapi.Error {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, rec.Code, rec.Header(), rec.Body, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse is the same as RequireErrorInRecorder but for http.Response.
func RequireErrorInResponse(
	t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string,
) *restapi.Error {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return requireErrorInResponse(t, resp.StatusCode, resp.Header, resp.Body, wantHTTPCode, wantErrDomain, wantErrCode)
}

func requireErrorInResponse(
	t require.TestingT, code int, header http.Header, body io.Reader, wantHTTPCode int, wantErrDomain, wantErrCode string,
) *restapi.Error {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantHTTPCode, code)
	require.Equal(t, restapi.ContentTypeAppJSON, header.Get("Content-Type"))
	var errResp restapi.ErrorResponseData
	require.NoError(t, json.NewDecoder(body).Decode(&errResp))
	if errResp.Err == nil {
		require.FailNow(t, `response body has no "error" object`)
		return nil
	}
	require.Equal(t, wantErrDomain, errResp.Err.Domain)
	require.Equal(t, wantErrCode, errResp.Err.Code)
	return errResp.Err
}

// RequireJSONInRecorder asserts that the recorder contains JSON which is decoded into dest equal to want.
func RequireJSONInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSONInResponse(t, rec.Header(), rec.Body, want, dest)
}

// RequireJSONInResponse is the same as RequireJSONInRecorder but for http.Response.
func RequireJSONInResponse(t require.TestingT, resp *http.Response, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	requireJSONInResponse(t, resp.Header, resp.Body, want, dest)
}

func requireJSONInResponse(t require.TestingT, header http.Header, body io.Reader, want, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, restapi.ContentTypeAppJSON, header.Get("Content-Type"))
	bodyBytes, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(bodyBytes, dest))
	require.Equal(t, want, dest)
}
