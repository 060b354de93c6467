/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blackeyesartisan/shopkit/restapi"
)

var errorTests = []struct {
	Name             string
	RespCode         int
	RespBody         string
	RespContentType  string
	RequireCode      int
	RequireErrDomain string
	RequireErrCode   string
	WantFailed       bool
}{
	{
		Name:             "ok",
		RespCode:         413,
		RespContentType:  restapi.ContentTypeAppJSON,
		RespBody:         `{"error":{"domain":"ShopEdge","code":"requestEntityTooLarge"}}`,
		RequireCode:      413,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "requestEntityTooLarge",
	},
	{
		Name:             "unexpected status code",
		RespCode:         400,
		RespContentType:  restapi.ContentTypeAppJSON,
		RespBody:         `{"error":{"domain":"ShopEdge","code":"notFound"}}`,
		RequireCode:      404,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "notFound",
		WantFailed:       true,
	},
	{
		Name:             "unexpected content type",
		RespCode:         404,
		RespContentType:  "text/html",
		RespBody:         `{"error":{"domain":"ShopEdge","code":"notFound"}}`,
		RequireCode:      404,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "notFound",
		WantFailed:       true,
	},
	{
		Name:             "unexpected domain",
		RespCode:         404,
		RespContentType:  restapi.ContentTypeAppJSON,
		RespBody:         `{"error":{"domain":"Commerce","code":"notFound"}}`,
		RequireCode:      404,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "notFound",
		WantFailed:       true,
	},
	{
		Name:             "unexpected code",
		RespCode:         404,
		RespContentType:  restapi.ContentTypeAppJSON,
		RespBody:         `{"error":{"domain":"ShopEdge","code":"badGateway"}}`,
		RequireCode:      404,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "notFound",
		WantFailed:       true,
	},
	{
		Name:             "not wrapped",
		RespCode:         404,
		RespContentType:  restapi.ContentTypeAppJSON,
		RespBody:         `{"domain":"ShopEdge","code":"notFound"}`,
		RequireCode:      404,
		RequireErrDomain: "ShopEdge",
		RequireErrCode:   "notFound",
		WantFailed:       true,
	},
}

func TestRequireErrorInRecorder(t *testing.T) {
	for i := range errorTests {
		tt := errorTests[i]
		t.Run(tt.Name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set("Content-Type", tt.RespContentType)
			rec.WriteHeader(tt.RespCode)
			_, _ = rec.Write([]byte(tt.RespBody))
			mockT := &MockT{}
			RequireErrorInRecorder(mockT, rec, tt.RequireCode, tt.RequireErrDomain, tt.RequireErrCode)
			require.Equal(t, tt.WantFailed, mockT.Failed)
		})
	}
}

func TestRequireErrorInResponse(t *testing.T) {
	tt := errorTests[0]
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", tt.RespContentType)
		rw.WriteHeader(tt.RespCode)
		_, _ = rw.Write([]byte(tt.RespBody))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	apiErr := RequireErrorInResponse(t, resp, tt.RequireCode, tt.RequireErrDomain, tt.RequireErrCode)
	require.Equal(t, &restapi.Error{Domain: "ShopEdge", Code: "requestEntityTooLarge"}, apiErr)
}

func TestRequireJSONInRecorder(t *testing.T) {
	type fileHandle struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	tests := []struct {
		name        string
		contentType string
		body        string
		wantFailed  bool
	}{
		{"ok", restapi.ContentTypeAppJSON, `{"url":"https://cdn/a.png","key":"a"}`, false},
		{"unexpected content type", "text/plain", `{"url":"https://cdn/a.png","key":"a"}`, true},
		{"unexpected value", restapi.ContentTypeAppJSON, `{"url":"https://cdn/b.png","key":"b"}`, true},
		{"invalid JSON", restapi.ContentTypeAppJSON, `{"url":`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rec.Header().Set("Content-Type", tt.contentType)
			_, _ = rec.Write([]byte(tt.body))

			mockT := &MockT{}
			RequireJSONInRecorder(mockT, rec, &fileHandle{URL: "https://cdn/a.png", Key: "a"}, &fileHandle{})
			require.Equal(t, tt.wantFailed, mockT.Failed)
		})
	}
}
