/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name        string
		buildInfo   *buildinfo.BuildInfo
		expectedVer string
	}{
		{
			name: "main module",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: ModulePath, Version: "v0.4.0"},
			},
			expectedVer: "v0.4.0",
		},
		{
			name: "main module built from sources",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: ModulePath, Version: develVersion},
			},
			expectedVer: "",
		},
		{
			name: "dependency",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: "github.com/other/shop"},
				Deps: []*debug.Module{{Path: ModulePath, Version: "v1.2.3"}},
			},
			expectedVer: "v1.2.3",
		},
		{
			name: "dependency, v2",
			buildInfo: &buildinfo.BuildInfo{
				Deps: []*debug.Module{{Path: ModulePath + "/v2", Version: "v2.0.0"}},
			},
			expectedVer: "v2.0.0",
		},
		{
			name: "not found",
			buildInfo: &buildinfo.BuildInfo{
				Deps: []*debug.Module{{Path: ModulePath + "-extra", Version: "v1.0.0"}},
			},
			expectedVer: "",
		},
		{
			name:        "nil build info",
			expectedVer: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedVer, extractVersion(tt.buildInfo, ModulePath))
		})
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("edge")
	require.True(t, strings.HasPrefix(ua, "shopkit-edge/v"), ua)
}
