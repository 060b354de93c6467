/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports the version of the shopkit module the binary is built with.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"
)

// ModulePath is the import path of the shopkit module.
const ModulePath = "github.com/blackeyesartisan/shopkit"

const develVersion = "(devel)"

var version string
var versionOnce sync.Once

// GetVersion returns the version of the module, "v0.0.0" if it cannot be determined.
func GetVersion() string {
	versionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(buildInfo, ModulePath)
		}
		if version == "" {
			version = "v0.0.0"
		}
	})
	return version
}

// UserAgent returns the User-Agent used by the outgoing requests of the component.
func UserAgent(component string) string {
	return "shopkit-" + component + "/" + GetVersion()
}

// extractVersion looks for the module in the main module first (shopedge binary), then in the dependencies.
// Both "modPath" and "modPath/vX" forms are matched.
func extractVersion(buildInfo *buildinfo.BuildInfo, modPath string) string {
	if buildInfo == nil {
		return ""
	}
	re := regexp.MustCompile(`^` + regexp.QuoteMeta(modPath) + `(/v[0-9]+)?$`)
	if re.MatchString(buildInfo.Main.Path) && buildInfo.Main.Version != develVersion {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
