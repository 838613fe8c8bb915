// Package version reports the version of this module, as recorded by the Go
// toolchain in the binary.
package version

import (
	"runtime/debug"
)

// Default is returned when no version is recorded, such as with `go run` or
// a local build.
const Default = "dev"

const modulePath = "github.com/dayofthepenguin/vulcan"

// GetVersion returns the version of github.com/dayofthepenguin/vulcan, whether
// it is the main module or a dependency of the main module.
func GetVersion() string {
	info, ok := debug.ReadBuildInfo()
	return versionFromBuildInfo(info, ok)
}

func versionFromBuildInfo(info *debug.BuildInfo, ok bool) string {
	if !ok || info == nil {
		return Default
	}
	if info.Main.Path == modulePath {
		return normalize(info.Main.Version)
	}
	for _, dep := range info.Deps {
		if dep.Path != modulePath {
			continue
		}
		// A replaced dependency reports the version of its replacement.
		if dep.Replace != nil {
			return normalize(dep.Replace.Version)
		}
		return normalize(dep.Version)
	}
	return Default
}

func normalize(v string) string {
	if v == "" || v == "(devel)" {
		return Default
	}
	return v
}
