// Package version provides build information for oembridge binaries.
package version

import (
	"fmt"
	"runtime"
)

// These variables are set during build time via ldflags:
//
//	-X github.com/goclaw/oembridge/pkg/version.Version=v1.2.0
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GoVersion = runtime.Version()
)

// Info returns a map with all version information.
func Info() map[string]string {
	return map[string]string{
		"version":   Version,
		"buildTime": BuildTime,
		"gitCommit": GitCommit,
		"goVersion": GoVersion,
	}
}

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("oembridge %s (commit %s, built %s, %s)", Version, GitCommit, BuildTime, GoVersion)
}
