// Package version exposes what build of the weather range service is
// running: the version number, build timestamp, and git commit, stamped in
// via ldflags, plus the Go runtime and platform observed at startup.
package version

import "runtime"

// Stamped at build time via ldflags; the defaults identify a local
// development build.
var (
	// Version is the release version of the service
	Version = "1.0.0"

	// BuildTime is when the binary was built, RFC3339
	BuildTime = "unknown"

	// GitCommit is the short commit hash the binary was built from
	GitCommit = "unknown"
)

// Info is the payload served by the /version endpoint.
type Info struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns the build identification for this binary.
func Get() Info {
	return Info{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
