// Package version provides version information for the application.
package version

import "fmt"

// Build information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns a one-line summary of the build.
func String() string {
	return fmt.Sprintf("soundscape %s (commit %s, built %s)", Version, Commit, BuildTime)
}
