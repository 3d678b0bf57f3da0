// Package version holds build information set through -ldflags.
package version

import "fmt"

// Set at build time, e.g.
//
//	go build -ldflags "-X ollama-performance/internal/version.Version=v1.2.0"
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns the version line printed by --version.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
