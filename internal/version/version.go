// Package version holds build metadata injected via ldflags.
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build for the startup log, e.g. "v0.3.0 (1a2b3c4, 2026-10-01)".
func String() string {
	return Version + " (" + Commit + ", " + Date + ")"
}
