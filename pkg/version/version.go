// Package version holds build metadata, set with -ldflags at build time.
package version

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
