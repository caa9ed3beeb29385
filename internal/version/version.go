// Package version provides build-time version information.
package version

import "fmt"

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X github.com/javanstorm/utmnet/internal/version.Version=0.3.0 \
//	                   -X github.com/javanstorm/utmnet/internal/version.Commit=$(git rev-parse --short HEAD)"
var (
	// Version is the semantic version of utmnet.
	Version = "dev"

	// Commit is the git commit SHA at build time.
	Commit = "unknown"

	// BuildDate is the date when the binary was built.
	BuildDate = "unknown"
)

// String returns a one-line version summary, e.g. "0.3.0 (a1b2c3d)".
func String() string {
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
