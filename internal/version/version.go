// Package version holds build metadata for the gridmap binary. Release
// builds set these with
//
//	-ldflags "-X github.com/banshee-data/gridmap/internal/version.Version=..."
package version

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)
