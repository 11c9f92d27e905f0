// Package version carries build identification, stamped via -ldflags.
package version

var (
	// Version is the release version, "dev" for local builds.
	Version = "dev"
	// GitSHA identifies the commit the binary was built from.
	GitSHA = "unknown"
)

// String renders the version for logs and the health endpoint.
func String() string {
	return Version + " (" + GitSHA + ")"
}
