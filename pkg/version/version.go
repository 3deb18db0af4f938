// Package version provides the roze-mcp build version.
package version

// version is set at build time via -ldflags.
var version = "dev"

// GetVersion returns the current version of roze-mcp.
func GetVersion() string {
	return version
}
