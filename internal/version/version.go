// Package version holds build-time metadata injected via ldflags.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// These variables are set at build time using -ldflags:
//
//	-X 'github.com/janekbaraniewski/tokenledger/internal/version.Version=...'
//	-X 'github.com/janekbaraniewski/tokenledger/internal/version.CommitHash=...'
//	-X 'github.com/janekbaraniewski/tokenledger/internal/version.BuildDate=...'
var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// IsRelease reports whether Version is a tagged semver release.
func IsRelease() bool {
	v := strings.TrimSpace(Version)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.IsValid(v) && semver.Prerelease(v) == ""
}

// String returns a formatted version string.
func String() string {
	s := Version + " (" + CommitHash + ") built " + BuildDate
	if !IsRelease() {
		s += " [development build]"
	}
	return s
}
