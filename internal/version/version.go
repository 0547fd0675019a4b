// Package version holds the library version and the compatibility stamp
// written into every saved model.
package version

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the full library version.
const Version = "0.3.1"

// MajorVersion returns the compatibility stamp ("major.minor") for Version.
//
// Saved models carry this stamp and only load into a library with the same one.
func MajorVersion() string {
	return strings.TrimPrefix(semver.MajorMinor("v"+Version), "v")
}

// Compatible reports whether stamp matches the running library.
func Compatible(stamp string) bool {
	return stamp != "" && stamp == MajorVersion()
}
