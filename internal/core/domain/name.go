package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const versionMarker = "v="

// ParseName splits a possibly versioned name into its path and version.
//
//	"/root/ground"     -> ("/root/ground", LatestVersion)
//	"/root/ground/v=2" -> ("/root/ground", 2)
//	"/v=1"             -> ("/", 1)
//
// A name without "/" or with a malformed version component is rejected.
func ParseName(name string) (string, int64, error) {
	idx := strings.LastIndex(name, "/")
	if idx < 0 {
		return "", LatestVersion, fmt.Errorf("%w: name %q must contain /", ErrInvalidInput, name)
	}
	last := name[idx+1:]
	if !strings.HasPrefix(last, versionMarker) {
		return name, LatestVersion, nil
	}
	version, err := strconv.ParseInt(last[len(versionMarker):], 10, 64)
	if err != nil {
		return "", LatestVersion, fmt.Errorf("%w: malformed version in %q", ErrInvalidInput, name)
	}
	path := name[:idx]
	if path == "" {
		path = "/"
	}
	if version < 0 {
		version = LatestVersion
	}
	return path, version, nil
}

// VersionedName formats path and version as a versioned name.
// A latest reference yields the bare path.
func VersionedName(path string, version int64) string {
	if IsLatest(version) {
		return path
	}
	return JoinName(path, versionMarker+strconv.FormatInt(version, 10))
}

// JoinName appends one component to a path.
func JoinName(path, component string) string {
	if strings.HasSuffix(path, "/") {
		return path + component
	}
	return path + "/" + component
}

// Basename returns the last component of a path.
func Basename(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}
