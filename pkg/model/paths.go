package model

import (
	"regexp"
	"strings"
)

// RootPath is the absolute path of the container root group
const RootPath = "/"

// keys are printable ASCII; '@' is reserved as the attribute separator in
// skeleton paths
var keyRe = regexp.MustCompile(`^[!-~]+$`)

// ValidateKey checks a single path segment or attribute key.
//
// Keys must be non-empty printable ASCII without '/' or '@'. Attribute keys
// additionally must not be the reserved pass-through marker.
func ValidateKey(key string, attr bool) error {
	if key == "" {
		return ErrInvalidKey
	}
	if attr && key == PassThroughKey {
		return ErrReservedKey
	}
	if !keyRe.MatchString(key) {
		return ErrInvalidKey
	}
	if strings.ContainsAny(key, "/@") {
		return ErrInvalidKey
	}
	return nil
}

// ValidatePath checks an absolute tree path
func ValidatePath(path string) error {
	if path == "" || path[0] != '/' {
		return ErrInvalidPath
	}
	for _, seg := range SplitPath(path) {
		if err := ValidateKey(seg, false); err != nil {
			return err
		}
	}
	return nil
}

// SplitPath returns the segments of an absolute path, root first.
// The root path has no segments.
func SplitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// JoinPath appends a segment to an absolute path
func JoinPath(path, key string) string {
	if path == RootPath {
		return RootPath + key
	}
	return path + "/" + key
}

// PathPrefixes returns the ordered list of prefixes of a path, from the
// root down to the full path, e.g. /foo/bar -> [/, /foo, /foo/bar]
func PathPrefixes(path string) []string {
	segs := SplitPath(path)
	prefixes := make([]string, 0, len(segs)+1)
	prefixes = append(prefixes, RootPath)
	cur := RootPath
	for _, seg := range segs {
		cur = JoinPath(cur, seg)
		prefixes = append(prefixes, cur)
	}
	return prefixes
}

// ParentPath returns the path of the enclosing group. The root is its own
// parent.
func ParentPath(path string) string {
	segs := SplitPath(path)
	if len(segs) <= 1 {
		return RootPath
	}
	return RootPath + strings.Join(segs[:len(segs)-1], "/")
}

// BaseName returns the final segment of a path, or "" for the root
func BaseName(path string) string {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return ""
	}
	return segs[len(segs)-1]
}

// AttrPath encodes a (path, attribute) pair as a skeleton path of the
// shape /a/b@attr
func AttrPath(path, key string) string {
	return path + "@" + key
}
