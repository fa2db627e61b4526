package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Version packs a dotted version string into one comparable integer,
// most significant component first. Valid versions occupy [0, 1<<32);
// anything malformed maps to VersionUnsupported, which sorts below
// every valid version and never matches a bounded field.
type Version int64

// VersionUnsupported marks a version string the codec could not parse.
const VersionUnsupported Version = -1

// ParseVersion converts a dotted version string into its packed form.
// Two legacy spellings map to fixed values. Up to four components are
// accepted, each in [0, 255], right-padded with zeros.
func ParseVersion(s string) Version {
	// Historical aliases that predate the dotted scheme.
	switch s {
	case "3.03":
		return 0x03000300
	case "NS":
		return 0x0A010000
	}

	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return VersionUnsupported
	}
	var v Version
	for i, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil || d < 0 || d > 255 {
			return VersionUnsupported
		}
		v |= Version(d) << uint(24-8*i)
	}
	return v
}

// Valid reports whether v is a parseable version rather than the
// unsupported marker.
func (v Version) Valid() bool {
	return v >= 0 && v < 1<<32
}

// String renders the dotted form for diagnostics.
func (v Version) String() string {
	if !v.Valid() {
		return "unsupported"
	}
	return fmt.Sprintf("%d.%d.%d.%d",
		(v>>24)&0xFF, (v>>16)&0xFF, (v>>8)&0xFF, v&0xFF)
}
