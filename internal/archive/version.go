package archive

import "fmt"

// Version is the ordered (major, minor, patch) triple gating which
// conditional fields a dump's header and TOC carry.
type Version struct {
	Major, Minor, Patch byte
}

// V1_12, V1_13, V1_14, V1_15 and V1_16 are the dump-format versions this
// package gates behavior on; see compression.go and toc.go for their uses.
var (
	V1_12 = Version{1, 12, 0}
	V1_13 = Version{1, 13, 0}
	V1_14 = Version{1, 14, 0}
	V1_15 = Version{1, 15, 0}
	V1_16 = Version{1, 16, 0}
)

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// AtLeast reports whether v is other or newer.
func (v Version) AtLeast(other Version) bool {
	return !v.Less(other)
}

// InSupportedRange reports whether v falls within [V1_12, V1_16] inclusive.
func (v Version) InSupportedRange() bool {
	return !v.Less(V1_12) && !V1_16.Less(v)
}
