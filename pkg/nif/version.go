// Package nif decodes NetImmerse/Gamebryo NIF model files into an
// index-addressed object graph.
//
// Field presence in the format depends on three numbers read from the file
// preamble: the file version and two user versions. All conditional reads go
// through the VersionInfo predicates so they can be audited against the
// format history.
package nif

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a packed a.b.c.d file version (one byte per component).
type Version uint32

// MakeVersion packs four version components.
func MakeVersion(a, b, c, d byte) Version {
	return Version(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}

// ParseVersion parses a dotted version such as "20.0.0.5". Missing trailing
// components are zero.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) == 0 || len(parts) > 4 {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	var v [4]byte
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v[i] = byte(n)
	}
	return MakeVersion(v[0], v[1], v[2], v[3]), nil
}

// String returns the version as "a.b.c.d".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// Versions referenced by conditional fields.
var (
	V3_1_0_1    = MakeVersion(3, 1, 0, 1)
	V3_3_0_13   = MakeVersion(3, 3, 0, 13)
	V4_0_0_0    = MakeVersion(4, 0, 0, 0)
	V4_0_0_1    = MakeVersion(4, 0, 0, 1)
	V4_0_0_2    = MakeVersion(4, 0, 0, 2)
	V4_1_0_1    = MakeVersion(4, 1, 0, 1)
	V4_1_0_12   = MakeVersion(4, 1, 0, 12)
	V4_2_1_0    = MakeVersion(4, 2, 1, 0)
	V4_2_2_0    = MakeVersion(4, 2, 2, 0)
	V5_0_0_1    = MakeVersion(5, 0, 0, 1)
	V5_0_0_6    = MakeVersion(5, 0, 0, 6)
	V10_0_1_0   = MakeVersion(10, 0, 1, 0)
	V10_0_1_2   = MakeVersion(10, 0, 1, 2)
	V10_0_1_3   = MakeVersion(10, 0, 1, 3)
	V10_0_1_8   = MakeVersion(10, 0, 1, 8)
	V10_1_0_0   = MakeVersion(10, 1, 0, 0)
	V10_1_0_101 = MakeVersion(10, 1, 0, 101)
	V10_1_0_103 = MakeVersion(10, 1, 0, 103)
	V10_1_0_104 = MakeVersion(10, 1, 0, 104)
	V10_1_0_106 = MakeVersion(10, 1, 0, 106)
	V10_1_0_108 = MakeVersion(10, 1, 0, 108)
	V10_1_0_110 = MakeVersion(10, 1, 0, 110)
	V10_1_0_113 = MakeVersion(10, 1, 0, 113)
	V10_1_0_114 = MakeVersion(10, 1, 0, 114)
	V10_2_0_0   = MakeVersion(10, 2, 0, 0)
	V10_4_0_1   = MakeVersion(10, 4, 0, 1)
	V20_0_0_3   = MakeVersion(20, 0, 0, 3)
	V20_0_0_4   = MakeVersion(20, 0, 0, 4)
	V20_0_0_5   = MakeVersion(20, 0, 0, 5)
	V20_1_0_1   = MakeVersion(20, 1, 0, 1)
	V20_1_0_2   = MakeVersion(20, 1, 0, 2)
	V20_1_0_3   = MakeVersion(20, 1, 0, 3)
	V20_2_0_4   = MakeVersion(20, 2, 0, 4)
	V20_2_0_5   = MakeVersion(20, 2, 0, 5)
	V20_2_0_7   = MakeVersion(20, 2, 0, 7)
	V20_2_0_8   = MakeVersion(20, 2, 0, 8)
)

// Supported range.
var (
	MinVersion = V4_0_0_0
	MaxVersion = V20_2_0_8
	// MaxBSVersion is the newest Bethesda stream version whose records are
	// understood (Fallout 3).
	MaxBSVersion uint32 = 34
)

// VersionInfo is the version triplet every decode call consults.
type VersionInfo struct {
	Version Version
	User    uint32 // user version
	BS      uint32 // Bethesda stream version (the second user version)
}

// String returns "version (user/bs)".
func (vi VersionInfo) String() string {
	return fmt.Sprintf("%s (user %d, bs %d)", vi.Version, vi.User, vi.BS)
}

// AtLeast reports version >= v.
func (vi VersionInfo) AtLeast(v Version) bool { return vi.Version >= v }

// AtMost reports version <= v.
func (vi VersionInfo) AtMost(v Version) bool { return vi.Version <= v }

// Before reports version < v.
func (vi VersionInfo) Before(v Version) bool { return vi.Version < v }

// Between reports lo <= version <= hi.
func (vi VersionInfo) Between(lo, hi Version) bool {
	return vi.Version >= lo && vi.Version <= hi
}

// UserAtLeast reports user version >= n.
func (vi VersionInfo) UserAtLeast(n uint32) bool { return vi.User >= n }

// BSAtLeast reports BS version >= n.
func (vi VersionInfo) BSAtLeast(n uint32) bool { return vi.BS >= n }

// BSAbove reports BS version > n.
func (vi VersionInfo) BSAbove(n uint32) bool { return vi.BS > n }

// Supported reports whether the triplet falls inside the decodable range.
func (vi VersionInfo) Supported() bool {
	return vi.Version >= MinVersion && vi.Version <= MaxVersion && vi.BS <= MaxBSVersion
}

// HasBSHeader reports whether the header carries a Bethesda stream header.
func (vi VersionInfo) HasBSHeader() bool {
	v := vi.Version
	if vi.User < 3 {
		return false
	}
	return v == V10_0_1_2 || v == V20_2_0_7 || v == V20_0_0_5 ||
		(v >= V10_1_0_0 && v <= V20_0_0_4 && vi.User <= 11)
}
