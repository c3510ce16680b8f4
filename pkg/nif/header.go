package nif

import (
	"fmt"
	"strings"
)

// Header line prefixes.
const (
	netImmersePrefix = "NetImmerse File Format"
	gamebryoPrefix   = "Gamebryo File Format"
)

// BSHeader is the Bethesda stream header found in Oblivion and Fallout 3
// files.
type BSHeader struct {
	Version       uint32 // stream version, the second user version
	Author        string
	ProcessScript string
	ExportScript  string
	MaxFilepath   string // bs >= 103 only, kept for completeness
}

// Header is the file preamble.
type Header struct {
	Line       string      // first text line, e.g. "Gamebryo File Format, Version 20.0.0.5"
	Info       VersionInfo // version triplet
	Endian     uint8       // 1 = little endian (20.0.0.3+)
	NumBlocks  int
	BS         *BSHeader // nil when absent
	BlockTypes []string  // type names (5.0.0.1+)
	TypeIndex  []uint16  // per-block index into BlockTypes (5.0.0.1+)
	BlockSizes []uint32  // per-block byte sizes (20.2.0.5+)
	Strings    *StringTable
	MaxString  uint32   // longest string in the table (20.1.0.1+)
	Groups     []uint32 // 5.0.0.6+
}

// StringAt returns header string i; "" for negative indices.
func (h *Header) StringAt(i int32) string { return h.Strings.At(i) }

// AppendString adds s to the string table and returns its index.
func (h *Header) AppendString(s string) int32 {
	if h.Strings == nil {
		h.Strings = NewStringTable(nil)
	}
	return h.Strings.Append(s)
}

// BlockTypeName returns the header type name for block i, or "" when the
// per-block type table is absent.
func (h *Header) BlockTypeName(i int) string {
	if i < 0 || i >= len(h.TypeIndex) {
		return ""
	}
	idx := int(h.TypeIndex[i])
	if idx >= len(h.BlockTypes) {
		return ""
	}
	return h.BlockTypes[idx]
}

// ReadHeader decodes the preamble and installs the version triplet and
// string table on r.
func ReadHeader(r *Reader) (*Header, error) {
	h := &Header{Strings: NewStringTable(nil)}

	if !looksLikeNIF(r.data[r.off:]) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, truncateLine(string(r.data[r.off:min(len(r.data), r.off+40)])))
	}
	h.Line = r.LineString()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading header line: %w", err)
	}
	if !strings.HasPrefix(h.Line, netImmersePrefix) && !strings.HasPrefix(h.Line, gamebryoPrefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, truncateLine(h.Line))
	}
	if i := strings.LastIndex(h.Line, "Version "); i >= 0 {
		if lv, err := ParseVersion(h.Line[i+len("Version "):]); err == nil && lv < V3_1_0_1 {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, lv)
		}
	}

	vi := VersionInfo{Version: Version(r.U32())}
	if vi.AtLeast(V20_0_0_3) {
		h.Endian = r.U8()
		if r.Err() == nil && h.Endian == 0 {
			return nil, unsupported("big endian data")
		}
	} else {
		h.Endian = 1
	}
	if vi.AtLeast(V10_0_1_8) {
		vi.User = r.U32()
	}
	h.NumBlocks = r.Count(1)
	if vi.HasBSHeader() {
		bs := &BSHeader{Version: r.U32()}
		bs.Author = r.ShortString()
		if bs.Version > 130 {
			r.U32()
		}
		bs.ProcessScript = r.ShortString()
		bs.ExportScript = r.ShortString()
		if bs.Version >= 103 {
			bs.MaxFilepath = r.ShortString()
		}
		h.BS = bs
		vi.BS = bs.Version
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if !vi.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, vi)
	}
	h.Info = vi
	r.SetVersion(vi)

	if vi.AtLeast(V5_0_0_1) {
		n := r.Count16(4)
		h.BlockTypes = make([]string, n)
		for i := range h.BlockTypes {
			h.BlockTypes[i] = r.SizedString()
		}
		h.TypeIndex = r.U16s(h.NumBlocks)
		for i, t := range h.TypeIndex {
			h.TypeIndex[i] = t &^ 0x8000
			if r.Err() == nil && int(h.TypeIndex[i]) >= len(h.BlockTypes) {
				return nil, fmt.Errorf("%w: block %d type index %d of %d", ErrBadBlockTable, i, t, len(h.BlockTypes))
			}
		}
	}
	if vi.AtLeast(V20_2_0_5) {
		h.BlockSizes = r.U32s(h.NumBlocks)
	}
	if vi.AtLeast(V20_1_0_1) {
		n := r.Count(4)
		h.MaxString = r.U32()
		strs := make([]string, n)
		for i := range strs {
			strs[i] = r.SizedString()
		}
		h.Strings = NewStringTable(strs)
	}
	if vi.AtLeast(V5_0_0_6) {
		h.Groups = r.U32s(r.Count(4))
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	var total uint64
	for _, s := range h.BlockSizes {
		total += uint64(s)
	}
	if total > uint64(r.Remaining()) {
		return nil, fmt.Errorf("%w: block sizes total %d bytes, %d left", ErrBadBlockTable, total, r.Remaining())
	}

	r.strings = h.Strings
	return h, nil
}

// looksLikeNIF reports whether data starts with (a prefix of) a known
// header line.
func looksLikeNIF(data []byte) bool {
	for _, p := range []string{netImmersePrefix, gamebryoPrefix} {
		n := min(len(data), len(p))
		if n > 0 && string(data[:n]) == p[:n] {
			return true
		}
	}
	return false
}

func truncateLine(s string) string {
	if len(s) > 40 {
		return s[:40] + "..."
	}
	return s
}
