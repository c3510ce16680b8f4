// Package niftest builds NIF files in memory for tests. The encoders mirror
// the field layout the nif decoder reads for the version triplets below.
package niftest

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/encoding"
	"github.com/dankdonk/openmw-sub003/pkg/nif"
)

// Version triplets the builder is exercised with.
var (
	Morrowind = nif.VersionInfo{Version: nif.V4_0_0_2}
	Oblivion  = nif.VersionInfo{Version: nif.V20_0_0_5, User: 11, BS: 11}
	Fallout3  = nif.VersionInfo{Version: nif.V20_2_0_7, User: 11, BS: 34}
)

// Link is an optional reference in a spec. The zero value is "none".
type Link int32

// To links to record i.
func To(i int) Link { return Link(i + 1) }

// Ref returns the on-disk value.
func (l Link) Ref() int32 { return int32(l) - 1 }

type block struct {
	typ    string
	encode func(w *Writer)
	raw    []byte
}

// Builder collects blocks and roots.
type Builder struct {
	Info nif.VersionInfo

	blocks  []block
	roots   []int32
	strings []string
	index   map[string]int32
}

// New returns an empty builder for vi.
func New(vi nif.VersionInfo) *Builder {
	return &Builder{Info: vi, index: make(map[string]int32)}
}

// Add appends a block and returns its index. encode runs when Bytes is
// called, so it may refer to indices of blocks added later.
func (b *Builder) Add(typ string, encode func(w *Writer)) int {
	b.blocks = append(b.blocks, block{typ: typ, encode: encode})
	return len(b.blocks) - 1
}

// AddRaw appends a block with fixed contents.
func (b *Builder) AddRaw(typ string, data []byte) int {
	b.blocks = append(b.blocks, block{typ: typ, raw: data})
	return len(b.blocks) - 1
}

// Len returns the number of blocks added so far.
func (b *Builder) Len() int { return len(b.blocks) }

// Roots sets the footer roots. Without a call the first block is the root.
func (b *Builder) Roots(roots ...int) {
	b.roots = b.roots[:0]
	for _, r := range roots {
		b.roots = append(b.roots, int32(r))
	}
	if len(b.roots) == 0 {
		b.roots = []int32{}
	}
}

func (b *Builder) stringIndex(s string) int32 {
	if s == "" {
		return -1
	}
	if i, ok := b.index[s]; ok {
		return i
	}
	b.strings = append(b.strings, s)
	i := int32(len(b.strings) - 1)
	b.index[s] = i
	return i
}

// Bytes encodes the file.
func (b *Builder) Bytes() []byte {
	vi := b.Info
	bodies := make([][]byte, len(b.blocks))
	for i, blk := range b.blocks {
		if blk.raw != nil {
			bodies[i] = blk.raw
			continue
		}
		w := &Writer{b: b}
		if blk.encode != nil {
			blk.encode(w)
		}
		bodies[i] = w.buf
	}

	var types []string
	typeIndex := make(map[string]uint16)
	perBlock := make([]uint16, len(b.blocks))
	for i, blk := range b.blocks {
		t, ok := typeIndex[blk.typ]
		if !ok {
			t = uint16(len(types))
			types = append(types, blk.typ)
			typeIndex[blk.typ] = t
		}
		perBlock[i] = t
	}

	h := &Writer{b: b}
	if vi.AtLeast(nif.V10_0_1_0) {
		h.put([]byte("Gamebryo File Format, Version " + vi.Version.String() + "\n"))
	} else {
		h.put([]byte("NetImmerse File Format, Version " + vi.Version.String() + "\n"))
	}
	h.U32(uint32(vi.Version))
	if vi.AtLeast(nif.V20_0_0_3) {
		h.U8(1)
	}
	if vi.AtLeast(nif.V10_0_1_8) {
		h.U32(vi.User)
	}
	h.U32(uint32(len(b.blocks)))
	if vi.HasBSHeader() {
		h.U32(vi.BS)
		h.ExportString("niftest")
		if vi.BS > 130 {
			h.U32(0)
		}
		h.ExportString("")
		h.ExportString("")
		if vi.BS >= 103 {
			h.ExportString("")
		}
	}
	if vi.AtLeast(nif.V5_0_0_1) {
		h.U16(uint16(len(types)))
		for _, t := range types {
			h.SizedString(t)
		}
		for _, t := range perBlock {
			h.U16(t)
		}
	}
	if vi.AtLeast(nif.V20_2_0_5) {
		for _, body := range bodies {
			h.U32(uint32(len(body)))
		}
	}
	if vi.AtLeast(nif.V20_1_0_1) {
		h.U32(uint32(len(b.strings)))
		maxLen := 0
		for _, s := range b.strings {
			maxLen = max(maxLen, len(s))
		}
		h.U32(uint32(maxLen))
		for _, s := range b.strings {
			h.SizedString(s)
		}
	}
	if vi.AtLeast(nif.V5_0_0_6) {
		h.U32(0)
	}

	for i, body := range bodies {
		switch {
		case vi.Before(nif.V5_0_0_1):
			h.SizedString(b.blocks[i].typ)
		case vi.Before(nif.V10_2_0_0):
			h.U32(0)
		}
		h.put(body)
	}

	roots := b.roots
	if roots == nil && len(b.blocks) > 0 {
		roots = []int32{0}
	}
	h.U32(uint32(len(roots)))
	for _, r := range roots {
		h.I32(r)
	}
	return h.buf
}

// Writer encodes one block.
type Writer struct {
	b   *Builder
	buf []byte
}

// V returns the version triplet being written.
func (w *Writer) V() nif.VersionInfo { return w.b.Info }

func (w *Writer) put(p []byte) { w.buf = append(w.buf, p...) }

// Raw appends bytes.
func (w *Writer) Raw(p []byte) { w.put(p) }

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) { w.put(make([]byte, n)) }

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }

func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }

func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// Bool writes a boolean in the version's width.
func (w *Writer) Bool(v bool) {
	var n uint32
	if v {
		n = 1
	}
	if w.V().Before(nif.V4_1_0_1) {
		w.U32(n)
	} else {
		w.U8(uint8(n))
	}
}

func (w *Writer) Vec2(v mgl32.Vec2) {
	w.F32(v[0])
	w.F32(v[1])
}

func (w *Writer) Vec3(v mgl32.Vec3) {
	for _, f := range v {
		w.F32(f)
	}
}

func (w *Writer) Vec4(v mgl32.Vec4) {
	for _, f := range v {
		w.F32(f)
	}
}

// Quat writes w, x, y, z.
func (w *Writer) Quat(q mgl32.Quat) {
	w.F32(q.W)
	w.Vec3(q.V)
}

// HkQuat writes x, y, z, w.
func (w *Writer) HkQuat(q mgl32.Quat) {
	w.Vec3(q.V)
	w.F32(q.W)
}

// Mat33 writes a rotation row by row. The zero matrix is written as
// identity.
func (w *Writer) Mat33(m mgl32.Mat3) {
	if m == (mgl32.Mat3{}) {
		m = mgl32.Ident3()
	}
	for i := 0; i < 3; i++ {
		w.Vec3(m.Row(i))
	}
}

// Mat44 writes a matrix column by column.
func (w *Writer) Mat44(m mgl32.Mat4) {
	for _, f := range m {
		w.F32(f)
	}
}

// SizedString writes a u32 length and the bytes.
func (w *Writer) SizedString(s string) {
	b := encoding.EncodeLegacy(s)
	w.U32(uint32(len(b)))
	w.put(b)
}

// ExportString writes a u8 length and the NUL terminated bytes.
func (w *Writer) ExportString(s string) {
	w.U8(uint8(len(s) + 1))
	w.put([]byte(s))
	w.U8(0)
}

// String writes a string field: inline before 20.1.0.1, indexed after.
func (w *Writer) String(s string) {
	if w.V().AtLeast(nif.V20_1_0_1) {
		w.I32(w.b.stringIndex(s))
		return
	}
	w.SizedString(s)
}

// Ref writes an optional reference.
func (w *Writer) Ref(l Link) { w.I32(l.Ref()) }

// Index writes a reference to block i.
func (w *Writer) Index(i int) { w.I32(int32(i)) }

// Indices writes a u32 count and the indices.
func (w *Writer) Indices(list []int) {
	w.U32(uint32(len(list)))
	for _, i := range list {
		w.Index(i)
	}
}

func orOne(f float32) float32 {
	if f == 0 {
		return 1
	}
	return f
}
