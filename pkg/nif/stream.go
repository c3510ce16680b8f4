package nif

import (
	"bytes"
	"encoding/binary"
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/dankdonk/openmw-sub003/pkg/encoding"
)

// Reader is a forward-only little-endian reader over an in-memory NIF file.
//
// The first failed read records an error; every later read is a no-op that
// returns the zero value, so decode routines check Err once per record
// instead of after every field.
type Reader struct {
	data    []byte
	off     int
	err     error
	vi      VersionInfo
	strings *StringTable
}

// NewReader returns a reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Version returns the version triplet. It is zero until the header has set it.
func (r *Reader) Version() VersionInfo { return r.vi }

// SetVersion installs the version triplet; called once by the header decoder.
func (r *Reader) SetVersion(vi VersionInfo) { r.vi = vi }

// Err returns the first read error.
func (r *Reader) Err() error { return r.err }

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Fail records err unless an earlier error is already recorded.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// take returns the next n bytes or nil after recording a truncation error.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, %d left", ErrTruncated, n, r.off, len(r.data)-r.off)
		r.off = len(r.data)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Skip advances n bytes.
func (r *Reader) Skip(n int) { r.take(n) }

// Bytes reads n raw bytes. The returned slice aliases the input.
func (r *Reader) Bytes(n int) []byte { return r.take(n) }

// U8 reads a byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads an unsigned 16-bit integer.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// I16 reads a signed 16-bit integer.
func (r *Reader) I16() int16 { return int16(r.U16()) }

// U32 reads an unsigned 32-bit integer.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// I32 reads a signed 32-bit integer.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// F32 reads a float.
func (r *Reader) F32() float32 { return gomath.Float32frombits(r.U32()) }

// Bool reads a boolean: 4 bytes before 4.1.0.1, one byte after.
func (r *Reader) Bool() bool {
	if r.vi.Before(V4_1_0_1) {
		return r.U32() != 0
	}
	return r.U8() != 0
}

// Vec2 reads two floats.
func (r *Reader) Vec2() mgl32.Vec2 { return mgl32.Vec2{r.F32(), r.F32()} }

// Vec3 reads three floats.
func (r *Reader) Vec3() mgl32.Vec3 { return mgl32.Vec3{r.F32(), r.F32(), r.F32()} }

// Vec4 reads four floats.
func (r *Reader) Vec4() mgl32.Vec4 { return mgl32.Vec4{r.F32(), r.F32(), r.F32(), r.F32()} }

// Quat reads a NetImmerse quaternion stored w, x, y, z.
func (r *Reader) Quat() mgl32.Quat {
	w := r.F32()
	return mgl32.Quat{W: w, V: r.Vec3()}
}

// HkQuat reads a Havok quaternion stored x, y, z, w.
func (r *Reader) HkQuat() mgl32.Quat {
	v := r.Vec3()
	return mgl32.Quat{W: r.F32(), V: v}
}

// Mat33 reads a rotation matrix stored row by row.
func (r *Reader) Mat33() mgl32.Mat3 {
	r0, r1, r2 := r.Vec3(), r.Vec3(), r.Vec3()
	return mgl32.Mat3FromRows(r0, r1, r2)
}

// Mat44 reads a 4x4 matrix stored column by column.
func (r *Reader) Mat44() mgl32.Mat4 {
	var m mgl32.Mat4
	for i := range m {
		m[i] = r.F32()
	}
	return m
}

// Vec3s reads n vectors.
func (r *Reader) Vec3s(n int) []mgl32.Vec3 {
	if !r.fits(n, 12) {
		return nil
	}
	out := make([]mgl32.Vec3, n)
	for i := range out {
		out[i] = r.Vec3()
	}
	return out
}

// Vec4s reads n 4-vectors.
func (r *Reader) Vec4s(n int) []mgl32.Vec4 {
	if !r.fits(n, 16) {
		return nil
	}
	out := make([]mgl32.Vec4, n)
	for i := range out {
		out[i] = r.Vec4()
	}
	return out
}

// Vec2s reads n texture coordinates.
func (r *Reader) Vec2s(n int) []mgl32.Vec2 {
	if !r.fits(n, 8) {
		return nil
	}
	out := make([]mgl32.Vec2, n)
	for i := range out {
		out[i] = r.Vec2()
	}
	return out
}

// U16s reads n unsigned shorts.
func (r *Reader) U16s(n int) []uint16 {
	if !r.fits(n, 2) {
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.U16()
	}
	return out
}

// U32s reads n unsigned ints.
func (r *Reader) U32s(n int) []uint32 {
	if !r.fits(n, 4) {
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.U32()
	}
	return out
}

// F32s reads n floats.
func (r *Reader) F32s(n int) []float32 {
	if !r.fits(n, 4) {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.F32()
	}
	return out
}

// Count reads a u32 element count and checks that count elements of at least
// minSize bytes can still be present.
func (r *Reader) Count(minSize int) int {
	n := r.U32()
	if r.err != nil {
		return 0
	}
	if !r.fits(int(n), minSize) {
		return 0
	}
	return int(n)
}

// Count16 is Count for u16 element counts.
func (r *Reader) Count16(minSize int) int {
	n := int(r.U16())
	if r.err != nil || !r.fits(n, minSize) {
		return 0
	}
	return n
}

// fits records a truncation error when n elements of size bytes cannot fit.
func (r *Reader) fits(n, size int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || (size > 0 && n > r.Remaining()/size) {
		r.err = fmt.Errorf("%w: %d elements of %d bytes at offset %d, %d left", ErrTruncated, n, size, r.off, r.Remaining())
		r.off = len(r.data)
		return false
	}
	return true
}

// SizedString reads a u32 length followed by that many bytes.
func (r *Reader) SizedString() string {
	n := r.Count(1)
	return encoding.DecodeLegacy(r.take(n))
}

// ShortString reads a u8 length followed by that many bytes; a trailing NUL
// is dropped.
func (r *Reader) ShortString() string {
	n := int(r.U8())
	b := r.take(n)
	return encoding.DecodeLegacy(bytes.TrimRight(b, "\x00"))
}

// LineString reads up to and including the next newline.
func (r *Reader) LineString() string {
	if r.err != nil {
		return ""
	}
	i := bytes.IndexByte(r.data[r.off:], '\n')
	if i < 0 {
		r.err = fmt.Errorf("%w: unterminated header line", ErrTruncated)
		r.off = len(r.data)
		return ""
	}
	s := string(r.data[r.off : r.off+i])
	r.off += i + 1
	return s
}

// String reads a string field: inline before 20.1.0.1, an index into the
// header string table from 20.1.0.1 on.
func (r *Reader) String() string {
	if r.vi.AtLeast(V20_1_0_1) {
		idx := r.I32()
		if r.strings == nil {
			return ""
		}
		return r.strings.At(idx)
	}
	return r.SizedString()
}

// Ref reads an owning reference.
func (r *Reader) Ref() Ref { return Ref(r.I32()) }

// Ptr reads a non-owning reference.
func (r *Reader) Ptr() Ptr { return Ptr(r.I32()) }

// Refs reads a u32 count followed by that many refs.
func (r *Reader) Refs() []Ref {
	n := r.Count(4)
	if n == 0 {
		return nil
	}
	out := make([]Ref, n)
	for i := range out {
		out[i] = r.Ref()
	}
	return out
}

// Ptrs reads a u32 count followed by that many ptrs.
func (r *Reader) Ptrs() []Ptr {
	n := r.Count(4)
	if n == 0 {
		return nil
	}
	out := make([]Ptr, n)
	for i := range out {
		out[i] = r.Ptr()
	}
	return out
}
