package nif

import "fmt"

// Ref is an owning reference into the object graph; -1 means none.
type Ref int32

// Ptr is a non-owning reference used for lookup only. It may point forward
// or to a record that is never built.
type Ptr int32

// None is the absent reference value.
const None = -1

// Valid reports whether the ref names a record.
func (r Ref) Valid() bool { return r >= 0 }

// Index returns the ref as a slice index.
func (r Ref) Index() int { return int(r) }

// Valid reports whether the ptr names a record.
func (p Ptr) Valid() bool { return p >= 0 }

// Index returns the ptr as a slice index.
func (p Ptr) Index() int { return int(p) }

// Record is one decoded block.
type Record interface {
	// Index is the record's position in the object graph.
	Index() int
	// Kind is the record type tag.
	Kind() Kind

	base() *Base
	decode(c *DecodeContext) error
	// appendRefs appends every owning ref field to dst.
	appendRefs(dst []Ref) []Ref
}

// Base carries the fields every record shares.
type Base struct {
	index int
	kind  Kind
}

func (b *Base) Index() int                 { return b.index }
func (b *Base) Kind() Kind                 { return b.kind }
func (b *Base) base() *Base                { return b }
func (b *Base) appendRefs(dst []Ref) []Ref { return dst }

// DecodeContext is what a record's decode routine sees: the stream, its own
// index, the side channel and the records decoded so far.
//
// Prior holds only records with a lower index. Refs read during decode may
// point forward and must not be dereferenced until the whole file is loaded.
type DecodeContext struct {
	R     *Reader
	Index int
	State *BuildState
	Prior []Record
}

// V is shorthand for the reader's version triplet.
func (c *DecodeContext) V() VersionInfo { return c.R.Version() }

// RefsOf returns every owning ref held by rec, in field order. Absent refs
// are included as -1.
func RefsOf(rec Record) []Ref {
	if rec == nil {
		return nil
	}
	return rec.appendRefs(nil)
}

// checkRef validates ref against a graph of n records.
func checkRef(ref Ref, n int) error {
	if ref < None || int(ref) >= n {
		return fmt.Errorf("%w: %d of %d records", ErrRefOutOfRange, ref, n)
	}
	return nil
}
