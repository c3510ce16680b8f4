package nif

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
)

// File is a decoded NIF: the header, every record by index, the root refs
// and the side channel collected while decoding.
type File struct {
	Header  *Header
	Records []Record
	Roots   []Ref
	State   *BuildState
}

// Decoder decodes NIF data. The zero value is ready to use.
type Decoder struct {
	// Log receives debug output; nil is silent.
	Log *zap.Logger
	// SkeletonRoots overrides DefaultSkeletonRoots for decoded files.
	SkeletonRoots []string
	// OnDecode, when set, is called after every successful decode.
	OnDecode func(f *File)
}

// Load decodes a NIF held in memory.
func Load(data []byte) (*File, error) {
	var d Decoder
	return d.Load(data)
}

// LoadFile reads and decodes the file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading nif file: %w", err)
	}
	return Load(data)
}

// Decode reads r to the end and decodes it.
func Decode(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading nif data: %w", err)
	}
	return Load(data)
}

// Load decodes data. On failure no graph is returned.
func (d *Decoder) Load(data []byte) (*File, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := NewReader(data)
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	v := h.Info
	log.Debug("nif header",
		zap.String("version", v.Version.String()),
		zap.Uint32("user", v.User),
		zap.Uint32("bs", v.BS),
		zap.Int("blocks", h.NumBlocks))

	// Resolve the header type list once.
	kinds := make([]Kind, len(h.BlockTypes))
	for i, name := range h.BlockTypes {
		kinds[i], _ = LookupKind(name)
	}

	f := &File{
		Header:  h,
		Records: make([]Record, 0, h.NumBlocks),
		State:   NewBuildState(),
	}
	f.State.SkeletonRoots = d.SkeletonRoots

	for i := 0; i < h.NumBlocks; i++ {
		var kind Kind
		var name string
		switch {
		case v.Before(V5_0_0_1):
			name = r.SizedString()
			kind, _ = LookupKind(name)
		default:
			if v.Before(V10_2_0_0) {
				if marker := r.U32(); marker != 0 && r.Err() == nil {
					return nil, &BlockError{Index: i, Err: fmt.Errorf("%w: block marker %#x", ErrBadBlockTable, marker)}
				}
			}
			t := h.TypeIndex[i]
			name = h.BlockTypes[t]
			kind = kinds[t]
		}
		if err := r.Err(); err != nil {
			return nil, &BlockError{Index: i, Err: err}
		}
		if kind == KindUnknown {
			return nil, &BlockError{Index: i, Type: name, Err: fmt.Errorf("%w: %q", ErrUnknownRecordType, name)}
		}

		start := r.Offset()
		rec := newRecord(kind, i)
		ctx := &DecodeContext{R: r, Index: i, State: f.State, Prior: f.Records}
		err := rec.decode(ctx)
		if err == nil {
			err = r.Err()
		}
		if err != nil {
			return nil, &BlockError{Index: i, Type: name, Err: err}
		}
		if h.BlockSizes != nil {
			size := int(h.BlockSizes[i])
			used := r.Offset() - start
			if used > size {
				return nil, &BlockError{Index: i, Type: name, Err: fmt.Errorf("%w: decoded %d bytes, block size %d", ErrBadBlockTable, used, size)}
			}
			if used < size {
				log.Debug("skipping unread block tail", zap.Int("block", i), zap.String("type", name), zap.Int("bytes", size-used))
				r.Skip(size - used)
			}
		}
		f.Records = append(f.Records, rec)
	}

	n := r.Count(4)
	f.Roots = make([]Ref, n)
	for i := range f.Roots {
		f.Roots[i] = r.Ref()
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}
	if len(f.Roots) == 0 {
		return nil, ErrNoRoots
	}

	if err := f.validate(); err != nil {
		return nil, err
	}
	if err := f.State.finish(f.Records); err != nil {
		return nil, err
	}
	log.Debug("nif decoded", zap.Int("records", len(f.Records)), zap.Int("roots", len(f.Roots)))
	if d.OnDecode != nil {
		d.OnDecode(f)
	}
	return f, nil
}

// validate checks every root and owning ref against the record count.
func (f *File) validate() error {
	n := len(f.Records)
	for _, root := range f.Roots {
		if !root.Valid() || int(root) >= n {
			return fmt.Errorf("%w: root %d of %d records", ErrRefOutOfRange, root, n)
		}
	}
	for _, rec := range f.Records {
		for _, ref := range RefsOf(rec) {
			if err := checkRef(ref, n); err != nil {
				return &BlockError{Index: rec.Index(), Type: rec.Kind().String(), Err: err}
			}
		}
	}
	return nil
}

// Len returns the number of records.
func (f *File) Len() int { return len(f.Records) }

// Version returns the file's version triplet.
func (f *File) Version() VersionInfo { return f.Header.Info }

// Record returns the record ref points to, or nil for -1 and out of range
// refs.
func (f *File) Record(ref Ref) Record {
	if !ref.Valid() || int(ref) >= len(f.Records) {
		return nil
	}
	return f.Records[ref]
}

// Lookup resolves a ptr. Unresolvable ptrs return nil.
func (f *File) Lookup(p Ptr) Record { return f.Record(Ref(p)) }

// Root returns the first root record for single-root callers.
func (f *File) Root() Record { return f.Record(f.Roots[0]) }

// isRoot reports whether i is one of the file roots.
func (f *File) isRoot(i int) bool {
	for _, r := range f.Roots {
		if int(r) == i {
			return true
		}
	}
	return false
}

// Get returns the record at ref as T. A -1 ref yields the zero T and no
// error; a ref to another record type is ErrWrongRecordType.
func Get[T Record](f *File, ref Ref) (T, error) {
	var zero T
	if ref == None {
		return zero, nil
	}
	rec := f.Record(ref)
	if rec == nil {
		return zero, fmt.Errorf("%w: %d of %d records", ErrRefOutOfRange, ref, len(f.Records))
	}
	t, ok := rec.(T)
	if !ok {
		return zero, fmt.Errorf("%w: record %d is %s, want %T", ErrWrongRecordType, ref, rec.Kind(), zero)
	}
	return t, nil
}

// Node returns the node at ref.
func (f *File) Node(ref Ref) (NodeRecord, error) { return Get[NodeRecord](f, ref) }

// Geometry returns the geometry at ref.
func (f *File) Geometry(ref Ref) (*Geometry, error) { return Get[*Geometry](f, ref) }

// Name returns the name of the record at ref, or "".
func (f *File) Name(ref Ref) string {
	if rec, ok := f.Record(ref).(NETRecord); ok {
		return rec.NET().Name
	}
	return ""
}

// Controllers returns the controller chain starting at ref.
func (f *File) Controllers(ref Ref) []ControllerRecord {
	var out []ControllerRecord
	for steps := 0; ref.Valid() && steps < len(f.Records); steps++ {
		c, ok := f.Record(ref).(ControllerRecord)
		if !ok {
			break
		}
		out = append(out, c)
		ref = c.AsController().Next
	}
	return out
}
