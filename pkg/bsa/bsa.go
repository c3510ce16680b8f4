// Package bsa reads Oblivion and Fallout 3 BSA archives (versions 103 and
// 104).
package bsa

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

const bsaMagic = "BSA\x00"

// Supported versions.
const (
	VersionOblivion = 103
	VersionFallout3 = 104
)

// Archive flags.
const (
	FlagDirectoryNames = 0x001
	FlagFileNames      = 0x002
	FlagCompressed     = 0x004
	FlagEmbeddedNames  = 0x100 // 104 only
)

const (
	sizeCompressToggle = 0x40000000
	sizeMask           = 0x3FFFFFFF
)

var (
	ErrInvalidMagic       = errors.New("invalid BSA magic: expected 'BSA\\0'")
	ErrUnsupportedVersion = errors.New("unsupported BSA version")
	ErrTruncated          = errors.New("truncated BSA data")
	ErrNotFound           = errors.New("file not found in archive")
)

// Archive is an opened BSA archive. Reads are safe for concurrent use.
type Archive struct {
	r      io.ReaderAt
	closer io.Closer
	header Header
	files  map[string]*Entry
}

// Header is the fixed archive header.
type Header struct {
	Magic             [4]byte
	Version           uint32
	FolderOffset      uint32
	Flags             uint32
	FolderCount       uint32
	FileCount         uint32
	FolderNamesLength uint32
	FileNamesLength   uint32
	FileFlags         uint32
}

// Entry is one file record.
type Entry struct {
	Name       string // folder/file, lowercase with forward slashes
	Size       uint32 // stored size
	Offset     uint32
	Compressed bool
}

type folderRecord struct {
	Hash   uint64
	Count  uint32
	Offset uint32
}

type fileRecord struct {
	Hash   uint64
	Size   uint32
	Offset uint32
}

// Open opens the archive at path.
func Open(path string) (*Archive, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	a, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	a.closer = file
	return a, nil
}

// NewReader reads the archive directory from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	a := &Archive{r: r, files: make(map[string]*Entry)}
	if err := a.readHeader(); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if err := a.readDirectory(); err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}
	return a, nil
}

// Close closes the underlying file, if the archive owns one.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// Header returns the archive header.
func (a *Archive) Header() Header { return a.header }

func (a *Archive) readHeader() error {
	sr := io.NewSectionReader(a.r, 0, 36)
	if err := binary.Read(sr, binary.LittleEndian, &a.header); err != nil {
		return fmt.Errorf("%w: %v", ErrTruncated, err)
	}
	if string(a.header.Magic[:]) != bsaMagic {
		return ErrInvalidMagic
	}
	if v := a.header.Version; v != VersionOblivion && v != VersionFallout3 {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	return nil
}

// readDirectory reads folder records, file record blocks and the file name
// table, which follow each other without gaps.
func (a *Archive) readDirectory() error {
	h := &a.header
	sr := io.NewSectionReader(a.r, int64(h.FolderOffset), 1<<62)

	folders := make([]folderRecord, h.FolderCount)
	if err := binary.Read(sr, binary.LittleEndian, folders); err != nil {
		return fmt.Errorf("%w: folder records: %v", ErrTruncated, err)
	}

	type pending struct {
		folder string
		rec    fileRecord
	}
	var files []pending
	for _, f := range folders {
		var folder string
		if h.Flags&FlagDirectoryNames != 0 {
			name, err := readBString(sr, true)
			if err != nil {
				return err
			}
			folder = name
		}
		recs := make([]fileRecord, f.Count)
		if err := binary.Read(sr, binary.LittleEndian, recs); err != nil {
			return fmt.Errorf("%w: file records: %v", ErrTruncated, err)
		}
		for _, r := range recs {
			files = append(files, pending{folder: folder, rec: r})
		}
	}
	if uint32(len(files)) != h.FileCount {
		return fmt.Errorf("%w: %d file records, header says %d", ErrTruncated, len(files), h.FileCount)
	}

	var names [][]byte
	if h.Flags&FlagFileNames != 0 {
		table := make([]byte, h.FileNamesLength)
		if _, err := io.ReadFull(sr, table); err != nil {
			return fmt.Errorf("%w: file names: %v", ErrTruncated, err)
		}
		names = bytes.Split(bytes.TrimSuffix(table, []byte{0}), []byte{0})
		if len(names) != len(files) {
			return fmt.Errorf("%w: %d file names for %d files", ErrTruncated, len(names), len(files))
		}
	}

	compressed := h.Flags&FlagCompressed != 0
	for i, p := range files {
		name := fmt.Sprintf("%016x", p.rec.Hash)
		if names != nil {
			name = string(names[i])
		}
		if p.folder != "" {
			name = p.folder + "/" + name
		}
		e := &Entry{
			Name:       normalizePath(name),
			Size:       p.rec.Size & sizeMask,
			Offset:     p.rec.Offset,
			Compressed: compressed != (p.rec.Size&sizeCompressToggle != 0),
		}
		a.files[e.Name] = e
	}
	return nil
}

// readBString reads a length-prefixed string. Directory names carry a
// trailing NUL inside the length.
func readBString(r io.Reader, nul bool) (string, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", fmt.Errorf("%w: string length: %v", ErrTruncated, err)
	}
	buf := make([]byte, n[0])
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: string: %v", ErrTruncated, err)
	}
	if nul {
		buf = bytes.TrimSuffix(buf, []byte{0})
	}
	return string(buf), nil
}

// List returns all file paths in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.files))
	for path := range a.files {
		result = append(result, path)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of files.
func (a *Archive) Len() int { return len(a.files) }

// Contains checks if a file exists.
func (a *Archive) Contains(path string) bool {
	_, ok := a.files[normalizePath(path)]
	return ok
}

// Entry returns the record for path.
func (a *Archive) Entry(path string) (*Entry, bool) {
	e, ok := a.files[normalizePath(path)]
	return e, ok
}

// Read returns the uncompressed contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	entry, ok := a.files[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	data := make([]byte, entry.Size)
	if _, err := a.r.ReadAt(data, int64(entry.Offset)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTruncated, entry.Name, err)
	}

	if a.header.Version == VersionFallout3 && a.header.Flags&FlagEmbeddedNames != 0 {
		if len(data) < 1 || len(data) < 1+int(data[0]) {
			return nil, fmt.Errorf("%w: %s: embedded name", ErrTruncated, entry.Name)
		}
		data = data[1+int(data[0]):]
	}

	if !entry.Compressed {
		return data, nil
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %s: compressed size", ErrTruncated, entry.Name)
	}
	size := binary.LittleEndian.Uint32(data)
	reader, err := zlib.NewReader(bytes.NewReader(data[4:]))
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", entry.Name, err)
	}
	defer reader.Close()

	result := make([]byte, size)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", entry.Name, err)
	}
	return result, nil
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(strings.TrimPrefix(path, "/"))
}
