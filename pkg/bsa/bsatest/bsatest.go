// Package bsatest builds BSA archives in memory for tests.
package bsatest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"path"
	"sort"
	"strings"
)

// File is one archive member.
type File struct {
	Path string // folder\name or folder/name
	Data []byte
	// Toggle flips the archive-wide compression default for this file.
	Toggle bool
}

type folder struct {
	name  string
	files []File
}

// Build returns a BSA archive with directory and file names.
func Build(version, flags uint32, files []File) []byte {
	flags |= 0x1 | 0x2
	byFolder := map[string]*folder{}
	var folders []*folder
	for _, f := range files {
		p := strings.ToLower(strings.ReplaceAll(f.Path, "/", "\\"))
		dir, _ := splitPath(p)
		fo, ok := byFolder[dir]
		if !ok {
			fo = &folder{name: dir}
			byFolder[dir] = fo
			folders = append(folders, fo)
		}
		f.Path = p
		fo.files = append(fo.files, f)
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].name < folders[j].name })

	var names bytes.Buffer
	folderNames := 0
	for _, fo := range folders {
		folderNames += len(fo.name) + 1
		for _, f := range fo.files {
			_, base := splitPath(f.Path)
			names.WriteString(base)
			names.WriteByte(0)
		}
	}

	const headerSize = 36
	recordsSize := 16*len(folders) + (len(folders) + folderNames) + 16*len(files)
	dataStart := uint32(headerSize + recordsSize + names.Len())

	var blobs []byte
	var sizes, offsets []uint32
	for _, fo := range folders {
		for _, f := range fo.files {
			stored := encode(version, flags, f)
			offsets = append(offsets, dataStart+uint32(len(blobs)))
			size := uint32(len(stored))
			if f.Toggle {
				size |= 0x40000000
			}
			sizes = append(sizes, size)
			blobs = append(blobs, stored...)
		}
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.WriteString("BSA\x00")
	for _, v := range []uint32{version, headerSize, flags, uint32(len(folders)), uint32(len(files)),
		uint32(folderNames), uint32(names.Len()), 0} {
		binary.Write(&buf, le, v)
	}

	blockOffset := uint32(headerSize + 16*len(folders))
	for _, fo := range folders {
		binary.Write(&buf, le, uint64(0))
		binary.Write(&buf, le, uint32(len(fo.files)))
		binary.Write(&buf, le, blockOffset+uint32(names.Len()))
		blockOffset += uint32(len(fo.name)+2) + 16*uint32(len(fo.files))
	}
	i := 0
	for _, fo := range folders {
		buf.WriteByte(byte(len(fo.name) + 1))
		buf.WriteString(fo.name)
		buf.WriteByte(0)
		for range fo.files {
			binary.Write(&buf, le, uint64(0))
			binary.Write(&buf, le, sizes[i])
			binary.Write(&buf, le, offsets[i])
			i++
		}
	}
	buf.Write(names.Bytes())
	buf.Write(blobs)
	return buf.Bytes()
}

func encode(version, flags uint32, f File) []byte {
	var out bytes.Buffer
	if version == 104 && flags&0x100 != 0 {
		out.WriteByte(byte(len(f.Path)))
		out.WriteString(f.Path)
	}
	if (flags&0x4 != 0) == f.Toggle {
		out.Write(f.Data)
		return out.Bytes()
	}
	binary.Write(&out, binary.LittleEndian, uint32(len(f.Data)))
	zw := zlib.NewWriter(&out)
	zw.Write(f.Data)
	zw.Close()
	return out.Bytes()
}

func splitPath(p string) (dir, base string) {
	dir, base = path.Split(strings.ReplaceAll(p, "\\", "/"))
	return strings.ReplaceAll(strings.TrimSuffix(dir, "/"), "/", "\\"), base
}
