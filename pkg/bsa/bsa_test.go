package bsa

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dankdonk/openmw-sub003/pkg/bsa/bsatest"
)

var members = []bsatest.File{
	{Path: `meshes\clutter\bucket.nif`, Data: []byte("bucket mesh")},
	{Path: `meshes\clutter\crate.nif`, Data: bytes.Repeat([]byte("crate"), 64), Toggle: true},
	{Path: `textures\crate.dds`, Data: []byte("DDS texture")},
}

func TestReadArchive(t *testing.T) {
	tests := []struct {
		name    string
		version uint32
		flags   uint32
	}{
		{"oblivion", VersionOblivion, 0},
		{"oblivion compressed", VersionOblivion, FlagCompressed},
		{"fallout3", VersionFallout3, 0},
		{"fallout3 embedded names", VersionFallout3, FlagEmbeddedNames},
		{"fallout3 embedded compressed", VersionFallout3, FlagEmbeddedNames | FlagCompressed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewReader(bytes.NewReader(bsatest.Build(tt.version, tt.flags, members)))
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			defer a.Close()

			want := []string{"meshes/clutter/bucket.nif", "meshes/clutter/crate.nif", "textures/crate.dds"}
			if got := a.List(); !reflect.DeepEqual(got, want) {
				t.Errorf("List() = %v, want %v", got, want)
			}
			for _, m := range members {
				data, err := a.Read(m.Path)
				if err != nil {
					t.Fatalf("Read(%s): %v", m.Path, err)
				}
				if !bytes.Equal(data, m.Data) {
					t.Errorf("Read(%s) = %q", m.Path, data)
				}
			}
		})
	}
}

func TestCompressionToggle(t *testing.T) {
	a, err := NewReader(bytes.NewReader(bsatest.Build(VersionOblivion, FlagCompressed, members)))
	if err != nil {
		t.Fatal(err)
	}
	bucket, _ := a.Entry("meshes/clutter/bucket.nif")
	crate, _ := a.Entry("meshes/clutter/crate.nif")
	if !bucket.Compressed || crate.Compressed {
		t.Errorf("compressed = %v, %v; want true, false", bucket.Compressed, crate.Compressed)
	}
}

func TestContainsNormalizesPaths(t *testing.T) {
	a, err := NewReader(bytes.NewReader(bsatest.Build(VersionOblivion, 0, members)))
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []string{`MESHES\Clutter\Bucket.NIF`, "meshes/clutter/bucket.nif", "/textures/crate.dds"} {
		if !a.Contains(p) {
			t.Errorf("Contains(%q) = false", p)
		}
	}
	if a.Contains("meshes/missing.nif") {
		t.Error("Contains reported a missing file")
	}
	if _, err := a.Read("meshes/missing.nif"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read missing: %v, want ErrNotFound", err)
	}
	if a.Len() != 3 {
		t.Errorf("Len() = %d", a.Len())
	}
}

func TestInvalidHeaders(t *testing.T) {
	good := bsatest.Build(VersionOblivion, 0, members)

	badMagic := append([]byte("BSB\x00"), good[4:]...)
	badVersion := append([]byte(nil), good...)
	badVersion[4] = 105

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"magic", badMagic, ErrInvalidMagic},
		{"version", badVersion, ErrUnsupportedVersion},
		{"short header", good[:20], ErrTruncated},
		{"short directory", good[:60], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bsa")
	if err := os.WriteFile(path, bsatest.Build(VersionFallout3, FlagCompressed, members), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, err := a.Read("textures/crate.dds")
	if err != nil || string(data) != "DDS texture" {
		t.Errorf("Read = %q, %v", data, err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.bsa")); err == nil {
		t.Error("Open of a missing file succeeded")
	}
}
