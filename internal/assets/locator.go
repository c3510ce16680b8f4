// Package assets locates model files in loose directories and BSA archives
// and caches the models built from them.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dankdonk/openmw-sub003/pkg/bsa"
)

// ErrNotFound reports a file no locator holds.
var ErrNotFound = errors.New("asset not found")

// Locator finds the bytes of a named file within a resource group. An
// implementation with an empty group serves every group.
type Locator interface {
	Locate(name, group string) ([]byte, error)
	String() string
}

// NormalizeName lowercases name and uses forward slashes.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	return strings.ToLower(strings.TrimPrefix(name, "/"))
}

// DirLocator serves loose files below a directory. Lookups ignore case.
type DirLocator struct {
	Dir   string
	Group string
}

// NewDirLocator returns a locator over dir.
func NewDirLocator(dir, group string) *DirLocator {
	return &DirLocator{Dir: dir, Group: group}
}

func (l *DirLocator) String() string { return "dir:" + l.Dir }

// Locate reads name below the directory.
func (l *DirLocator) Locate(name, group string) ([]byte, error) {
	if !groupMatches(l.Group, group) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	path, ok := l.resolve(NormalizeName(name))
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// resolve walks name one component at a time, matching entries without
// regard to case.
func (l *DirLocator) resolve(name string) (string, bool) {
	exact := filepath.Join(l.Dir, filepath.FromSlash(name))
	if st, err := os.Stat(exact); err == nil && !st.IsDir() {
		return exact, true
	}
	cur := l.Dir
	for _, part := range strings.Split(name, "/") {
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", false
		}
		found := false
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				cur = filepath.Join(cur, e.Name())
				found = true
				break
			}
		}
		if !found {
			return "", false
		}
	}
	st, err := os.Stat(cur)
	return cur, err == nil && !st.IsDir()
}

// ArchiveLocator serves the files of one BSA archive.
type ArchiveLocator struct {
	Archive *bsa.Archive
	Path    string
	Group   string
}

// OpenArchiveLocator opens the archive at path.
func OpenArchiveLocator(path, group string) (*ArchiveLocator, error) {
	a, err := bsa.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	return &ArchiveLocator{Archive: a, Path: path, Group: group}, nil
}

func (l *ArchiveLocator) String() string { return "bsa:" + l.Path }

// Locate reads name from the archive.
func (l *ArchiveLocator) Locate(name, group string) ([]byte, error) {
	if !groupMatches(l.Group, group) || !l.Archive.Contains(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return l.Archive.Read(name)
}

// Close closes the archive.
func (l *ArchiveLocator) Close() error { return l.Archive.Close() }

func groupMatches(have, want string) bool {
	return have == "" || want == "" || strings.EqualFold(have, want)
}
