// Package fsutil holds the go-billy helpers shared by the catalog, receipt,
// build-step and linker-fixup writers.
package fsutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// NewOS returns a filesystem that accepts absolute host paths.
func NewOS() billy.Filesystem {
	return osfs.New(string(filepath.Separator))
}

// Exists reports whether path exists.
func Exists(fs billy.Filesystem, path string) (bool, error) {
	_, err := fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("stat %q: %w", path, err)
	}
}

// IsDir reports whether path is an existing directory.
func IsDir(fs billy.Filesystem, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.IsDir()
}

// WriteIfChanged writes data to path unless the file already holds exactly
// data. It reports whether a write happened.
func WriteIfChanged(fs billy.Filesystem, path string, data []byte) (bool, error) {
	existing, err := util.ReadFile(fs, path)
	if err == nil && bytes.Equal(existing, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %q: %w", path, err)
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("mkdir %q: %w", filepath.Dir(path), err)
	}
	if err := util.WriteFile(fs, path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %q: %w", path, err)
	}
	return true, nil
}

// WriteLinesIfChanged joins lines with newlines and writes them idempotently.
func WriteLinesIfChanged(fs billy.Filesystem, path string, lines []string) (bool, error) {
	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	return WriteIfChanged(fs, path, buf.Bytes())
}

// ListFiles returns every regular file under root accepted by keep, sorted.
// A missing root yields no files.
func ListFiles(fs billy.Filesystem, root string, keep func(path string) bool) ([]string, error) {
	if !IsDir(fs, root) {
		return nil, nil
	}
	var files []string
	err := util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if keep == nil || keep(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// ListDirs returns root and every directory below it, sorted.
func ListDirs(fs billy.Filesystem, root string) ([]string, error) {
	if !IsDir(fs, root) {
		return nil, nil
	}
	var dirs []string
	err := util.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %q: %w", root, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}
