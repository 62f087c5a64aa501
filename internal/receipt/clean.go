package receipt

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/go-git/go-billy/v5/util"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/retry"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/sets"
)

// windowsSiblings are written next to .exe and .dll outputs on Windows
// without being recorded in the receipt.
var windowsSiblings = []string{".lib", ".exp", ".dll.response", ".map", ".objpaths"}

// CleanStaleModules deletes outputs of the previous build that this build no
// longer produces, plus files in the output directories that share a name
// with a current output at a different path. It returns the number of
// deleted files.
func (m *Manager) CleanStaleModules(bs []*binaries.Binary) (int, error) {
	if m.receipt == nil {
		return 0, nil
	}
	l := m.layout
	toDelete := sets.New[string]()

	old, err := Read(m.fs, l.ReceiptFile)
	if err != nil {
		return 0, err
	}
	if old != nil {
		old.ExpandPathVariables(l.EngineDir, l.ProjectDir)
		current := m.receipt.Clone()
		current.ExpandPathVariables(l.EngineDir, l.ProjectDir)
		kept := sets.New(current.ProductPaths()...)
		for _, p := range old.ProductPaths() {
			if !kept.Has(p) {
				toDelete.Add(p)
			}
		}
	}

	outputs := sets.New[string]()
	byName := map[string]string{}
	dirs := sets.New[string]()
	for _, b := range bs {
		for _, p := range b.OutputPaths {
			outputs.Add(p)
			byName[pathutil.Fold(filepath.Base(p))] = p
			dirs.Add(filepath.Dir(p))
		}
	}
	for _, dir := range sets.Sorted(dirs) {
		entries, err := m.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			existing := filepath.Join(dir, e.Name())
			if current, ok := byName[pathutil.Fold(e.Name())]; ok && !outputs.Has(existing) {
				m.logger.Info("Deleting file to avoid ambiguity",
					logfields.Path(existing),
					logfields.Binary(current))
				toDelete.Add(existing)
			}
		}
	}

	return m.CleanItems(sets.Sorted(toDelete), nil)
}

// CleanItems deletes dirs and then files, skipping what the clean scope
// protects. On Windows the unrecorded siblings of executables and libraries
// are deleted as well. It returns the number of deleted files.
func (m *Manager) CleanItems(files, dirs []string) (int, error) {
	l := m.layout
	fileSet := sets.New(files...)
	dirSet := sets.New(dirs...)

	if l.Platform.IsWindows() {
		for _, f := range files {
			ext := filepath.Ext(f)
			if ext != ".exe" && ext != ".dll" {
				continue
			}
			for _, sib := range windowsSiblings {
				fileSet.Add(pathutil.ReplaceExtension(f, sib))
			}
		}
	}

	keep := func(p string) bool {
		if m.scope.UsePrecompiled && pathutil.IsUnder(p, l.EngineDir) {
			return false
		}
		if m.scope.ProjectInstalled {
			return slices.ContainsFunc(m.scope.ModDirs, func(d string) bool { return pathutil.IsUnder(p, d) })
		}
		return true
	}

	for _, d := range sets.Sorted(dirSet) {
		if !keep(d) || !fsutil.IsDir(m.fs, d) {
			continue
		}
		m.logger.Debug("Deleting directory", logfields.Path(d))
		if err := m.CleanDirectory(d); err != nil {
			return 0, err
		}
	}

	deleted := 0
	for _, f := range sets.Sorted(fileSet) {
		if !keep(f) {
			continue
		}
		if ok, _ := fsutil.Exists(m.fs, f); !ok {
			continue
		}
		m.logger.Debug("Deleting file", logfields.Path(f))
		if err := m.CleanFile(f); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// CleanFile deletes path, retrying on the cleanup schedule while another
// process holds it. A missing file counts as deleted.
func (m *Manager) CleanFile(path string) error {
	err := retry.Do(m.policy, m.sleep, func(attempt int) error {
		err := m.fs.Remove(path)
		if err != nil && os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			m.logger.Debug("Delete failed", logfields.Path(path), logfields.Error(err), "attempt", attempt)
		}
		return err
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "delete file").
			AtPath(path).Build()
	}
	return nil
}

// CleanDirectory deletes a directory tree on the cleanup schedule. A missing
// directory counts as deleted.
func (m *Manager) CleanDirectory(path string) error {
	err := retry.Do(m.policy, m.sleep, func(int) error {
		if !fsutil.IsDir(m.fs, path) {
			return nil
		}
		return util.RemoveAll(m.fs, path)
	})
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "delete directory").
			AtPath(path).Build()
	}
	return nil
}

// CleanTargetInput lists what a full clean removes besides receipt products.
type CleanTargetInput struct {
	Binaries []*binaries.Binary
	// HotReload keeps executables and dynamic libraries a running process may hold.
	HotReload        bool
	IntermediateDirs []string
	GeneratedDirs    []string
}

// CleanTarget deletes the products recorded in the existing receipt and
// those of the current binaries, the receipt itself, and the intermediate
// and generated code directories.
func (m *Manager) CleanTarget(in CleanTargetInput) (int, error) {
	l := m.layout
	keepType := func(t rules.BuildProductType) bool {
		return in.HotReload && (t == rules.ProductExecutable || t == rules.ProductDynamicLibrary)
	}

	var files []string
	old, err := Read(m.fs, l.ReceiptFile)
	if err != nil {
		return 0, err
	}
	if old != nil {
		old.ExpandPathVariables(l.EngineDir, l.ProjectDir)
		for _, p := range old.BuildProducts {
			if !keepType(p.Type) {
				files = append(files, p.Path)
			}
		}
	}
	for _, b := range in.Binaries {
		if in.HotReload && (b.Type == rules.BinaryExecutable || b.Type == rules.BinaryDynamicLibrary) {
			continue
		}
		files = append(files, b.OutputPaths...)
	}
	files = append(files, l.ReceiptFile)

	dirs := slices.Concat(in.IntermediateDirs, in.GeneratedDirs)
	n, err := m.CleanItems(files, dirs)
	if err != nil {
		return n, err
	}
	m.logger.Info("Cleaned target", logfields.Target(l.TargetName), logfields.Count(n))
	return n, nil
}
