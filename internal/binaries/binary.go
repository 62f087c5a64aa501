package binaries

import (
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Binary is one linked output and the modules it contains.
type Binary struct {
	Type        rules.BinaryType
	OutputPaths []string
	// OriginalOutputPaths holds the paths before a filter added a suffix.
	OriginalOutputPaths []string
	IntermediateDir     string
	Modules             []*modulegraph.Module

	AllowCompilation              bool
	PrecompileOnly                bool
	AllowExports                  bool
	CreateImportLibrarySeparately bool
}

var _ modulegraph.Owner = (*Binary)(nil)

// PrimaryOutput returns the first output path.
func (b *Binary) PrimaryOutput() string {
	if len(b.OutputPaths) == 0 {
		return ""
	}
	return b.OutputPaths[0]
}

// OutputDir returns the directory of the primary output.
func (b *Binary) OutputDir() string { return filepath.Dir(b.PrimaryOutput()) }

// AddModule appends m unless it is already listed.
func (b *Binary) AddModule(m *modulegraph.Module) {
	if !slices.Contains(b.Modules, m) {
		b.Modules = append(b.Modules, m)
	}
}

// HasModule reports whether a module with the given name is listed.
func (b *Binary) HasModule(name string) bool {
	return slices.ContainsFunc(b.Modules, func(m *modulegraph.Module) bool { return m.Name == name })
}

// FindOnlyModule returns the first requested module this binary owns,
// compared case-insensitively.
func (b *Binary) FindOnlyModule(only []rules.OnlyModule) (rules.OnlyModule, bool) {
	for _, m := range b.Modules {
		for _, o := range only {
			if pathutil.EqualFold(m.Name, o.Name) {
				return o, true
			}
		}
	}
	return rules.OnlyModule{}, false
}

// GameModules returns the listed modules declared outside the engine tree.
func (b *Binary) GameModules(engineDir string) []*modulegraph.Module {
	var out []*modulegraph.Module
	for _, m := range b.Modules {
		if !m.IsEngine(engineDir) {
			out = append(out, m)
		}
	}
	return out
}

// IsUnderAny reports whether the primary output lies under one of dirs.
func (b *Binary) IsUnderAny(dirs []string) bool {
	return slices.ContainsFunc(dirs, func(d string) bool { return pathutil.IsUnder(b.PrimaryOutput(), d) })
}
