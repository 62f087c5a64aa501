package binaries

import (
	"fmt"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// FilterOnlyModules keeps the non-executable binaries owning one of the
// requested modules. A requested suffix is added to their output names.
func FilterOnlyModules(bs []*Binary, only []rules.OnlyModule) ([]*Binary, error) {
	var out []*Binary
	for _, b := range bs {
		if b.Type == rules.BinaryExecutable {
			continue
		}
		found, ok := b.FindOnlyModule(only)
		if !ok {
			continue
		}
		out = append(out, b)
		if found.Suffix != "" {
			if err := suffixOutputs(b, found.Name, found.Suffix); err != nil {
				return nil, err
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.FilterExhaustedError(
			"One or more of the modules specified using the '--module' argument could not be found.").Build()
	}
	return out, nil
}

// FilterHotReload keeps binaries containing game modules and suffixes their
// outputs with disambiguator so a running process keeps its files. When
// modDirs is non-nil only binaries under those directories are kept.
func FilterHotReload(bs []*Binary, engineDir, disambiguator string, modDirs []string) ([]*Binary, error) {
	var out []*Binary
	for _, b := range bs {
		game := b.GameModules(engineDir)
		if len(game) == 0 {
			continue
		}
		if modDirs != nil && !b.IsUnderAny(modDirs) {
			continue
		}
		out = append(out, b)
		if err := suffixOutputs(b, game[0].Name, disambiguator); err != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, errors.FilterExhaustedError("No game modules found to hot reload.").Build()
	}
	return out, nil
}

// FilterInstalledMods keeps the binaries under mod plugin directories.
func FilterInstalledMods(bs []*Binary, modDirs []string) ([]*Binary, error) {
	var out []*Binary
	for _, b := range bs {
		if b.IsUnderAny(modDirs) {
			out = append(out, b)
		}
	}
	if len(out) == 0 {
		return nil, errors.FilterExhaustedError(
			"No modules found to build. All requested binaries were already part of the installed data.").Build()
	}
	return out, nil
}

// FilterSingleFile keeps the binaries of the dependency modules whose sources
// contain file and narrows those modules to compile only that file.
func FilterSingleFile(bs []*Binary, g *modulegraph.Builder, file, targetName string) ([]*Binary, error) {
	file = filepath.Clean(file)
	var roots []*modulegraph.Module
	for _, b := range bs {
		roots = append(roots, b.Modules...)
	}
	deps, err := g.AllDependencies(roots, false, false)
	if err != nil {
		return nil, err
	}

	var out []*Binary
	for _, m := range deps {
		owner, _ := m.Binary().(*Binary)
		if m.CPP == nil || owner == nil || !slices.Contains(m.CPP.SourceFiles, file) {
			continue
		}
		if !slices.Contains(out, owner) {
			out = append(out, owner)
		}
		m.CPP.FilesToBuild = []string{file}
	}
	if len(out) == 0 {
		return nil, errors.FilterExhaustedError(fmt.Sprintf("Couldn't find any module containing %s in %s.", file, targetName)).
			AtPath(file).
			Build()
	}
	return out, nil
}

// ModDirectories returns the directories of enabled mod plugins.
func ModDirectories(enabled []*plugins.Info) []string {
	dirs := []string{}
	for _, p := range enabled {
		if p.Descriptor.IsMod {
			dirs = append(dirs, p.Directory)
		}
	}
	return dirs
}

func suffixOutputs(b *Binary, module, suffix string) error {
	renamed := make([]string, len(b.OutputPaths))
	for i, p := range b.OutputPaths {
		np, err := AddModuleFilenameSuffix(module, p, suffix)
		if err != nil {
			return err
		}
		renamed[i] = np
	}
	b.OriginalOutputPaths = b.OutputPaths
	b.OutputPaths = renamed
	return nil
}
