package binaries

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// LinkerFixupsName names the artificial module, its source file and its
// entry point.
const LinkerFixupsName = "UELinkerFixups"

const linkerFixupsHeader = LinkerFixupsName + "Name.h"

// GenerateLinkerFixups returns the source lines of the translation unit that
// calls one empty function per non-external module of exe.
func GenerateLinkerFixups(exe *Binary, definitions []string) []string {
	lines := []string{`#include "` + linkerFixupsHeader + `"`}
	for _, def := range definitions {
		name, value, hasValue := strings.Cut(def, "=")
		define := "\t#define " + name
		if hasValue {
			define += " " + value
		}
		lines = append(lines, "#ifndef "+name, define, "#endif")
	}
	lines = append(lines, "void "+LinkerFixupsName+"()", "{")
	for _, name := range linkedModuleNames(exe) {
		fn := "EmptyLinkFunctionForStaticInitialization" + name
		lines = append(lines,
			"    extern void "+fn+"();",
			"    "+fn+"();")
	}
	return append(lines, "}")
}

func linkedModuleNames(exe *Binary) []string {
	var names []string
	for _, m := range exe.Modules {
		if !m.IsExternal() && m.Name != LinkerFixupsName {
			names = append(names, m.Name)
		}
	}
	return names
}

// WriteLinkerFixups writes the empty header and the source file into dir.
// Unchanged files are left untouched. It returns the source file path.
func WriteLinkerFixups(fs billy.Filesystem, dir string, lines []string) (string, error) {
	header := filepath.Join(dir, linkerFixupsHeader)
	source := filepath.Join(dir, LinkerFixupsName+".cpp")
	if _, err := fsutil.WriteIfChanged(fs, header, nil); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write linker fixups header").
			AtPath(header).Build()
	}
	if _, err := fsutil.WriteLinesIfChanged(fs, source, lines); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write linker fixups").
			AtPath(source).Build()
	}
	return source, nil
}

// LinkerFixups synthesizes the linker fixups module of a monolithic
// non-program target and binds it to the executable. It returns nil for
// other targets.
func (a *Assigner) LinkerFixups(fs billy.Filesystem) (*modulegraph.Module, error) {
	if !a.layout.Monolithic || a.target.Type == rules.TargetProgram {
		return nil, nil
	}
	exe := a.Executable()
	names := linkedModuleNames(exe)

	source, err := WriteLinkerFixups(fs, exe.IntermediateDir, GenerateLinkerFixups(exe, a.target.GlobalDefinitions))
	if err != nil {
		return nil, err
	}

	m := &modulegraph.Module{
		Name:                LinkerFixupsName,
		Kind:                rules.ModuleCPP,
		Category:            rules.CategoryGameRuntime,
		Directory:           exe.IntermediateDir,
		PrivateDependencies: names,
		BuildFiles:          true,
		CPP: &modulegraph.CPP{
			SourceFiles:  []string{source},
			FilesToBuild: []string{source},
		},
	}
	if err := m.Bind(exe); err != nil {
		return nil, err
	}
	exe.AddModule(m)
	a.logger.Debug("Wrote linker fixups", logfields.Path(source), logfields.Count(len(names)))
	return m, nil
}
