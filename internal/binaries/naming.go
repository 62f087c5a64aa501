package binaries

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// NameOptions are the target-wide inputs of binary file naming.
type NameOptions struct {
	Platform                 rules.Platform
	Configuration            rules.Configuration
	Architecture             string
	UndecoratedConfiguration rules.Configuration
	OverrideExtension        string
}

// MakeBinaryFileName builds the file name of a binary:
// [lib]<name>[-<Platform>-<Configuration>][<arch>]<extension>.
func MakeBinaryFileName(name string, t rules.BinaryType, o NameOptions) string {
	info := o.Platform.Info()
	var sb strings.Builder
	if info.LibPrefix && (t == rules.BinaryDynamicLibrary || t == rules.BinaryStaticLibrary) {
		sb.WriteString("lib")
	}
	sb.WriteString(name)
	if o.Configuration != o.UndecoratedConfiguration {
		fmt.Fprintf(&sb, "-%s-%s", o.Platform, o.Configuration)
	}
	if info.ArchSuffix {
		sb.WriteString(o.Architecture)
	}
	if o.OverrideExtension != "" {
		sb.WriteString(o.OverrideExtension)
	} else {
		sb.WriteString(o.Platform.Extension(t))
	}
	return sb.String()
}

// MakeBinaryPaths returns the output paths of a binary rooted at baseDir.
// DebugGame binaries without game modules are named as Development.
func MakeBinaryPaths(baseDir, name string, t rules.BinaryType, includesGameModules bool, subFolder string, o NameOptions) []string {
	if o.Configuration == rules.ConfigDebugGame && !includesGameModules {
		o.Configuration = rules.ConfigDevelopment
	}
	dir := filepath.Join(baseDir, "Binaries", string(o.Platform))
	if subFolder != "" {
		dir = filepath.Join(dir, subFolder)
	}
	return []string{filepath.Join(dir, MakeBinaryFileName(name, t, o))}
}

// MakeExecutablePaths returns the output paths of the target's executable.
func MakeExecutablePaths(l *rules.Layout, tr *rules.TargetRules) []string {
	base := l.EngineDir
	if l.Monolithic || tr.Type == rules.TargetProgram || !l.SharedBuildEnvironment {
		base = l.ProjectDir
	}
	name := l.AppName
	if l.Monolithic {
		name = l.TargetName
	}
	return MakeBinaryPaths(base, name, executableType(l, tr), l.Monolithic && l.HasProject(),
		tr.ExeBinariesSubFolder, nameOptions(l, tr))
}

func executableType(l *rules.Layout, tr *rules.TargetRules) rules.BinaryType {
	if tr.CompileAsDLL && l.Monolithic {
		return rules.BinaryDynamicLibrary
	}
	return rules.BinaryExecutable
}

func nameOptions(l *rules.Layout, tr *rules.TargetRules) NameOptions {
	return NameOptions{
		Platform:                 l.Platform,
		Configuration:            l.Configuration,
		Architecture:             l.Architecture,
		UndecoratedConfiguration: tr.UndecoratedConfiguration,
		OverrideExtension:        tr.OverrideExecutableFileExtension,
	}
}

// AddModuleFilenameSuffix inserts -<suffix> right after the last
// case-insensitive occurrence of module in path.
func AddModuleFilenameSuffix(module, path, suffix string) (string, error) {
	pos := strings.LastIndex(strings.ToLower(path), strings.ToLower(module))
	if pos < 0 {
		return "", errors.InternalError(fmt.Sprintf(
			"failed to find module name %q inside of the output filename %q to add appendage", module, path)).
			ForModule(module).
			Build()
	}
	end := pos + len(module)
	return path[:end] + "-" + suffix + path[end:], nil
}
