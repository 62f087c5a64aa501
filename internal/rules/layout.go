package rules

import (
	"fmt"
	"path/filepath"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
)

// OnlyModule restricts a build to one module, optionally writing its binary
// under a suffixed name.
type OnlyModule struct {
	Name   string
	Suffix string
}

// TargetDescriptor identifies one build invocation.
type TargetDescriptor struct {
	Name          string
	Platform      Platform
	Configuration Configuration
	Architecture  string

	OnlyModules []OnlyModule
	HotReload   bool
	// SingleFile narrows compilation to the module containing this source file.
	SingleFile string
	// ForceReceiptFile writes an extra copy of the receipt to this path.
	ForceReceiptFile string
	// ForeignPlugins are plugin descriptor files built even when not enabled.
	ForeignPlugins []string
}

// Layout is the resolved naming and directory layout of a target invocation.
// It is computed once during setup and read by every later stage.
type Layout struct {
	TargetName    string
	AppName       string
	Type          TargetType
	Platform      Platform
	Configuration Configuration
	Architecture  string

	EngineDir   string
	ProjectFile string
	// ProjectDir is the project file's directory, or the engine dir without a project.
	ProjectDir string

	Monolithic             bool
	SharedBuildEnvironment bool

	// PlatformIntermediateFolder is Intermediate/Build/<Platform>, relative to a base dir.
	PlatformIntermediateFolder string
	ProjectIntermediateDir     string
	EngineIntermediateDir      string
	// SharedBuildIDFile is only set in a shared build environment.
	SharedBuildIDFile string
	ReceiptFile       string
}

var sharedAppNames = map[TargetType]string{
	TargetGame:   "UE4",
	TargetClient: "UE4Client",
	TargetServer: "UE4Server",
	TargetEditor: "UE4Editor",
}

// NewLayout resolves the layout for desc built with the given rules.
func NewLayout(desc TargetDescriptor, tr *TargetRules, engineDir, projectFile string) (*Layout, error) {
	tr.ApplyDefaults()

	l := &Layout{
		TargetName:             desc.Name,
		AppName:                desc.Name,
		Type:                   tr.Type,
		Platform:               desc.Platform,
		Configuration:          desc.Configuration,
		Architecture:           desc.Architecture,
		EngineDir:              filepath.Clean(engineDir),
		ProjectFile:            projectFile,
		Monolithic:             tr.Monolithic(),
		SharedBuildEnvironment: tr.UseSharedBuildEnvironment,
	}
	if l.Architecture == "" {
		l.Architecture = desc.Platform.Info().DefaultArch
	}

	if !l.Monolithic && desc.Platform.Info().MonolithicOnly {
		return nil, errors.ConfigError(fmt.Sprintf("%s does not support modular builds", desc.Platform)).Build()
	}

	if l.SharedBuildEnvironment {
		if name, ok := sharedAppNames[tr.Type]; ok {
			l.AppName = name
		}
	}

	if projectFile != "" {
		l.ProjectDir = filepath.Dir(projectFile)
	} else {
		l.ProjectDir = l.EngineDir
	}

	l.PlatformIntermediateFolder = filepath.Join("Intermediate", "Build", string(desc.Platform))
	l.ProjectIntermediateDir = filepath.Join(l.ProjectDir, l.PlatformIntermediateFolder, l.TargetName, string(desc.Configuration))

	switch {
	case !l.SharedBuildEnvironment:
		l.EngineIntermediateDir = l.ProjectIntermediateDir
	case desc.Configuration == ConfigDebugGame:
		l.EngineIntermediateDir = filepath.Join(l.EngineDir, l.PlatformIntermediateFolder, l.AppName, string(ConfigDevelopment))
	default:
		l.EngineIntermediateDir = filepath.Join(l.EngineDir, l.PlatformIntermediateFolder, l.AppName, string(desc.Configuration))
	}

	if l.SharedBuildEnvironment {
		l.SharedBuildIDFile = filepath.Join(l.EngineIntermediateDir, "BuildId.txt")
	}

	l.ReceiptFile = filepath.Join(l.ProjectDir, "Binaries", string(desc.Platform),
		DecoratedName(l.TargetName, desc.Platform, desc.Configuration, ConfigDevelopment)+".target")

	return l, nil
}

// HasProject reports whether the target is owned by a project.
func (l *Layout) HasProject() bool { return l.ProjectFile != "" }

// EngineSourceDir returns <Engine>/Source.
func (l *Layout) EngineSourceDir() string { return filepath.Join(l.EngineDir, "Source") }

// ProjectSourceDir returns <Project>/Source, or "" without a project.
func (l *Layout) ProjectSourceDir() string {
	if !l.HasProject() {
		return ""
	}
	return filepath.Join(l.ProjectDir, "Source")
}

// DecoratedName appends -<Platform>-<Configuration> to name unless the
// configuration is the undecorated one.
func DecoratedName(name string, p Platform, c, undecorated Configuration) string {
	if c == undecorated {
		return name
	}
	return fmt.Sprintf("%s-%s-%s", name, p, c)
}
