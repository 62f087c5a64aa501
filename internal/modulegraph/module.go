package modulegraph

import (
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Owner is the binary a module is linked into.
type Owner interface {
	PrimaryOutput() string
}

// CPP is the payload of a module compiled from source.
type CPP struct {
	SourceFiles      []string
	FilesToBuild     []string
	GeneratedCodeDir string
}

// Module is a resolved node of the module graph. Kind selects the payload:
// CPP is set for rules.ModuleCPP and nil for rules.ModuleExternal.
type Module struct {
	Name      string
	Kind      rules.ModuleKind
	Category  rules.ModuleCategory
	Directory string
	RulesFile string
	Rules     *rules.ModuleRules

	PublicDependencies   []string
	PrivateDependencies  []string
	DynamicallyLoaded    []string
	CircularDependencies []string

	PublicIncludePaths  []string
	PrivateIncludePaths []string

	// Plugin is the owning plugin, if any. The graph does not own it.
	Plugin *plugins.Info
	// BuildFiles is false when an only-modules build excludes this module.
	BuildFiles bool
	CPP        *CPP

	binary Owner
}

// IsExternal reports whether the module is binary-only third-party code.
func (m *Module) IsExternal() bool { return m.Kind == rules.ModuleExternal }

// Binary returns the binary the module is bound to, or nil.
func (m *Module) Binary() Owner { return m.binary }

// Bind assigns the module's binary. Binding twice to different binaries is
// an internal error.
func (m *Module) Bind(b Owner) error {
	if b == nil {
		return errors.InternalError("failed to set up binary for module " + m.Name).
			ForModule(m.Name).Build()
	}
	if m.binary != nil && m.binary != b {
		return errors.InternalError("module " + m.Name + " is already bound to " + m.binary.PrimaryOutput()).
			ForModule(m.Name).Build()
	}
	m.binary = b
	return nil
}

// Rebind moves the module to b. Only precompiled static library setup does this.
func (m *Module) Rebind(b Owner) { m.binary = b }

// DirectDependencies returns public then private dependency names.
func (m *Module) DirectDependencies() []string {
	out := make([]string, 0, len(m.PublicDependencies)+len(m.PrivateDependencies))
	out = append(out, m.PublicDependencies...)
	return append(out, m.PrivateDependencies...)
}

// HasCircularDependencyOn reports whether the edge to name is tagged circular.
func (m *Module) HasCircularDependencyOn(name string) bool {
	return slices.Contains(m.CircularDependencies, name)
}

// IsEngine reports whether the module's declaration lives in the engine tree.
func (m *Module) IsEngine(engineDir string) bool {
	return pathutil.IsUnder(m.RulesFile, engineDir)
}

// IsRedistributable reports whether the module may ship in a non-editor
// build. The target override wins, then the module's own flag, then the
// location: Developer and Editor engine sources are not redistributable.
func (m *Module) IsRedistributable(tr *rules.TargetRules, engineDir string) bool {
	if tr != nil && tr.RedistributableOverride != nil {
		if ok, applies := tr.RedistributableOverride(m.Name); applies {
			return ok
		}
	}
	if m.Rules != nil && m.Rules.Redistributable != nil {
		return *m.Rules.Redistributable
	}
	source := engineSourceDir(engineDir)
	return !pathutil.IsUnder(m.RulesFile, filepath.Join(source, "Developer")) &&
		!pathutil.IsUnder(m.RulesFile, filepath.Join(source, "Editor"))
}
