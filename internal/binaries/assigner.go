package binaries

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Catalog is the part of the declaration catalog binary assignment reads.
type Catalog interface {
	HasSource(name string) (bool, error)
	ModuleNames() ([]string, error)
	CreateModuleRules(name string) (*rules.ModuleRules, error)
}

// Assigner binds modules to binaries for one target.
type Assigner struct {
	layout  *rules.Layout
	target  *rules.TargetRules
	graph   *modulegraph.Builder
	catalog Catalog
	plugins *plugins.Set
	logger  *slog.Logger

	// Binaries is the current binary list. The executable comes first.
	Binaries []*Binary
}

// NewAssigner returns an Assigner with no binaries.
func NewAssigner(l *rules.Layout, tr *rules.TargetRules, g *modulegraph.Builder, c Catalog, ps *plugins.Set) *Assigner {
	return &Assigner{
		layout:  l,
		target:  tr,
		graph:   g,
		catalog: c,
		plugins: ps,
		logger:  slog.Default(),
	}
}

// WithLogger replaces the assigner's logger.
func (a *Assigner) WithLogger(l *slog.Logger) *Assigner {
	if l != nil {
		a.logger = l
	}
	return a
}

// Executable returns the target's app binary, or nil before setup.
func (a *Assigner) Executable() *Binary {
	if len(a.Binaries) == 0 {
		return nil
	}
	return a.Binaries[0]
}

// Setup runs the full assignment: the app binary and its launch module,
// build plugins, extra modules, every referenced module, precompiled
// modules, external references and import library marking.
func (a *Assigner) Setup() error {
	if err := a.CreateAppBinary(); err != nil {
		return err
	}
	for _, p := range a.plugins.Build {
		if err := a.AddPlugin(p); err != nil {
			return err
		}
	}
	for _, name := range a.target.ExtraModuleNames {
		m, err := a.graph.Resolve(name)
		if err != nil {
			return err
		}
		if m.Binary() == nil {
			if _, err := a.AddModuleToBinary(m); err != nil {
				return err
			}
		}
	}
	if err := a.BindReferencedModules(); err != nil {
		return err
	}
	if err := a.AddPrecompiledModules(); err != nil {
		return err
	}
	a.BindUnboundReferences()
	a.MarkCircularImportLibraries()
	a.logger.Info("Assigned modules to binaries",
		logfields.Target(a.layout.TargetName),
		logfields.Count(len(a.Binaries)))
	return nil
}

// CreateAppBinary creates the executable and binds the launch module to it.
func (a *Assigner) CreateAppBinary() error {
	l := a.layout
	if a.target.LaunchModule == "" {
		if a.target.Type == rules.TargetProgram {
			return errors.ConfigError("LaunchModule must be set for program targets.").Build()
		}
		return errors.ConfigError(fmt.Sprintf("target %s has no launch module", l.TargetName)).Build()
	}

	exe := &Binary{
		Type:                          executableType(l, a.target),
		OutputPaths:                   MakeExecutablePaths(l, a.target),
		IntermediateDir:               l.ProjectIntermediateDir,
		AllowCompilation:              true,
		AllowExports:                  !l.Monolithic,
		CreateImportLibrarySeparately: !l.Monolithic,
	}
	if !l.Monolithic && a.target.Type != rules.TargetProgram {
		exe.IntermediateDir = l.EngineIntermediateDir
	}
	a.Binaries = []*Binary{exe}

	launch, err := a.graph.Resolve(a.target.LaunchModule)
	if err != nil {
		return err
	}
	if err := launch.Bind(exe); err != nil {
		return err
	}
	exe.AddModule(launch)
	return nil
}

// AddModuleToBinary links m into the executable when monolithic and into a
// new dynamic library otherwise.
func (a *Assigner) AddModuleToBinary(m *modulegraph.Module) (*Binary, error) {
	if a.layout.Monolithic {
		exe := a.Executable()
		if err := m.Bind(exe); err != nil {
			return nil, err
		}
		exe.AddModule(m)
		return exe, nil
	}
	return a.CreateBinaryForModule(m, rules.BinaryDynamicLibrary, true, false)
}

// CreateBinaryForModule creates a binary holding only m, binds m to it and
// appends it to the binary list.
func (a *Assigner) CreateBinaryForModule(m *modulegraph.Module, t rules.BinaryType, allowCompilation, precompileOnly bool) (*Binary, error) {
	b := a.newModuleBinary(m, t, allowCompilation, precompileOnly)
	if err := m.Bind(b); err != nil {
		return nil, err
	}
	b.AddModule(m)
	a.Binaries = append(a.Binaries, b)
	return b, nil
}

func (a *Assigner) newModuleBinary(m *modulegraph.Module, t rules.BinaryType, allowCompilation, precompileOnly bool) *Binary {
	l := a.layout
	isGame := !m.IsEngine(l.EngineDir)

	base := l.EngineDir
	switch {
	case m.Plugin != nil:
		base = m.Plugin.Directory
	case isGame || !l.SharedBuildEnvironment:
		base = l.ProjectDir
	}

	opts := nameOptions(l, a.target)
	if opts.Configuration == rules.ConfigDebugGame && !isGame {
		opts.Configuration = rules.ConfigDevelopment
	}

	outDir := filepath.Join(base, "Binaries", string(l.Platform))
	intermediate := filepath.Join(base, l.PlatformIntermediateFolder, l.AppName, string(opts.Configuration))
	if m.Rules != nil && m.Rules.BinariesSubFolder != "" {
		sub := m.Rules.BinariesSubFolder
		outDir = filepath.Join(outDir, sub)
		intermediate = filepath.Join(intermediate, sub)
	}

	return &Binary{
		Type:             t,
		OutputPaths:      []string{filepath.Join(outDir, MakeBinaryFileName(l.AppName+"-"+m.Name, t, opts))},
		IntermediateDir:  intermediate,
		AllowCompilation: allowCompilation,
		PrecompileOnly:   precompileOnly,
		AllowExports:     t == rules.BinaryDynamicLibrary,
	}
}

// AddPlugin creates binaries for the plugin's modules compiled in this
// configuration. Under monolithic linking, modules of enabled plugins are
// also listed on the executable.
func (a *Assigner) AddPlugin(p *plugins.Info) error {
	t := rules.BinaryDynamicLibrary
	if a.layout.Monolithic {
		t = rules.BinaryStaticLibrary
	}
	enabled := a.plugins.IsEnabled(p)
	for _, desc := range p.Descriptor.Modules {
		if !desc.IsCompiledInConfiguration(a.layout.Platform, a.target.Type, a.target.BuildDeveloperTools, a.target.BuildEditor()) {
			continue
		}
		m, err := a.graph.Resolve(desc.Name)
		if err != nil {
			return err
		}
		if m.Binary() != nil {
			continue
		}
		hasSource, err := a.catalog.HasSource(desc.Name)
		if err != nil {
			return err
		}
		if _, err := a.CreateBinaryForModule(m, t, hasSource, !enabled); err != nil {
			return err
		}
		if a.layout.Monolithic && enabled {
			a.Executable().AddModule(m)
		}
		a.logger.Debug("Added plugin module", logfields.Plugin(p.Name), logfields.Module(m.Name))
	}
	return nil
}

// BindReferencedModules binds every C++ module referenced by the current
// binaries, including dynamic and circular references.
func (a *Assigner) BindReferencedModules() error {
	for i := 0; i < len(a.Binaries); i++ {
		deps, err := a.graph.AllDependencies(a.Binaries[i].Modules, true, true)
		if err != nil {
			return err
		}
		for _, m := range deps {
			if m.IsExternal() || m.Binary() != nil {
				continue
			}
			if _, err := a.AddModuleToBinary(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddPrecompiledModules gives every engine module a binary of its own when
// precompiling or consuming precompiled binaries.
func (a *Assigner) AddPrecompiledModules() error {
	tr := a.target
	if !tr.Precompile && !tr.UsePrecompiled {
		return nil
	}

	var precompiled []*modulegraph.Module
	for _, m := range a.graph.Modules() {
		if !m.IsExternal() && m.Binary() != nil && m.IsEngine(a.layout.EngineDir) {
			precompiled = append(precompiled, m)
		}
	}

	if tr.Precompile && !a.layout.HasProject() && tr.Type != rules.TargetProgram {
		extra, err := a.precompilableEngineModules(precompiled)
		if err != nil {
			return err
		}
		precompiled = append(precompiled, extra...)
	}

	t := rules.BinaryDynamicLibrary
	if a.layout.Monolithic {
		t = rules.BinaryStaticLibrary
	}
	for _, m := range precompiled {
		current, _ := m.Binary().(*Binary)
		switch {
		case current == nil:
			if _, err := a.CreateBinaryForModule(m, t, !tr.UsePrecompiled, tr.Precompile); err != nil {
				return err
			}
		case a.layout.Monolithic && current.Type != rules.BinaryStaticLibrary:
			b := a.newModuleBinary(m, t, !tr.UsePrecompiled, tr.Precompile)
			m.Rebind(b)
			b.AddModule(m)
			a.Binaries = append(a.Binaries, b)
		case tr.UsePrecompiled:
			current.AllowCompilation = false
		}
	}
	return nil
}

// precompilableEngineModules finds the engine modules outside the target
// that a base engine precompile should still build.
func (a *Assigner) precompilableEngineModules(known []*modulegraph.Module) ([]*modulegraph.Module, error) {
	l := a.layout
	source := filepath.Join(l.EngineDir, "Source")
	dirs := []string{filepath.Join(source, "Runtime")}
	if a.target.Type == rules.TargetEditor {
		dirs = append(dirs, filepath.Join(source, "Editor"))
	}
	if l.Configuration != rules.ConfigShipping {
		dirs = append(dirs, filepath.Join(source, "Developer"))
	}
	excluded := pathutil.FoldAll(l.Platform.ExcludedFolderNames()...)

	names, err := a.catalog.ModuleNames()
	if err != nil {
		return nil, err
	}
	var out []*modulegraph.Module
	for _, name := range names {
		if slices.ContainsFunc(known, func(m *modulegraph.Module) bool { return m.Name == name }) {
			continue
		}
		mr, err := a.catalog.CreateModuleRules(name)
		if err != nil || mr.Kind != rules.ModuleCPP {
			continue
		}
		if !slices.ContainsFunc(dirs, func(d string) bool { return pathutil.IsUnder(mr.File, d) }) ||
			pathutil.ContainsFolder(mr.File, source, excluded) ||
			!a.canPrecompile(mr) {
			continue
		}
		m, err := a.graph.Resolve(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (a *Assigner) canPrecompile(mr *rules.ModuleRules) bool {
	t := a.target.Type
	switch mr.PrecompileForTargets {
	case rules.PrecompileNone:
		return false
	case rules.PrecompileGame:
		return t == rules.TargetGame || t == rules.TargetClient || t == rules.TargetServer
	case rules.PrecompileEditor:
		return t == rules.TargetEditor
	case rules.PrecompileAny:
		return true
	default:
		developer := filepath.Join(a.layout.EngineDir, "Source", "Developer")
		return !pathutil.IsUnder(mr.File, developer) || t == rules.TargetEditor
	}
}

// BindUnboundReferences lists the external modules each bound C++ module
// links against on that module's binary.
func (a *Assigner) BindUnboundReferences() {
	for _, m := range a.graph.Modules() {
		b, ok := m.Binary().(*Binary)
		if m.IsExternal() || !ok || b == nil {
			continue
		}
		for _, ref := range a.graph.UnboundReferences(m) {
			b.AddModule(ref)
		}
	}
}

// MarkCircularImportLibraries marks binaries that must create their import
// library before linking. Windows marks every binary; other platforms mark
// only binaries of circularly referenced modules.
func (a *Assigner) MarkCircularImportLibraries() {
	if a.layout.Monolithic {
		return
	}
	if a.layout.Platform.IsWindows() {
		for _, b := range a.Binaries {
			b.CreateImportLibrarySeparately = true
		}
		return
	}
	for _, m := range a.graph.Modules() {
		if m.Binary() == nil {
			continue
		}
		for _, name := range m.CircularDependencies {
			ref, ok := a.graph.Lookup(name)
			if !ok {
				continue
			}
			if b, ok := ref.Binary().(*Binary); ok && b != nil {
				b.CreateImportLibrarySeparately = true
			}
		}
	}
}

// BindExecutableDependencies lists on the monolithic executable every module
// it references that is unbound, bound to it, or bound to a static library.
func (a *Assigner) BindExecutableDependencies() error {
	if !a.layout.Monolithic {
		return nil
	}
	exe := a.Executable()
	deps, err := a.graph.AllDependencies(exe.Modules, true, true)
	if err != nil {
		return err
	}
	for _, m := range deps {
		b, _ := m.Binary().(*Binary)
		if b == nil || b == exe || b.Type == rules.BinaryStaticLibrary {
			exe.AddModule(m)
		}
	}
	return nil
}

// Validate checks that every listed C++ module points back at a binary that
// lists it. Linked binaries may also list modules of static libraries.
func Validate(bs []*Binary) error {
	listed := map[*modulegraph.Module][]*Binary{}
	for _, b := range bs {
		for _, m := range b.Modules {
			listed[m] = append(listed[m], b)
		}
	}
	for _, b := range bs {
		for _, m := range b.Modules {
			if m.IsExternal() {
				continue
			}
			owner, _ := m.Binary().(*Binary)
			switch {
			case owner == nil:
				return errors.InternalError("module " + m.Name + " is listed on " + b.PrimaryOutput() + " but has no binary").
					ForModule(m.Name).Build()
			case owner == b:
			case b.Type != rules.BinaryStaticLibrary && owner.Type == rules.BinaryStaticLibrary:
			default:
				return errors.InternalError("module " + m.Name + " is listed on " + b.PrimaryOutput() +
					" but bound to " + owner.PrimaryOutput()).
					ForModule(m.Name).Build()
			}
		}
	}
	return nil
}
