package modulegraph

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// RulesSource supplies module declarations and directory listings.
type RulesSource interface {
	CreateModuleRules(name string) (*rules.ModuleRules, error)
	PluginForModule(rulesFile string) (*plugins.Info, error)
	ListFiles(dir string, keep func(string) bool) ([]string, error)
	ListDirs(dir string) ([]string, error)
	DirExists(dir string) bool
}

// Config is the target context a Builder resolves modules against.
type Config struct {
	Layout  *rules.Layout
	Project *rules.ProjectDescriptor
	// TargetDir is the directory of the target declaration. Modules under it
	// are treated as game or program modules for include path purposes.
	TargetDir       string
	EngineInstalled bool
	OnlyModules     []rules.OnlyModule
}

// Builder resolves and caches modules for one build.
type Builder struct {
	src      RulesSource
	cfg      Config
	modules  map[string]*Module
	order    []*Module
	excluded map[string]struct{}
	logger   *slog.Logger
}

// NewBuilder returns a Builder with an empty cache.
func NewBuilder(src RulesSource, cfg Config) *Builder {
	return &Builder{
		src:      src,
		cfg:      cfg,
		modules:  map[string]*Module{},
		excluded: pathutil.FoldAll(cfg.Layout.Platform.ExcludedFolderNames()...),
		logger:   slog.Default(),
	}
}

// WithLogger replaces the builder's logger.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	if l != nil {
		b.logger = l
	}
	return b
}

// Layout returns the target layout the builder was configured with.
func (b *Builder) Layout() *rules.Layout { return b.cfg.Layout }

// Lookup returns a cached module without resolving it.
func (b *Builder) Lookup(name string) (*Module, bool) {
	m, ok := b.modules[name]
	return m, ok
}

// Modules returns every resolved module in resolution order.
func (b *Builder) Modules() []*Module {
	return slices.Clone(b.order)
}

// Resolve returns the module named name, creating it and its dependencies
// on first use.
func (b *Builder) Resolve(name string) (*Module, error) {
	if m, ok := b.modules[name]; ok {
		return m, nil
	}

	mr, err := b.src.CreateModuleRules(name)
	if err != nil {
		return nil, err
	}
	if mr == nil {
		return nil, errors.ModuleNotFoundError(name).Build()
	}

	if pm := b.cfg.Project.Module(name); pm != nil {
		mr.PrivateDependencies = append(mr.PrivateDependencies, pm.AdditionalDependencies...)
	}
	if err := validateRules(mr); err != nil {
		return nil, err
	}

	plugin, err := b.src.PluginForModule(mr.File)
	if err != nil {
		return nil, err
	}

	m := &Module{
		Name:                 name,
		Kind:                 mr.Kind,
		Directory:            mr.Directory(),
		RulesFile:            mr.File,
		Rules:                mr,
		PublicDependencies:   slices.Clone(mr.PublicDependencies),
		PrivateDependencies:  slices.Clone(mr.PrivateDependencies),
		DynamicallyLoaded:    slices.Clone(mr.DynamicallyLoaded),
		CircularDependencies: slices.Clone(mr.CircularDependencies),
		PublicIncludePaths:   b.absolutePaths(mr.PublicIncludePaths, mr),
		PrivateIncludePaths:  b.absolutePaths(mr.PrivateIncludePaths, mr),
		Plugin:               plugin,
		BuildFiles:           b.buildsFiles(name),
	}
	m.Category = b.category(m)

	if !m.IsExternal() {
		m.CPP = &CPP{GeneratedCodeDir: b.generatedCodeDir(m)}
		if name != "Core" {
			if err := b.addDefaultIncludePaths(m); err != nil {
				return nil, err
			}
			m.PublicIncludePaths = append(m.PublicIncludePaths, m.CPP.GeneratedCodeDir)
		}
		if err := b.discoverSources(m); err != nil {
			return nil, err
		}
	}

	// Registered before recursing so back-references terminate.
	b.modules[name] = m
	b.order = append(b.order, m)
	b.logger.Debug("Resolved module",
		logfields.Module(name),
		slog.String("category", string(m.Category)))

	for _, dep := range slices.Concat(m.PublicDependencies, m.PrivateDependencies, m.DynamicallyLoaded) {
		if _, err := b.Resolve(dep); err != nil {
			b.evict(m)
			return nil, err
		}
	}
	return m, nil
}

// evict forgets a module whose dependencies failed to resolve, so a later
// Resolve reports the failure again instead of returning a partial module.
func (b *Builder) evict(m *Module) {
	delete(b.modules, m.Name)
	b.order = slices.DeleteFunc(b.order, func(o *Module) bool { return o == m })
}

func validateRules(mr *rules.ModuleRules) error {
	if mr.Kind != rules.ModuleCPP {
		return nil
	}
	linked := slices.Concat(mr.PublicDependencies, mr.PrivateDependencies)
	var both []string
	for _, dyn := range mr.DynamicallyLoaded {
		if slices.Contains(linked, dyn) && !slices.Contains(both, dyn) {
			both = append(both, dyn)
		}
	}
	if len(both) == 0 {
		return nil
	}
	return errors.ConfigError(fmt.Sprintf(
		"Module rules for '%s' should not be dependent on modules which are also dynamically loaded: %s",
		mr.Name, strings.Join(both, ", "))).
		ForModule(mr.Name).
		Build()
}

func (b *Builder) buildsFiles(name string) bool {
	if len(b.cfg.OnlyModules) == 0 {
		return true
	}
	return slices.ContainsFunc(b.cfg.OnlyModules, func(o rules.OnlyModule) bool {
		return pathutil.EqualFold(o.Name, name)
	})
}

// category applies the precedence: plugin Program host type, then external
// kind, then plugin host type, then location or project entry.
func (b *Builder) category(m *Module) rules.ModuleCategory {
	var desc *rules.ModuleDescriptor
	if m.Plugin != nil {
		desc = m.Plugin.Descriptor.Module(m.Name)
		if desc != nil && desc.Type == rules.HostProgram {
			return rules.CategoryProgram
		}
	}

	if m.IsEngine(b.cfg.Layout.EngineDir) {
		if m.IsExternal() {
			return rules.CategoryEngineThirdParty
		}
		if desc != nil {
			return desc.Type.EngineCategory()
		}
		return b.engineCategoryByLocation(m.RulesFile)
	}

	if m.IsExternal() {
		return rules.CategoryGameThirdParty
	}
	if desc != nil {
		return desc.Type.GameCategory()
	}
	if pm := b.cfg.Project.Module(m.Name); pm != nil {
		return pm.Type.GameCategory()
	}
	return rules.CategoryGameRuntime
}

var engineLocations = []struct {
	folder   string
	category rules.ModuleCategory
}{
	{"Runtime", rules.CategoryEngineRuntime},
	{"Developer", rules.CategoryEngineDeveloper},
	{"Editor", rules.CategoryEngineEditor},
	{"ThirdParty", rules.CategoryEngineThirdParty},
	{"Programs", rules.CategoryProgram},
}

func (b *Builder) engineCategoryByLocation(file string) rules.ModuleCategory {
	source := engineSourceDir(b.cfg.Layout.EngineDir)
	for _, loc := range engineLocations {
		if pathutil.IsUnder(file, filepath.Join(source, loc.folder)) {
			return loc.category
		}
	}
	return rules.CategoryEngineRuntime
}

// generatedCodeDir picks the plugin dir, then the engine dir for shared
// engine modules, then the project dir.
func (b *Builder) generatedCodeDir(m *Module) string {
	l := b.cfg.Layout
	base := l.ProjectDir
	switch {
	case m.Plugin != nil:
		base = m.Plugin.Directory
	case l.SharedBuildEnvironment && m.IsEngine(l.EngineDir):
		base = l.EngineDir
	}
	return filepath.Join(base, l.PlatformIntermediateFolder, l.AppName, "Inc", m.Name)
}

func (b *Builder) addDefaultIncludePaths(m *Module) error {
	l := b.cfg.Layout
	if !pathutil.IsUnder(m.RulesFile, engineSourceDir(l.EngineDir)) {
		var baseSource string
		switch {
		case m.Plugin != nil:
			baseSource = filepath.Join(m.Plugin.Directory, "Source")
		case l.HasProject():
			baseSource = filepath.Join(l.ProjectDir, "Source")
		}
		isGame := pathutil.IsUnder(m.RulesFile, b.cfg.TargetDir) ||
			(m.Plugin != nil && m.Plugin.LoadedFrom == rules.LoadedFromProject)
		if isGame && baseSource != "" {
			m.PublicIncludePaths = append(m.PublicIncludePaths, baseSource)
		}
	}

	if classes := filepath.Join(m.Directory, "Classes"); b.src.DirExists(classes) {
		m.PublicIncludePaths = append(m.PublicIncludePaths, classes)
	}

	public := filepath.Join(m.Directory, "Public")
	dirs, err := b.src.ListDirs(public)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if !pathutil.ContainsFolder(filepath.Join(d, "x"), public, b.excluded) {
			m.PublicIncludePaths = append(m.PublicIncludePaths, d)
		}
	}
	return nil
}

func (b *Builder) discoverSources(m *Module) error {
	if b.cfg.EngineInstalled && m.IsEngine(b.cfg.Layout.EngineDir) {
		return nil
	}
	files, err := b.src.ListFiles(m.Directory, func(path string) bool {
		return rules.IsSourceFile(path) && !pathutil.ContainsFolder(path, m.Directory, b.excluded)
	})
	if err != nil {
		return err
	}
	m.CPP.SourceFiles = files
	if m.BuildFiles {
		m.CPP.FilesToBuild = slices.Clone(files)
	}
	return nil
}

// absolutePaths resolves relative include paths against the module directory.
func (b *Builder) absolutePaths(paths []string, mr *rules.ModuleRules) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(mr.Directory(), p)
		}
		out = append(out, p)
	}
	return out
}

// AllDependencies returns the roots and their transitive dependencies with
// dependencies ordered before dependants. Circular edges are only followed
// when forceCircular is set.
func (b *Builder) AllDependencies(roots []*Module, includeDynamic, forceCircular bool) ([]*Module, error) {
	var out []*Module
	seen := map[*Module]bool{}
	for _, r := range roots {
		if seen[r] {
			continue
		}
		seen[r] = true
		if err := b.collect(r, includeDynamic, forceCircular, seen, &out); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// DependenciesOf returns the transitive dependencies of m, excluding m.
func (b *Builder) DependenciesOf(m *Module, includeDynamic, forceCircular bool) ([]*Module, error) {
	var out []*Module
	seen := map[*Module]bool{m: true}
	if err := b.collect(m, includeDynamic, forceCircular, seen, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Builder) collect(m *Module, includeDynamic, forceCircular bool, seen map[*Module]bool, out *[]*Module) error {
	names := m.DirectDependencies()
	if includeDynamic {
		names = append(names, m.DynamicallyLoaded...)
	}
	for _, name := range names {
		dep, err := b.Resolve(name)
		if err != nil {
			return err
		}
		if seen[dep] {
			continue
		}
		if !forceCircular && m.HasCircularDependencyOn(name) {
			continue
		}
		seen[dep] = true
		if err := b.collect(dep, includeDynamic, forceCircular, seen, out); err != nil {
			return err
		}
		*out = append(*out, dep)
	}
	return nil
}

// UnboundReferences returns the external modules m links against. External
// modules are never bound; each referencing binary lists them.
func (b *Builder) UnboundReferences(m *Module) []*Module {
	var out []*Module
	for _, name := range m.DirectDependencies() {
		if dep, ok := b.modules[name]; ok && dep.IsExternal() && dep.Binary() == nil {
			out = append(out, dep)
		}
	}
	return out
}

func engineSourceDir(engineDir string) string { return filepath.Join(engineDir, "Source") }
