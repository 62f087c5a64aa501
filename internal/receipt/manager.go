package receipt

import (
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/retry"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/sets"
)

// ProductLister reports the files a binary produces. The toolchain
// implements it.
type ProductLister interface {
	BuildProducts(b *binaries.Binary) map[string]rules.BuildProductType
}

// PrepareInput carries everything PrepareReceipt reads.
type PrepareInput struct {
	Binaries       []*binaries.Binary
	Products       ProductLister
	Version        BuildVersion
	EnabledPlugins []*plugins.Info

	OnlyModules    bool
	HotReload      bool
	DisableLinking bool
	Precompile     bool
	UsesSlate      bool
	// ExternalFiles are the files needed to consume precompiled modules.
	ExternalFiles []string
}

// CleanScope limits which files cleanup may delete.
type CleanScope struct {
	UsePrecompiled   bool
	ProjectInstalled bool
	ModDirs          []string
}

// Manager prepares, recycles, writes and cleans receipts for one target.
type Manager struct {
	fs     billy.Filesystem
	layout *rules.Layout
	logger *slog.Logger

	forceReceiptFile string
	policy           retry.Policy
	sleep            retry.Sleeper
	scope            CleanScope
	newID            func() string

	receipt       *Receipt
	manifests     map[string]*VersionManifest
	manifestOrder []string
	onlyModules   bool
}

// NewManager returns a Manager writing through fs.
func NewManager(fs billy.Filesystem, l *rules.Layout) *Manager {
	return &Manager{
		fs:     fs,
		layout: l,
		logger: slog.Default(),
		policy: retry.CleanupPolicy(),
		newID:  uuid.NewString,
	}
}

// WithLogger replaces the manager's logger.
func (m *Manager) WithLogger(l *slog.Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithForceReceiptFile writes an extra copy of the receipt to path.
func (m *Manager) WithForceReceiptFile(path string) *Manager {
	m.forceReceiptFile = path
	return m
}

// WithCleanupPolicy sets the delete retry schedule. A nil sleeper uses time.Sleep.
func (m *Manager) WithCleanupPolicy(p retry.Policy, sleep retry.Sleeper) *Manager {
	m.policy = p
	m.sleep = sleep
	return m
}

// WithCleanScope restricts cleanup.
func (m *Manager) WithCleanScope(s CleanScope) *Manager {
	m.scope = s
	return m
}

// WithIDGenerator replaces the build id source.
func (m *Manager) WithIDGenerator(fn func() string) *Manager {
	if fn != nil {
		m.newID = fn
	}
	return m
}

// Receipt returns the prepared receipt, or nil.
func (m *Manager) Receipt() *Receipt { return m.receipt }

// VersionManifests returns the prepared manifests keyed by file path.
func (m *Manager) VersionManifests() map[string]*VersionManifest { return m.manifests }

func (m *Manager) insert(path string) string {
	return InsertPathVariables(path, m.layout.EngineDir, m.layout.ProjectDir)
}

// PrepareReceipt builds the receipt and version manifests of the current
// binaries. Nothing is produced when linking is disabled.
func (m *Manager) PrepareReceipt(in PrepareInput) (*Receipt, map[string]*VersionManifest, error) {
	m.receipt, m.manifests, m.manifestOrder = nil, nil, nil
	m.onlyModules = in.OnlyModules
	if in.DisableLinking {
		return nil, nil, nil
	}
	l := m.layout

	buildID := ""
	if !in.OnlyModules && !in.HotReload {
		buildID = m.newID()
	}
	r := &Receipt{
		TargetName:    l.TargetName,
		Platform:      l.Platform,
		Configuration: l.Configuration,
		BuildID:       buildID,
		Version:       in.Version,
	}

	for _, b := range in.Binaries {
		products := in.Products.BuildProducts(b)
		paths := make([]string, 0, len(products))
		for p := range products {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			r.AddBuildProduct(m.insert(p), products[p]).IsPrecompiled = !b.AllowCompilation
		}
	}

	if l.HasProject() {
		r.AddRuntimeDependency(m.insert(l.ProjectFile), StagedUFS)
	}
	for _, p := range in.EnabledPlugins {
		r.AddRuntimeDependency(m.insert(p.File), StagedUFS)
	}
	if in.UsesSlate {
		m.addSlateDependencies(r)
	}

	linked := sets.New[string]()
	for _, b := range in.Binaries {
		if b.PrecompileOnly {
			continue
		}
		for _, mod := range b.Modules {
			if mod.Rules == nil || linked.Has(mod.Name) {
				continue
			}
			linked.Add(mod.Name)
			for _, dep := range mod.Rules.RuntimeDependencies {
				r.AddRuntimeDependency(m.insert(dep.Path), stagedType(dep.Type))
			}
			r.AdditionalProperties = append(r.AdditionalProperties, mod.Rules.ReceiptProperties...)
		}
	}

	if in.Precompile {
		m.addPrecompiledDependencies(r, in, linked)
	}

	if !l.Monolithic {
		if err := m.prepareVersionManifests(in, buildID); err != nil {
			return nil, nil, err
		}
		for _, file := range m.manifestOrder {
			r.AddBuildProduct(m.insert(file), rules.ProductRequiredResource)
		}
	}

	m.receipt = r
	m.logger.Debug("Prepared receipt",
		logfields.Target(l.TargetName),
		logfields.BuildID(buildID),
		logfields.Count(len(r.BuildProducts)))
	return r, m.manifests, nil
}

func stagedType(t string) string {
	if t == "" {
		return StagedNonUFS
	}
	return t
}

func (m *Manager) addSlateDependencies(r *Receipt) {
	shipping := m.layout.Configuration == rules.ConfigShipping
	r.AddRuntimeDependency(EngineDirVar+"/Content/Slate/...", StagedUFS)
	if !shipping {
		r.AddRuntimeDependency(EngineDirVar+"/Content/SlateDebug/...", StagedUFS)
	}
	if m.layout.HasProject() {
		r.AddRuntimeDependency(ProjectDirVar+"/Content/Slate/...", StagedUFS)
		if !shipping {
			r.AddRuntimeDependency(ProjectDirVar+"/Content/SlateDebug/...", StagedUFS)
		}
	}
}

func (m *Manager) addPrecompiledDependencies(r *Receipt, in PrepareInput, linked sets.Set[string]) {
	l := m.layout
	for _, b := range in.Binaries {
		if !b.PrecompileOnly {
			continue
		}
		for _, mod := range b.Modules {
			if mod.Rules == nil || linked.Has(mod.Name) {
				continue
			}
			linked.Add(mod.Name)
			for _, dep := range mod.Rules.RuntimeDependencies {
				if !l.HasProject() && strings.Contains(strings.ToLower(dep.Path), strings.ToLower(ProjectDirVar)) {
					continue
				}
				r.PrecompiledRuntimeDependencies = addUnique(r.PrecompiledRuntimeDependencies, m.insert(dep.Path))
			}
		}
	}

	for _, f := range in.ExternalFiles {
		if pathutil.IsUnder(f, l.EngineDir) || pathutil.IsUnder(f, l.ProjectDir) {
			r.PrecompiledBuildDependencies = addUnique(r.PrecompiledBuildDependencies, m.insert(f))
		}
	}

	if l.SharedBuildIDFile != "" {
		r.AddBuildProduct(m.insert(l.SharedBuildIDFile), rules.ProductBuildResource)
	}
}

func (m *Manager) prepareVersionManifests(in PrepareInput, buildID string) error {
	l := m.layout
	m.manifests = map[string]*VersionManifest{}
	for _, b := range in.Binaries {
		if b.Type != rules.BinaryDynamicLibrary || !b.AllowCompilation {
			continue
		}
		file := filepath.Join(b.OutputDir(), ManifestFileName(l.AppName, l.Platform, l.Configuration))
		manifest, ok := m.manifests[file]
		if !ok {
			manifest = NewVersionManifest(in.Version, buildID)
			existing, err := ReadVersionManifest(m.fs, file)
			if err != nil {
				return err
			}
			if existing != nil && existing.Changelist == in.Version.Changelist {
				switch {
				case in.OnlyModules:
					manifest = existing
				case in.Version.Changelist != 0:
					for name, f := range existing.Modules {
						manifest.Modules[name] = f
					}
				}
			}
			m.manifests[file] = manifest
			m.manifestOrder = append(m.manifestOrder, file)
		}
		name := filepath.Base(b.PrimaryOutput())
		for _, mod := range b.Modules {
			if !mod.IsExternal() {
				manifest.Modules[mod.Name] = name
			}
		}
	}
	return nil
}

// TryRecycleVersionManifests adopts the last shared build id when none of
// outputFiles overwrites a file recorded under it in an engine manifest. It
// reports whether the existing manifests stay valid. Monolithic targets have
// no manifests and never recycle; a modular target without dynamic libraries
// has an empty set and adopts the shared id.
func (m *Manager) TryRecycleVersionManifests(outputFiles sets.Set[string]) (bool, error) {
	if m.manifests == nil || m.receipt == nil {
		return false, nil
	}
	idFile := m.layout.SharedBuildIDFile
	if idFile == "" {
		return false, nil
	}
	data, err := util.ReadFile(m.fs, idFile)
	if err != nil {
		return false, nil
	}
	sharedID := strings.TrimSpace(string(data))

	existing := map[string]*VersionManifest{}
	for _, file := range m.manifestOrder {
		if !pathutil.IsUnder(file, m.layout.EngineDir) {
			continue
		}
		em, err := ReadVersionManifest(m.fs, file)
		if err != nil {
			return false, err
		}
		if em != nil {
			existing[file] = em
		}
	}

	for file, em := range existing {
		if em.BuildID != sharedID {
			continue
		}
		dir := filepath.Dir(file)
		for _, name := range em.Modules {
			if outputFiles.Has(filepath.Join(dir, name)) {
				m.logger.Debug("Build modifies files of the shared build",
					logfields.Path(filepath.Join(dir, name)))
				return false, nil
			}
		}
	}

	m.receipt.BuildID = sharedID
	for _, file := range m.manifestOrder {
		nm := m.manifests[file]
		nm.BuildID = sharedID
		em, ok := existing[file]
		if !ok || em.BuildID != sharedID {
			continue
		}
		for name, f := range em.Modules {
			if _, present := nm.Modules[name]; !present {
				nm.Modules[name] = f
			}
		}
	}
	m.logger.Info("Recycled shared build id", logfields.BuildID(sharedID))
	return true, nil
}

// InvalidateVersionManifests deletes the existing files of every prepared
// manifest so a failed build cannot be mistaken for the old one.
func (m *Manager) InvalidateVersionManifests() error {
	for _, file := range m.manifestOrder {
		if err := m.fs.Remove(file); err != nil && !isMissing(m.fs, file) {
			return errors.WrapError(err, errors.CategoryFileSystem, "delete version manifest").
				AtPath(file).Build()
		}
	}
	return nil
}

// WriteReceipts writes the receipt, its forced copy, the shared build id and
// the version manifests. Files whose content is unchanged are not touched.
func (m *Manager) WriteReceipts() error {
	if r := m.receipt; r != nil {
		data, err := r.ToJSON()
		if err != nil {
			return err
		}
		targets := []string{}
		if !m.onlyModules {
			targets = append(targets, m.layout.ReceiptFile)
		}
		if m.forceReceiptFile != "" {
			targets = append(targets, m.forceReceiptFile)
		}
		for _, path := range targets {
			if err := m.write(path, data); err != nil {
				return err
			}
		}
		if idFile := m.layout.SharedBuildIDFile; idFile != "" {
			if err := m.write(idFile, []byte(r.BuildID)); err != nil {
				return err
			}
		}
	}
	for _, file := range m.manifestOrder {
		data, err := m.manifests[file].ToJSON()
		if err != nil {
			return err
		}
		if err := m.write(file, data); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) write(path string, data []byte) error {
	changed, err := fsutil.WriteIfChanged(m.fs, path, data)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write receipt file").
			AtPath(path).Build()
	}
	if changed {
		m.logger.Debug("Wrote file", logfields.Path(path))
	}
	return nil
}

func isMissing(fs billy.Filesystem, path string) bool {
	ok, err := fsutil.Exists(fs, path)
	return err == nil && !ok
}
