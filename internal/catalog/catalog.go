// Package catalog discovers target, module, plugin and project declarations.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Declaration file suffixes.
const (
	ModuleSuffix = ".build.yaml"
	PluginSuffix = ".plugin.yaml"
	TargetSuffix = ".target.yaml"
)

// Catalog is the source of declarations for one engine/project pair.
type Catalog interface {
	LoadTarget(name string) (*rules.TargetRules, error)
	LoadProject() (*rules.ProjectDescriptor, error)
	CreateModuleRules(name string) (*rules.ModuleRules, error)
	EnumeratePlugins() ([]*plugins.Info, error)
	PluginForModule(rulesFile string) (*plugins.Info, error)
	HasSource(name string) (bool, error)
	ModuleNames() ([]string, error)
}

// FS is a Catalog backed by a go-billy filesystem.
type FS struct {
	fs          billy.Filesystem
	engineDir   string
	projectFile string
	projectDir  string

	once    sync.Once
	scanErr error
	modules map[string]string
	targets map[string]string
	plugins []*plugins.Info
}

var _ Catalog = (*FS)(nil)

// New returns a catalog over the engine tree and, when projectFile is set,
// the project tree.
func New(fs billy.Filesystem, engineDir, projectFile string) *FS {
	c := &FS{
		fs:          fs,
		engineDir:   filepath.Clean(engineDir),
		projectFile: projectFile,
	}
	if projectFile != "" {
		c.projectDir = filepath.Dir(projectFile)
	}
	return c
}

// Filesystem returns the underlying filesystem.
func (c *FS) Filesystem() billy.Filesystem { return c.fs }

// Roots returns the directories scanned for declarations.
func (c *FS) Roots() []string {
	roots := []string{
		filepath.Join(c.engineDir, "Source"),
		filepath.Join(c.engineDir, "Plugins"),
	}
	if c.projectDir != "" {
		roots = append(roots,
			filepath.Join(c.projectDir, "Source"),
			filepath.Join(c.projectDir, "Plugins"))
	}
	return roots
}

func (c *FS) scan() error {
	c.once.Do(func() {
		c.modules = map[string]string{}
		c.targets = map[string]string{}
		for _, root := range c.Roots() {
			files, err := fsutil.ListFiles(c.fs, root, IsDeclaration)
			if err != nil {
				c.scanErr = errors.WrapError(err, errors.CategoryFileSystem, "scan declarations").
					AtPath(root).Build()
				return
			}
			for _, f := range files {
				if err := c.register(f); err != nil {
					c.scanErr = err
					return
				}
			}
		}
	})
	return c.scanErr
}

// IsDeclaration reports whether path names a module, plugin or target declaration.
func IsDeclaration(path string) bool {
	return strings.HasSuffix(path, ModuleSuffix) ||
		strings.HasSuffix(path, PluginSuffix) ||
		strings.HasSuffix(path, TargetSuffix)
}

func (c *FS) register(file string) error {
	base := filepath.Base(file)
	switch {
	case strings.HasSuffix(base, ModuleSuffix):
		name := strings.TrimSuffix(base, ModuleSuffix)
		if prev, ok := c.modules[name]; ok {
			return errors.ConfigError(fmt.Sprintf("module '%s' is declared in both %s and %s", name, prev, file)).
				ForModule(name).Build()
		}
		c.modules[name] = file
	case strings.HasSuffix(base, TargetSuffix):
		name := strings.TrimSuffix(base, TargetSuffix)
		if _, ok := c.targets[name]; !ok {
			c.targets[name] = file
		}
	case strings.HasSuffix(base, PluginSuffix):
		info, err := c.readPlugin(file)
		if err != nil {
			return err
		}
		c.plugins = append(c.plugins, info)
	}
	return nil
}

func (c *FS) readPlugin(file string) (*plugins.Info, error) {
	var desc rules.PluginDescriptor
	if err := c.decode(file, &desc); err != nil {
		return nil, err
	}
	if desc.Name == "" {
		desc.Name = strings.TrimSuffix(filepath.Base(file), PluginSuffix)
	}
	from := rules.LoadedFromEngine
	if c.projectDir != "" && pathutil.IsUnder(file, c.projectDir) {
		from = rules.LoadedFromProject
	}
	return &plugins.Info{
		Name:       desc.Name,
		File:       file,
		Directory:  filepath.Dir(file),
		LoadedFrom: from,
		Descriptor: &desc,
	}, nil
}

func (c *FS) decode(file string, out any) error {
	data, err := util.ReadFile(c.fs, file)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "read declaration").
			AtPath(file).Build()
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, fmt.Sprintf("parse %s", file)).
			AtPath(file).Build()
	}
	return nil
}

// LoadTarget reads <name>.target.yaml.
func (c *FS) LoadTarget(name string) (*rules.TargetRules, error) {
	if err := c.scan(); err != nil {
		return nil, err
	}
	file, ok := c.targets[name]
	if !ok {
		return nil, errors.NewError(errors.CategoryNotFound, fmt.Sprintf("couldn't find target rules for '%s'", name)).
			Fatal().Build()
	}
	var tr rules.TargetRules
	if err := c.decode(file, &tr); err != nil {
		return nil, err
	}
	if tr.Name == "" {
		tr.Name = name
	}
	tr.File = file
	tr.ApplyDefaults()
	return &tr, nil
}

// LoadProject reads the project descriptor. It returns nil without a project.
func (c *FS) LoadProject() (*rules.ProjectDescriptor, error) {
	if c.projectFile == "" {
		return nil, nil
	}
	var p rules.ProjectDescriptor
	if err := c.decode(c.projectFile, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateModuleRules reads the declaration of the named module.
func (c *FS) CreateModuleRules(name string) (*rules.ModuleRules, error) {
	if err := c.scan(); err != nil {
		return nil, err
	}
	file, ok := c.modules[name]
	if !ok {
		return nil, errors.ModuleNotFoundError(name).Build()
	}
	var m rules.ModuleRules
	if err := c.decode(file, &m); err != nil {
		return nil, err
	}
	m.Name = name
	m.File = file
	m.ApplyDefaults()
	return &m, nil
}

// EnumeratePlugins returns every discovered plugin in scan order.
func (c *FS) EnumeratePlugins() ([]*plugins.Info, error) {
	if err := c.scan(); err != nil {
		return nil, err
	}
	return c.plugins, nil
}

// PluginForModule returns the plugin whose directory holds rulesFile, or nil.
func (c *FS) PluginForModule(rulesFile string) (*plugins.Info, error) {
	if err := c.scan(); err != nil {
		return nil, err
	}
	var best *plugins.Info
	for _, p := range c.plugins {
		if pathutil.IsUnder(rulesFile, p.Directory) && (best == nil || len(p.Directory) > len(best.Directory)) {
			best = p
		}
	}
	return best, nil
}

// HasSource reports whether the named module's directory holds compilable files.
func (c *FS) HasSource(name string) (bool, error) {
	if err := c.scan(); err != nil {
		return false, err
	}
	file, ok := c.modules[name]
	if !ok {
		return false, errors.ModuleNotFoundError(name).Build()
	}
	files, err := c.ListFiles(filepath.Dir(file), rules.IsSourceFile)
	if err != nil {
		return false, err
	}
	return len(files) > 0, nil
}

// ModuleNames returns every declared module name, sorted.
func (c *FS) ModuleNames() ([]string, error) {
	if err := c.scan(); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.modules))
	for n := range c.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// ListFiles returns the files under dir accepted by keep.
func (c *FS) ListFiles(dir string, keep func(string) bool) ([]string, error) {
	files, err := fsutil.ListFiles(c.fs, dir, keep)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "list files").
			AtPath(dir).Build()
	}
	return files, nil
}

// ListDirs returns dir and its subdirectories.
func (c *FS) ListDirs(dir string) ([]string, error) {
	dirs, err := fsutil.ListDirs(c.fs, dir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "list directories").
			AtPath(dir).Build()
	}
	return dirs, nil
}

// DirExists reports whether dir is an existing directory.
func (c *FS) DirExists(dir string) bool { return fsutil.IsDir(c.fs, dir) }
