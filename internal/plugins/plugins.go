package plugins

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// Info is a discovered plugin.
type Info struct {
	Name       string
	File       string
	Directory  string
	LoadedFrom rules.LoadedFrom
	Descriptor *rules.PluginDescriptor
}

// Enumerator lists every plugin visible to a target.
type Enumerator interface {
	EnumeratePlugins() ([]*Info, error)
}

// Request carries the target inputs that decide plugin enablement.
type Request struct {
	TargetName string
	Platform   rules.Platform
	TargetType rules.TargetType
	Project    *rules.ProjectDescriptor

	EngineDir  string
	ProjectDir string

	AdditionalPlugins []string
	BuildAllPlugins   bool
	// ForeignPlugins are descriptor files to build regardless of enablement.
	ForeignPlugins []string
	// AvailablePlatforms are the platforms with build support installed.
	// Empty means every platform.
	AvailablePlatforms []rules.Platform
}

// Set holds the three overlapping plugin lists.
type Set struct {
	Valid   []*Info
	Enabled []*Info
	Build   []*Info
}

// IsEnabled reports whether p is in the enabled set.
func (s *Set) IsEnabled(p *Info) bool {
	return s != nil && slices.Contains(s.Enabled, p)
}

// ByName returns the valid plugin named name, or nil.
func (s *Set) ByName(name string) *Info {
	if s == nil {
		return nil
	}
	for _, p := range s.Valid {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Resolve computes the plugin sets for req.
func Resolve(e Enumerator, req Request) (*Set, error) {
	all, err := e.EnumeratePlugins()
	if err != nil {
		return nil, err
	}

	excluded := unavailableFragments(req.AvailablePlatforms)
	set := &Set{}
	for _, p := range all {
		if p.Descriptor.RequiresBuildPlatform && inExcludedFolder(p, excluded, req) {
			continue
		}
		set.Valid = append(set.Valid, p)
	}

	for _, p := range set.Valid {
		if isEnabledForProject(p, req) {
			set.Enabled = append(set.Enabled, p)
		}
	}

	for _, name := range req.AdditionalPlugins {
		p := set.ByName(name)
		if p == nil {
			return nil, errors.ConfigError(fmt.Sprintf(
				"Plugin '%s' is in the list of additional plugins for %s, but was not found.", name, req.TargetName)).
				Build()
		}
		if !slices.Contains(set.Enabled, p) {
			set.Enabled = append(set.Enabled, p)
		}
	}

	set.Enabled = slices.DeleteFunc(set.Enabled, func(p *Info) bool {
		return !isDescriptorRequired(p, req)
	})

	if req.BuildAllPlugins {
		set.Build = slices.Clone(set.Valid)
	} else {
		set.Build = slices.Clone(set.Enabled)
	}

	for _, file := range req.ForeignPlugins {
		idx := slices.IndexFunc(set.Valid, func(p *Info) bool { return p.File == file })
		if idx < 0 {
			continue
		}
		if p := set.Valid[idx]; !slices.Contains(set.Build, p) {
			set.Build = append(set.Build, p)
		}
	}

	return set, nil
}

func unavailableFragments(available []rules.Platform) []string {
	if len(available) == 0 {
		return nil
	}
	var out []string
	for _, p := range rules.AllPlatforms() {
		if !slices.Contains(available, p) {
			out = append(out, string(filepath.Separator)+string(p)+string(filepath.Separator))
		}
	}
	return out
}

func inExcludedFolder(p *Info, fragments []string, req Request) bool {
	root := req.EngineDir
	if p.LoadedFrom == rules.LoadedFromProject {
		if req.ProjectDir == "" {
			return false
		}
		root = req.ProjectDir
	}
	rel, err := filepath.Rel(root, p.File)
	if err != nil {
		return false
	}
	rel = string(filepath.Separator) + rel
	for _, f := range fragments {
		if strings.Contains(rel, f) {
			return true
		}
	}
	return false
}

// isEnabledForProject starts from the descriptor default and lets a matching
// project reference override it.
func isEnabledForProject(p *Info, req Request) bool {
	enabled := p.Descriptor.EnabledByDefault
	if req.Project != nil {
		for _, ref := range req.Project.Plugins {
			if strings.EqualFold(ref.Name, p.Name) {
				enabled = ref.IsEnabledFor(req.Platform, req.TargetType)
			}
		}
	}
	return enabled
}

// isDescriptorRequired drops enabled plugins that are unused on the current
// platform, unless the project references them without a platform restriction.
func isDescriptorRequired(p *Info, req Request) bool {
	if req.Project != nil {
		for _, ref := range req.Project.Plugins {
			if strings.EqualFold(ref.Name, p.Name) && ref.Enabled && !ref.HasPlatformRestriction() {
				return true
			}
		}
	}
	return p.Descriptor.SupportsPlatform(req.Platform)
}
