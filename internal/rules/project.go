package rules

import "slices"

// ProjectDescriptor is the optional project file owning a target.
type ProjectDescriptor struct {
	Name           string             `yaml:"name,omitempty"`
	Modules        []ModuleDescriptor `yaml:"modules,omitempty"`
	Plugins        []PluginReference  `yaml:"plugins,omitempty"`
	PreBuildSteps  CustomBuildSteps   `yaml:"pre_build_steps,omitempty"`
	PostBuildSteps CustomBuildSteps   `yaml:"post_build_steps,omitempty"`
}

// Module returns the project's entry for a module, or nil.
func (p *ProjectDescriptor) Module(name string) *ModuleDescriptor {
	if p == nil {
		return nil
	}
	for i := range p.Modules {
		if p.Modules[i].Name == name {
			return &p.Modules[i]
		}
	}
	return nil
}

// PluginReference enables or disables a plugin for a project.
type PluginReference struct {
	Name               string       `yaml:"name"`
	Enabled            bool         `yaml:"enabled"`
	WhitelistPlatforms []Platform   `yaml:"whitelist_platforms,omitempty"`
	BlacklistPlatforms []Platform   `yaml:"blacklist_platforms,omitempty"`
	WhitelistTargets   []TargetType `yaml:"whitelist_targets,omitempty"`
	BlacklistTargets   []TargetType `yaml:"blacklist_targets,omitempty"`
}

// IsEnabledFor reports whether the reference enables its plugin for p and t.
func (r PluginReference) IsEnabledFor(p Platform, t TargetType) bool {
	if !r.Enabled {
		return false
	}
	if len(r.WhitelistPlatforms) > 0 && !slices.Contains(r.WhitelistPlatforms, p) {
		return false
	}
	if slices.Contains(r.BlacklistPlatforms, p) {
		return false
	}
	if len(r.WhitelistTargets) > 0 && !slices.Contains(r.WhitelistTargets, t) {
		return false
	}
	return !slices.Contains(r.BlacklistTargets, t)
}

// HasPlatformRestriction reports whether the reference names platforms explicitly.
func (r PluginReference) HasPlatformRestriction() bool {
	return len(r.WhitelistPlatforms) > 0 || len(r.BlacklistPlatforms) > 0
}
