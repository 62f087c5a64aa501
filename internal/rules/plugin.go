package rules

import "slices"

// PluginDescriptor is read from <Name>.plugin.yaml.
type PluginDescriptor struct {
	Name                  string             `yaml:"name,omitempty"`
	Modules               []ModuleDescriptor `yaml:"modules,omitempty"`
	SupportedPlatforms    []Platform         `yaml:"supported_platforms,omitempty"`
	RequiresBuildPlatform bool               `yaml:"requires_build_platform,omitempty"`
	IsMod                 bool               `yaml:"mod,omitempty"`
	EnabledByDefault      bool               `yaml:"enabled_by_default,omitempty"`
	PreBuildSteps         CustomBuildSteps   `yaml:"pre_build_steps,omitempty"`
	PostBuildSteps        CustomBuildSteps   `yaml:"post_build_steps,omitempty"`
}

// SupportsPlatform reports whether the plugin declares support for p.
// An empty list supports every platform.
func (d *PluginDescriptor) SupportsPlatform(p Platform) bool {
	return len(d.SupportedPlatforms) == 0 || slices.Contains(d.SupportedPlatforms, p)
}

// Module returns the descriptor entry for name, or nil.
func (d *PluginDescriptor) Module(name string) *ModuleDescriptor {
	for i := range d.Modules {
		if d.Modules[i].Name == name {
			return &d.Modules[i]
		}
	}
	return nil
}

// ModuleDescriptor lists a module inside a plugin or project descriptor.
type ModuleDescriptor struct {
	Name                   string       `yaml:"name"`
	Type                   HostType     `yaml:"type,omitempty"`
	WhitelistPlatforms     []Platform   `yaml:"whitelist_platforms,omitempty"`
	BlacklistPlatforms     []Platform   `yaml:"blacklist_platforms,omitempty"`
	WhitelistTargets       []TargetType `yaml:"whitelist_targets,omitempty"`
	BlacklistTargets       []TargetType `yaml:"blacklist_targets,omitempty"`
	AdditionalDependencies []string     `yaml:"additional_dependencies,omitempty"`
}

// IsCompiledInConfiguration reports whether the module belongs in a build for
// the given platform and target type.
func (m *ModuleDescriptor) IsCompiledInConfiguration(p Platform, t TargetType, developerTools, editor bool) bool {
	if len(m.WhitelistPlatforms) > 0 && !slices.Contains(m.WhitelistPlatforms, p) {
		return false
	}
	if slices.Contains(m.BlacklistPlatforms, p) {
		return false
	}
	if len(m.WhitelistTargets) > 0 && !slices.Contains(m.WhitelistTargets, t) {
		return false
	}
	if slices.Contains(m.BlacklistTargets, t) {
		return false
	}

	switch m.Type {
	case HostDeveloper:
		return developerTools
	case HostEditor:
		return editor
	case HostProgram:
		return t == TargetProgram
	default:
		return true
	}
}
