package rules

// TargetRules holds the pre-resolved policy flags of a target, read from
// <Name>.target.yaml.
type TargetRules struct {
	Name string     `yaml:"name"`
	File string     `yaml:"-"`
	Type TargetType `yaml:"type"`

	LinkType                  LinkType `yaml:"link_type,omitempty"`
	UseSharedBuildEnvironment bool     `yaml:"shared_build_environment,omitempty"`
	LaunchModule              string   `yaml:"launch_module"`
	ExtraModuleNames          []string `yaml:"extra_modules,omitempty"`
	AdditionalPlugins         []string `yaml:"additional_plugins,omitempty"`
	CompileAsDLL              bool     `yaml:"compile_as_dll,omitempty"`

	BuildDeveloperTools bool `yaml:"build_developer_tools,omitempty"`
	BuildAllPlugins     bool `yaml:"build_all_plugins,omitempty"`

	CheckLicenseViolations       *bool `yaml:"check_license_violations,omitempty"`
	BreakBuildOnLicenseViolation *bool `yaml:"break_build_on_license_violation,omitempty"`
	OutputPubliclyDistributable  bool  `yaml:"output_publicly_distributable,omitempty"`

	UseSharedPCHs  bool `yaml:"use_shared_pchs,omitempty"`
	Precompile     bool `yaml:"precompile,omitempty"`
	UsePrecompiled bool `yaml:"use_precompiled,omitempty"`
	DisableLinking bool `yaml:"disable_linking,omitempty"`
	UsesSlate      *bool `yaml:"uses_slate,omitempty"`

	UndecoratedConfiguration        Configuration `yaml:"undecorated_configuration,omitempty"`
	ExeBinariesSubFolder            string        `yaml:"exe_binaries_sub_folder,omitempty"`
	OverrideExecutableFileExtension string        `yaml:"override_executable_extension,omitempty"`
	GlobalDefinitions               []string      `yaml:"global_definitions,omitempty"`

	// RedistributableOverride decides redistribution for a module by name.
	// The second result reports whether the override applies.
	RedistributableOverride func(module string) (redistributable bool, ok bool) `yaml:"-"`
}

// ApplyDefaults resolves the link type and undecorated configuration.
func (t *TargetRules) ApplyDefaults() {
	if t.LinkType == LinkDefault {
		if t.Type == TargetEditor {
			t.LinkType = LinkModular
		} else {
			t.LinkType = LinkMonolithic
		}
	}
	if t.UndecoratedConfiguration == "" {
		t.UndecoratedConfiguration = ConfigDevelopment
	}
}

// Monolithic reports whether all modules link into the executable.
func (t *TargetRules) Monolithic() bool { return t.LinkType == LinkMonolithic }

// BuildEditor reports whether editor-only modules are compiled.
func (t *TargetRules) BuildEditor() bool { return t.Type == TargetEditor }

// LicenseChecks reports whether the EULA check runs. Defaults to true.
func (t *TargetRules) LicenseChecks() bool { return boolOr(t.CheckLicenseViolations, true) }

// BreakOnLicenseViolation reports whether a violation fails the build. Defaults to true.
func (t *TargetRules) BreakOnLicenseViolation() bool {
	return boolOr(t.BreakBuildOnLicenseViolation, true)
}

// Slate reports whether the target stages Slate content. Defaults to true.
func (t *TargetRules) Slate() bool { return boolOr(t.UsesSlate, true) }

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
