package rules

import (
	"path/filepath"
	"slices"
	"strings"
)

// ModuleRules is the declaration of one module, read from <Name>.build.yaml.
type ModuleRules struct {
	Name string     `yaml:"name"`
	Kind ModuleKind `yaml:"kind,omitempty"`
	// File is the declaration file the rules were read from.
	File string `yaml:"-"`

	PublicDependencies   []string `yaml:"public_dependencies,omitempty"`
	PrivateDependencies  []string `yaml:"private_dependencies,omitempty"`
	DynamicallyLoaded    []string `yaml:"dynamically_loaded,omitempty"`
	CircularDependencies []string `yaml:"circular_dependencies,omitempty"`

	PublicIncludePaths  []string `yaml:"public_include_paths,omitempty"`
	PrivateIncludePaths []string `yaml:"private_include_paths,omitempty"`

	RuntimeDependencies  []RuntimeDependency `yaml:"runtime_dependencies,omitempty"`
	ReceiptProperties    []ReceiptProperty   `yaml:"receipt_properties,omitempty"`
	ExternalDependencies []string            `yaml:"external_dependencies,omitempty"`

	// SharedPCHHeader marks the module as a shared precompiled header anchor.
	SharedPCHHeader string `yaml:"shared_pch_header,omitempty"`
	// Redistributable overrides the location-based redistribution rule when set.
	Redistributable   *bool  `yaml:"redistributable,omitempty"`
	BinariesSubFolder string `yaml:"binaries_sub_folder,omitempty"`
	// PrecompileForTargets decides whether a precompiling engine build includes the module.
	PrecompileForTargets PrecompileTargets `yaml:"precompile_for_targets,omitempty"`
}

// RuntimeDependency is a file that must be staged alongside the built binaries.
type RuntimeDependency struct {
	Path string `yaml:"path"`
	Type string `yaml:"type,omitempty"`
}

// ReceiptProperty is a free-form name/value pair copied into the receipt.
type ReceiptProperty struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Directory returns the module's root directory.
func (m *ModuleRules) Directory() string {
	return filepath.Dir(m.File)
}

// ApplyDefaults fills in the module kind.
func (m *ModuleRules) ApplyDefaults() {
	if m.Kind == "" {
		m.Kind = ModuleCPP
	}
	if m.PrecompileForTargets == "" {
		m.PrecompileForTargets = PrecompileDefault
	}
}

var sourceExtensions = []string{".cpp", ".c", ".cc", ".mm", ".m", ".rc", ".manifest"}

// IsSourceFile reports whether path has a compilable source extension.
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(sourceExtensions, ext)
}
