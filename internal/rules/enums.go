package rules

import (
	"fmt"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/normalization"
)

// Configuration is a build configuration.
type Configuration string

const (
	ConfigDebug       Configuration = "Debug"
	ConfigDebugGame   Configuration = "DebugGame"
	ConfigDevelopment Configuration = "Development"
	ConfigTest        Configuration = "Test"
	ConfigShipping    Configuration = "Shipping"
)

var configurationNormalizer = normalization.NewNormalizer(map[string]Configuration{
	"debug":       ConfigDebug,
	"debuggame":   ConfigDebugGame,
	"development": ConfigDevelopment,
	"dev":         ConfigDevelopment,
	"test":        ConfigTest,
	"shipping":    ConfigShipping,
}, "")

// ParseConfiguration accepts any casing of a configuration name.
func ParseConfiguration(raw string) (Configuration, error) {
	c, err := configurationNormalizer.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("configuration: %w", err)
	}
	return c, nil
}

// TargetType is the kind of target being built.
type TargetType string

const (
	TargetGame    TargetType = "Game"
	TargetEditor  TargetType = "Editor"
	TargetClient  TargetType = "Client"
	TargetServer  TargetType = "Server"
	TargetProgram TargetType = "Program"
)

var targetTypeNormalizer = normalization.NewNormalizer(map[string]TargetType{
	"game":    TargetGame,
	"editor":  TargetEditor,
	"client":  TargetClient,
	"server":  TargetServer,
	"program": TargetProgram,
}, "")

// ParseTargetType accepts any casing of a target type.
func ParseTargetType(raw string) (TargetType, error) {
	t, err := targetTypeNormalizer.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("target type: %w", err)
	}
	return t, nil
}

// LinkType selects monolithic or modular linking.
type LinkType string

const (
	LinkDefault    LinkType = ""
	LinkMonolithic LinkType = "Monolithic"
	LinkModular    LinkType = "Modular"
)

// BinaryType is the kind of artifact a binary produces.
type BinaryType string

const (
	BinaryExecutable     BinaryType = "Executable"
	BinaryDynamicLibrary BinaryType = "DynamicLibrary"
	BinaryStaticLibrary  BinaryType = "StaticLibrary"
)

// BuildProductType tags each file recorded in a receipt.
type BuildProductType string

const (
	ProductExecutable       BuildProductType = "Executable"
	ProductDynamicLibrary   BuildProductType = "DynamicLibrary"
	ProductStaticLibrary    BuildProductType = "StaticLibrary"
	ProductImportLibrary    BuildProductType = "ImportLibrary"
	ProductSymbolFile       BuildProductType = "SymbolFile"
	ProductMapFile          BuildProductType = "MapFile"
	ProductRequiredResource BuildProductType = "RequiredResource"
	ProductBuildResource    BuildProductType = "BuildResource"
)

// ModuleKind is the discriminant of a module declaration.
type ModuleKind string

const (
	// ModuleCPP is a first-party module compiled from source.
	ModuleCPP ModuleKind = "cpp"
	// ModuleExternal is a binary-only third-party module.
	ModuleExternal ModuleKind = "external"
)

// PrecompileTargets selects the target types a module is precompiled for.
type PrecompileTargets string

const (
	PrecompileNone    PrecompileTargets = "none"
	PrecompileDefault PrecompileTargets = "default"
	PrecompileGame    PrecompileTargets = "game"
	PrecompileEditor  PrecompileTargets = "editor"
	PrecompileAny     PrecompileTargets = "any"
)

// ModuleCategory classifies a resolved module by owner and purpose.
type ModuleCategory string

const (
	CategoryEngineRuntime    ModuleCategory = "engine-runtime"
	CategoryEngineDeveloper  ModuleCategory = "engine-developer"
	CategoryEngineEditor     ModuleCategory = "engine-editor"
	CategoryEngineThirdParty ModuleCategory = "engine-thirdparty"
	CategoryGameRuntime      ModuleCategory = "game-runtime"
	CategoryGameDeveloper    ModuleCategory = "game-developer"
	CategoryGameEditor       ModuleCategory = "game-editor"
	CategoryGameThirdParty   ModuleCategory = "game-thirdparty"
	CategoryProgram          ModuleCategory = "program"
)

// IsEngine reports whether the category belongs to the engine tree.
func (c ModuleCategory) IsEngine() bool {
	switch c {
	case CategoryEngineRuntime, CategoryEngineDeveloper, CategoryEngineEditor, CategoryEngineThirdParty:
		return true
	default:
		return false
	}
}

// HostType is the declared purpose of a module inside a plugin or project descriptor.
type HostType string

const (
	HostRuntime   HostType = "Runtime"
	HostDeveloper HostType = "Developer"
	HostEditor    HostType = "Editor"
	HostProgram   HostType = "Program"
)

// EngineCategory maps a host type to the engine-side category.
func (h HostType) EngineCategory() ModuleCategory {
	switch h {
	case HostDeveloper:
		return CategoryEngineDeveloper
	case HostEditor:
		return CategoryEngineEditor
	case HostProgram:
		return CategoryProgram
	default:
		return CategoryEngineRuntime
	}
}

// GameCategory maps a host type to the game-side category.
func (h HostType) GameCategory() ModuleCategory {
	switch h {
	case HostDeveloper:
		return CategoryGameDeveloper
	case HostEditor:
		return CategoryGameEditor
	case HostProgram:
		return CategoryProgram
	default:
		return CategoryGameRuntime
	}
}

// LoadedFrom records which tree a plugin was discovered in.
type LoadedFrom string

const (
	LoadedFromEngine  LoadedFrom = "engine"
	LoadedFromProject LoadedFrom = "project"
)

// RestrictedTier is a distribution tier named by a Restricted/<Tier> folder.
// Higher values are more restricted.
type RestrictedTier int

const (
	TierPublic RestrictedTier = iota
	TierNotForLicensees
	TierNoRedist
	TierEpicInternal
)

// RestrictedFolderNames maps the folder names under Restricted/ to their tier.
var RestrictedFolderNames = map[string]RestrictedTier{
	"NotForLicensees": TierNotForLicensees,
	"NoRedist":        TierNoRedist,
	"EpicInternal":    TierEpicInternal,
}

func (t RestrictedTier) String() string {
	switch t {
	case TierNotForLicensees:
		return "NotForLicensees"
	case TierNoRedist:
		return "NoRedist"
	case TierEpicInternal:
		return "EpicInternal"
	default:
		return "Public"
	}
}
