package rules

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/normalization"
)

// Platform is a target platform.
type Platform string

const (
	PlatformWin64      Platform = "Win64"
	PlatformLinux      Platform = "Linux"
	PlatformLinuxArm64 Platform = "LinuxArm64"
	PlatformMac        Platform = "Mac"
)

// PlatformInfo describes how a platform names and lays out its binaries.
type PlatformInfo struct {
	Name Platform
	// Groups are folder names shared by several platforms (e.g. Unix).
	Groups []string
	// Windows platforms create import libraries and leave .lib/.exp siblings next to binaries.
	Windows bool
	// LibPrefix prepends "lib" to dynamic and static library names.
	LibPrefix bool
	// ArchSuffix appends the architecture to binary names.
	ArchSuffix  bool
	DefaultArch string
	Extensions  map[BinaryType]string
	// MonolithicOnly platforms reject modular builds.
	MonolithicOnly bool
}

var platforms = map[Platform]PlatformInfo{
	PlatformWin64: {
		Name:    PlatformWin64,
		Groups:  []string{"Windows", "Microsoft"},
		Windows: true,
		Extensions: map[BinaryType]string{
			BinaryExecutable:     ".exe",
			BinaryDynamicLibrary: ".dll",
			BinaryStaticLibrary:  ".lib",
		},
	},
	PlatformLinux: {
		Name:        PlatformLinux,
		Groups:      []string{"Unix", "Linux"},
		LibPrefix:   true,
		DefaultArch: "x86_64-unknown-linux-gnu",
		Extensions: map[BinaryType]string{
			BinaryExecutable:     "",
			BinaryDynamicLibrary: ".so",
			BinaryStaticLibrary:  ".a",
		},
	},
	PlatformLinuxArm64: {
		Name:        PlatformLinuxArm64,
		Groups:      []string{"Unix", "Linux"},
		LibPrefix:   true,
		ArchSuffix:  true,
		DefaultArch: "-aarch64",
		Extensions: map[BinaryType]string{
			BinaryExecutable:     "",
			BinaryDynamicLibrary: ".so",
			BinaryStaticLibrary:  ".a",
		},
		MonolithicOnly: true,
	},
	PlatformMac: {
		Name:   PlatformMac,
		Groups: []string{"Apple", "Unix"},
		Extensions: map[BinaryType]string{
			BinaryExecutable:     "",
			BinaryDynamicLibrary: ".dylib",
			BinaryStaticLibrary:  ".a",
		},
	},
}

var platformNormalizer = normalization.NewNormalizer(map[string]Platform{
	"win64":      PlatformWin64,
	"windows":    PlatformWin64,
	"linux":      PlatformLinux,
	"linuxarm64": PlatformLinuxArm64,
	"mac":        PlatformMac,
}, "")

// ParsePlatform accepts any casing of a platform name.
func ParsePlatform(raw string) (Platform, error) {
	p, err := platformNormalizer.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("platform: %w", err)
	}
	return p, nil
}

// AllPlatforms returns every known platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{PlatformWin64, PlatformLinux, PlatformLinuxArm64, PlatformMac}
}

// Info returns the layout description of p.
func (p Platform) Info() PlatformInfo {
	if info, ok := platforms[p]; ok {
		return info
	}
	return PlatformInfo{Name: p, Extensions: map[BinaryType]string{}}
}

// IsWindows reports whether p is a Windows platform.
func (p Platform) IsWindows() bool { return p.Info().Windows }

// Extension returns the file extension used for a binary type.
func (p Platform) Extension(t BinaryType) string { return p.Info().Extensions[t] }

// ExcludedFolderNames returns the folder names that hold code for other
// platforms: every other platform name and every group p is not part of.
func (p Platform) ExcludedFolderNames() []string {
	own := p.Info().Groups
	var out []string
	seen := map[string]bool{}
	for _, other := range AllPlatforms() {
		if other == p {
			continue
		}
		if !seen[string(other)] && !slices.Contains(own, string(other)) {
			seen[string(other)] = true
			out = append(out, string(other))
		}
		for _, g := range other.Info().Groups {
			if slices.Contains(own, g) || seen[g] {
				continue
			}
			seen[g] = true
			out = append(out, g)
		}
	}
	return out
}
