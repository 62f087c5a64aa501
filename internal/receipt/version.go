package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// BuildVersion is the engine version marker, read from Build/Build.version.
type BuildVersion struct {
	MajorVersion         int    `json:"MajorVersion"`
	MinorVersion         int    `json:"MinorVersion"`
	PatchVersion         int    `json:"PatchVersion"`
	Changelist           int    `json:"Changelist"`
	CompatibleChangelist int    `json:"CompatibleChangelist"`
	IsLicenseeVersion    bool   `json:"IsLicenseeVersion"`
	IsPromotedBuild      bool   `json:"IsPromotedBuild"`
	BranchName           string `json:"BranchName"`
}

// EffectiveCompatibleChangelist is the compatible changelist, or the
// changelist when none is set.
func (v BuildVersion) EffectiveCompatibleChangelist() int {
	if v.CompatibleChangelist != 0 {
		return v.CompatibleChangelist
	}
	return v.Changelist
}

// BuildVersionFile returns the location of the version marker.
func BuildVersionFile(engineDir string) string {
	return filepath.Join(engineDir, "Build", "Build.version")
}

// ReadBuildVersion reads the engine version marker. ok is false when the
// file does not exist.
func ReadBuildVersion(fs billy.Filesystem, engineDir string) (v BuildVersion, ok bool, err error) {
	return ReadBuildVersionFile(fs, BuildVersionFile(engineDir))
}

// ReadBuildVersionFile reads a version marker from path.
func ReadBuildVersionFile(fs billy.Filesystem, path string) (v BuildVersion, ok bool, err error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return BuildVersion{}, false, nil
		}
		return BuildVersion{}, false, errors.WrapError(err, errors.CategoryFileSystem, "read build version").
			AtPath(path).Build()
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return BuildVersion{}, false, errors.WrapError(err, errors.CategoryConfig, "parse build version").
			AtPath(path).Build()
	}
	return v, true, nil
}

// VersionManifest records which file holds each module in one output
// directory, tagged with the build id those files were built under.
type VersionManifest struct {
	Changelist           int               `json:"Changelist"`
	CompatibleChangelist int               `json:"CompatibleChangelist"`
	BuildID              string            `json:"BuildId"`
	Modules              map[string]string `json:"Modules"`
}

// NewVersionManifest returns an empty manifest for the given version.
func NewVersionManifest(v BuildVersion, buildID string) *VersionManifest {
	return &VersionManifest{
		Changelist:           v.Changelist,
		CompatibleChangelist: v.EffectiveCompatibleChangelist(),
		BuildID:              buildID,
		Modules:              map[string]string{},
	}
}

// ManifestFileName returns <AppName>.modules, decorated with platform and
// configuration outside Development.
func ManifestFileName(appName string, p rules.Platform, c rules.Configuration) string {
	return rules.DecoratedName(appName, p, c, rules.ConfigDevelopment) + ".modules"
}

// ToJSON serializes the manifest with sorted module keys.
func (m *VersionManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("marshal version manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// ReadVersionManifest loads a manifest. A missing file yields (nil, nil).
func ReadVersionManifest(fs billy.Filesystem, path string) (*VersionManifest, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read version manifest").
			AtPath(path).Build()
	}
	var m VersionManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse version manifest").
			AtPath(path).Build()
	}
	if m.Modules == nil {
		m.Modules = map[string]string{}
	}
	return &m, nil
}
