package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Path variables used in receipts.
const (
	EngineDirVar  = "$(EngineDir)"
	ProjectDirVar = "$(ProjectDir)"
)

// Runtime dependency staging types.
const (
	StagedUFS    = "UFS"
	StagedNonUFS = "NonUFS"
)

// BuildProduct is one file written by the build.
type BuildProduct struct {
	Path          string                 `json:"Path"`
	Type          rules.BuildProductType `json:"Type"`
	IsPrecompiled bool                   `json:"IsPrecompiled,omitempty"`
}

// RuntimeDependency is a file or wildcard that must be staged with the target.
type RuntimeDependency struct {
	Path string `json:"Path"`
	Type string `json:"Type"`
}

// Receipt is the persisted record of one target build.
type Receipt struct {
	TargetName    string              `json:"TargetName"`
	Platform      rules.Platform      `json:"Platform"`
	Configuration rules.Configuration `json:"Configuration"`
	BuildID       string              `json:"BuildId"`
	Version       BuildVersion        `json:"Version"`

	BuildProducts                  []BuildProduct          `json:"BuildProducts"`
	RuntimeDependencies            []RuntimeDependency     `json:"RuntimeDependencies"`
	AdditionalProperties           []rules.ReceiptProperty `json:"AdditionalProperties,omitempty"`
	PrecompiledBuildDependencies   []string                `json:"PrecompiledBuildDependencies,omitempty"`
	PrecompiledRuntimeDependencies []string                `json:"PrecompiledRuntimeDependencies,omitempty"`
}

// AddBuildProduct appends a product and returns it for further edits.
func (r *Receipt) AddBuildProduct(path string, t rules.BuildProductType) *BuildProduct {
	r.BuildProducts = append(r.BuildProducts, BuildProduct{Path: path, Type: t})
	return &r.BuildProducts[len(r.BuildProducts)-1]
}

// AddRuntimeDependency appends a runtime dependency.
func (r *Receipt) AddRuntimeDependency(path, stagedType string) {
	r.RuntimeDependencies = append(r.RuntimeDependencies, RuntimeDependency{Path: path, Type: stagedType})
}

func addUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

// Clone returns a deep copy of the receipt.
func (r *Receipt) Clone() *Receipt {
	c := *r
	c.BuildProducts = slices.Clone(r.BuildProducts)
	c.RuntimeDependencies = slices.Clone(r.RuntimeDependencies)
	c.AdditionalProperties = slices.Clone(r.AdditionalProperties)
	c.PrecompiledBuildDependencies = slices.Clone(r.PrecompiledBuildDependencies)
	c.PrecompiledRuntimeDependencies = slices.Clone(r.PrecompiledRuntimeDependencies)
	return &c
}

// ExpandPathVariables replaces path variables with absolute directories in
// every path of the receipt.
func (r *Receipt) ExpandPathVariables(engineDir, projectDir string) {
	expand := func(p string) string { return ExpandPathVariables(p, engineDir, projectDir) }
	for i := range r.BuildProducts {
		r.BuildProducts[i].Path = expand(r.BuildProducts[i].Path)
	}
	for i := range r.RuntimeDependencies {
		r.RuntimeDependencies[i].Path = expand(r.RuntimeDependencies[i].Path)
	}
	for i := range r.PrecompiledBuildDependencies {
		r.PrecompiledBuildDependencies[i] = expand(r.PrecompiledBuildDependencies[i])
	}
	for i := range r.PrecompiledRuntimeDependencies {
		r.PrecompiledRuntimeDependencies[i] = expand(r.PrecompiledRuntimeDependencies[i])
	}
}

// ProductPaths returns the product paths in receipt order.
func (r *Receipt) ProductPaths() []string {
	out := make([]string, 0, len(r.BuildProducts))
	for _, p := range r.BuildProducts {
		out = append(out, p.Path)
	}
	return out
}

// InsertPathVariables rewrites an absolute path relative to the innermost of
// the project and engine directories that contains it. Paths outside both
// are returned unchanged.
func InsertPathVariables(path, engineDir, projectDir string) string {
	type root struct{ dir, variable string }
	roots := []root{{engineDir, EngineDirVar}}
	if projectDir != "" {
		roots = append(roots, root{projectDir, ProjectDirVar})
	}
	// Innermost first: a project inside the engine tree wins.
	slices.SortStableFunc(roots, func(a, b root) int { return len(b.dir) - len(a.dir) })

	for _, r := range roots {
		if !pathutil.IsUnder(path, r.dir) {
			continue
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			continue
		}
		if rel == "." {
			return r.variable
		}
		return r.variable + "/" + filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// ExpandPathVariables is the inverse of InsertPathVariables.
func ExpandPathVariables(path, engineDir, projectDir string) string {
	switch {
	case strings.HasPrefix(path, EngineDirVar):
		return filepath.Join(engineDir, filepath.FromSlash(strings.TrimPrefix(path, EngineDirVar)))
	case strings.HasPrefix(path, ProjectDirVar) && projectDir != "":
		return filepath.Join(projectDir, filepath.FromSlash(strings.TrimPrefix(path, ProjectDirVar)))
	}
	return path
}

// ToJSON serializes the receipt as indented JSON.
func (r *Receipt) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("marshal receipt: %w", err)
	}
	return append(data, '\n'), nil
}

// Read loads a receipt. A missing file yields (nil, nil).
func Read(fs billy.Filesystem, path string) (*Receipt, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read receipt").
			AtPath(path).Build()
	}
	var r Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "parse receipt").
			AtPath(path).Build()
	}
	return &r, nil
}
