package manifest

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// BuildManifest lists the files a build publishes. Static and import
// libraries are kept apart since they are not submitted with the binaries.
type BuildManifest struct {
	BuildProducts        []string `json:"build_products"`
	LibraryBuildProducts []string `json:"library_build_products,omitempty"`
}

// AddBuildProduct appends path unless it is already listed.
func (m *BuildManifest) AddBuildProduct(path string) {
	for _, p := range m.BuildProducts {
		if p == path {
			return
		}
	}
	m.BuildProducts = append(m.BuildProducts, path)
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Options control manifest generation.
type Options struct {
	// Precompile keeps libraries in the main product list.
	Precompile      bool
	OnlyModules     bool
	DisableLinking  bool
	EngineInstalled bool
}

// Path returns Intermediate/Build/Manifest.json under the project when the
// engine is installed, else under the engine.
func Path(l *rules.Layout, engineInstalled bool) string {
	base := l.EngineDir
	if engineInstalled && l.HasProject() {
		base = l.ProjectDir
	}
	return filepath.Join(base, "Intermediate", "Build", "Manifest.json")
}

// Build collects the publish manifest from a receipt with unexpanded paths.
func Build(r *receipt.Receipt, l *rules.Layout, opts Options) *BuildManifest {
	m := &BuildManifest{BuildProducts: []string{}}
	if opts.DisableLinking || r == nil {
		return m
	}
	expanded := r.Clone()
	expanded.ExpandPathVariables(l.EngineDir, l.ProjectDir)
	for _, p := range expanded.BuildProducts {
		if !opts.Precompile && (p.Type == rules.ProductStaticLibrary || p.Type == rules.ProductImportLibrary) {
			m.LibraryBuildProducts = append(m.LibraryBuildProducts, p.Path)
			continue
		}
		m.AddBuildProduct(p.Path)
	}
	if !opts.OnlyModules {
		m.AddBuildProduct(l.ReceiptFile)
	}
	return m
}

// Generate writes the publish manifest and returns its path.
func Generate(fs billy.Filesystem, r *receipt.Receipt, l *rules.Layout, opts Options) (string, error) {
	path := Path(l, opts.EngineInstalled)
	data, err := Build(r, l, opts).ToJSON()
	if err != nil {
		return "", err
	}
	if _, err := fsutil.WriteIfChanged(fs, path, data); err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "write build manifest").
			AtPath(path).Build()
	}
	return path, nil
}
