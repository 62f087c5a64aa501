// Package toolchain defines the contract with the external compiler driver
// and the two drivers shipped with targetbuilder.
package toolchain

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/config"
	"git.home.luguber.info/inful/targetbuilder/internal/pch"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Env is the target-wide input of a compile.
type Env struct {
	Layout      *rules.Layout
	Definitions []string
	SharedPCHs  []pch.Template
}

// Toolchain compiles and links binaries.
type Toolchain interface {
	// Compile builds b and returns the files it produced.
	Compile(ctx context.Context, b *binaries.Binary, env Env) ([]string, error)
	// BuildProducts lists every file b produces, keyed by path.
	BuildProducts(b *binaries.Binary) map[string]rules.BuildProductType
	// SetupBundleDependencies records the bundle resources of executables
	// on platforms that package applications as bundles.
	SetupBundleDependencies(bs []*binaries.Binary, appName string)
}

// New returns the driver configured by c for platform p.
func New(c config.ToolchainConfig, p rules.Platform, logger *slog.Logger) Toolchain {
	if c.DryRun {
		return NewDryRun(p).WithLogger(logger)
	}
	return NewCommand(p, c.Command, c.Args).WithLogger(logger)
}

// products is the platform naming shared by both drivers.
type products struct {
	platform rules.Platform
	bundles  map[*binaries.Binary]string
}

func newProducts(p rules.Platform) products {
	return products{platform: p, bundles: map[*binaries.Binary]string{}}
}

func (p products) list(b *binaries.Binary) map[string]rules.BuildProductType {
	out := map[string]rules.BuildProductType{}
	for _, path := range b.OutputPaths {
		switch b.Type {
		case rules.BinaryExecutable:
			out[path] = rules.ProductExecutable
		case rules.BinaryDynamicLibrary:
			out[path] = rules.ProductDynamicLibrary
		case rules.BinaryStaticLibrary:
			out[path] = rules.ProductStaticLibrary
		}
		if p.platform.IsWindows() && b.Type != rules.BinaryStaticLibrary {
			out[pathutil.ReplaceExtension(path, ".pdb")] = rules.ProductSymbolFile
			if b.AllowExports {
				out[pathutil.ReplaceExtension(path, ".lib")] = rules.ProductImportLibrary
			}
		}
	}
	if plist, ok := p.bundles[b]; ok {
		out[plist] = rules.ProductRequiredResource
	}
	return out
}

func (p products) setupBundles(bs []*binaries.Binary, appName string) {
	if p.platform != rules.PlatformMac {
		return
	}
	for _, b := range bs {
		if b.Type == rules.BinaryExecutable {
			p.bundles[b] = filepath.Join(b.OutputDir(), appName+".app", "Contents", "Info.plist")
		}
	}
}

// Variables returns the $(Name) substitutions for compiling b.
func Variables(b *binaries.Binary, env Env) map[string]string {
	var modules, sources []string
	for _, m := range b.Modules {
		if m.IsExternal() {
			continue
		}
		modules = append(modules, m.Name)
		if m.CPP != nil {
			sources = append(sources, m.CPP.FilesToBuild...)
		}
	}
	var headers []string
	for _, t := range env.SharedPCHs {
		headers = append(headers, t.Header)
	}
	vars := map[string]string{
		"Binary":          b.PrimaryOutput(),
		"BinaryType":      string(b.Type),
		"IntermediateDir": b.IntermediateDir,
		"Modules":         strings.Join(modules, ","),
		"Sources":         strings.Join(sources, string(filepath.ListSeparator)),
		"Definitions":     strings.Join(env.Definitions, ","),
		"SharedPCHs":      strings.Join(headers, string(filepath.ListSeparator)),
	}
	if l := env.Layout; l != nil {
		vars["TargetName"] = l.TargetName
		vars["TargetPlatform"] = string(l.Platform)
		vars["TargetConfiguration"] = string(l.Configuration)
		vars["Architecture"] = l.Architecture
	}
	return vars
}
