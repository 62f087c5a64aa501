package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"git.home.luguber.info/inful/targetbuilder/internal/build"
	"git.home.luguber.info/inful/targetbuilder/internal/catalog"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
	"git.home.luguber.info/inful/targetbuilder/internal/watch"
)

// TargetArgs identify one target invocation.
type TargetArgs struct {
	Target        string   `arg:"" help:"Target name"`
	Platform      string   `short:"p" help:"Target platform" default:"${host_platform}"`
	Configuration string   `name:"configuration" short:"C" help:"Build configuration" default:"Development"`
	Architecture  string   `help:"Target architecture (platform default when empty)"`
	Module        []string `name:"module" short:"m" help:"Only build this module; Name or Name=Suffix (repeatable)"`
	HotReload     bool     `name:"hot-reload" help:"Hot reload build: only game binaries, suffixed names"`
	SingleFile    string   `name:"single-file" help:"Only compile the module containing this source file"`
}

// Descriptor converts the flags into a target descriptor.
func (a *TargetArgs) Descriptor() (rules.TargetDescriptor, error) {
	platform, err := rules.ParsePlatform(a.Platform)
	if err != nil {
		return rules.TargetDescriptor{}, errors.ValidationError(err.Error()).Build()
	}
	configuration, err := rules.ParseConfiguration(a.Configuration)
	if err != nil {
		return rules.TargetDescriptor{}, errors.ValidationError(err.Error()).Build()
	}
	only, err := ParseOnlyModules(a.Module)
	if err != nil {
		return rules.TargetDescriptor{}, err
	}
	return rules.TargetDescriptor{
		Name:          a.Target,
		Platform:      platform,
		Configuration: configuration,
		Architecture:  a.Architecture,
		OnlyModules:   only,
		HotReload:     a.HotReload,
		SingleFile:    a.SingleFile,
	}, nil
}

// ParseOnlyModules parses Name or Name=Suffix values.
func ParseOnlyModules(values []string) ([]rules.OnlyModule, error) {
	var out []rules.OnlyModule
	for _, v := range values {
		name, suffix, _ := strings.Cut(v, "=")
		if name == "" {
			return nil, errors.ValidationError(fmt.Sprintf("invalid module %q", v)).Build()
		}
		out = append(out, rules.OnlyModule{Name: name, Suffix: suffix})
	}
	return out, nil
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	TargetArgs

	ReceiptFile    string `name:"receipt" help:"Write an additional copy of the receipt here"`
	Precompile     bool   `help:"Build every engine module for later precompiled use"`
	UsePrecompiled bool   `name:"use-precompiled" help:"Link against precompiled engine modules"`
	NoLink         bool   `name:"no-link" help:"Compile without linking or writing a receipt"`
	Manifest       bool   `help:"Write Manifest.json after the receipt"`
	Watch          bool   `short:"w" help:"Rebuild when declarations change"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	desc, err := b.Descriptor()
	if err != nil {
		return err
	}
	desc.ForceReceiptFile = b.ReceiptFile

	s, err := root.newSession(g)
	if err != nil {
		return err
	}
	defer s.Close()

	req := build.BuildRequest{
		Target: desc,
		Options: build.BuildOptions{
			Precompile:       b.Precompile,
			UsePrecompiled:   b.UsePrecompiled,
			DisableLinking:   b.NoLink,
			GenerateManifest: b.Manifest,
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !b.Watch {
		return b.runOnce(ctx, g, s, req)
	}

	if err := b.runOnce(ctx, g, s, req); err != nil {
		g.Logger.Error("Build failed", logfields.Error(err))
	}
	roots := catalog.New(fsutil.NewOS(), s.cfg.EngineDir, s.cfg.ProjectFile).Roots()
	var files []string
	if s.cfg.ProjectFile != "" {
		files = append(files, s.cfg.ProjectFile)
	}
	w := watch.New(roots, files, func(ctx context.Context) error {
		return b.runOnce(ctx, g, s, req)
	}).WithLogger(g.Logger)
	return w.Run(ctx)
}

func (b *BuildCmd) runOnce(ctx context.Context, g *Global, s *session, req build.BuildRequest) error {
	result, err := s.svc.Run(ctx, req)
	if err != nil {
		return err
	}
	g.printf("Built %s: %d binaries, %d files produced in %s\n",
		req.Target.Name, len(result.Binaries), len(result.Produced), result.Duration.Round(1e6))
	for _, w := range result.Warnings {
		g.printf("warning: %s\n", w)
	}
	if result.ManifestFile != "" {
		g.printf("Manifest: %s\n", result.ManifestFile)
	}
	return nil
}
