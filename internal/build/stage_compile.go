package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/history"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/manifest"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/pch"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/retry"
	"git.home.luguber.info/inful/targetbuilder/internal/toolchain"
	"git.home.luguber.info/inful/targetbuilder/internal/util/sets"
)

func (s *DefaultBuildService) stagePreBuild(ctx context.Context, st *State) error {
	return s.steps.Run(ctx, st.Scripts.Pre)
}

func (s *DefaultBuildService) stagePostBuild(ctx context.Context, st *State) error {
	return s.steps.Run(ctx, st.Scripts.Post)
}

func (s *DefaultBuildService) stageLinkerFixups(ctx context.Context, st *State) error {
	if st.Target.Monolithic() {
		if err := st.Assigner.BindExecutableDependencies(); err != nil {
			return err
		}
		m, err := st.Assigner.LinkerFixups(s.fs)
		if err != nil {
			return err
		}
		if m != nil {
			observability.InfoContext(ctx, "Generated linker fixups", logfields.Module(m.Name))
		}
	}
	return binaries.Validate(st.Binaries)
}

func (s *DefaultBuildService) stageSharedPCH(ctx context.Context, st *State) error {
	if !st.Target.UseSharedPCHs {
		return nil
	}
	templates, err := pch.Select(st.allModules(), st.Graph, st.Layout.EngineDir)
	if err != nil {
		return err
	}
	st.SharedPCHs = templates
	observability.InfoContext(ctx, "Selected shared PCH templates", logfields.Count(len(templates)))
	return nil
}

// version resolves the engine version stamped into receipts. The version
// file wins; the git marker of the engine tree is the fallback.
func (s *DefaultBuildService) version(ctx context.Context, st *State) (receipt.BuildVersion, error) {
	if path := s.cfg.Version.File; path != "" {
		v, ok, err := receipt.ReadBuildVersionFile(s.fs, path)
		if err != nil || ok {
			return v, err
		}
	}
	if !s.cfg.Version.FromGit {
		return receipt.BuildVersion{}, nil
	}
	marker, err := s.readGitVersion(st.Layout.EngineDir)
	if err != nil {
		observability.WarnContext(ctx, "No engine version available", logfields.Error(err))
		return receipt.BuildVersion{}, nil
	}
	return marker.BuildVersion(), nil
}

// newReceiptManager returns the receipt manager configured for st.
func (s *DefaultBuildService) newReceiptManager(st *State) *receipt.Manager {
	return receipt.NewManager(s.fs, st.Layout).
		WithLogger(s.logger).
		WithForceReceiptFile(st.Request.Target.ForceReceiptFile).
		WithCleanupPolicy(retry.FromCleanConfig(s.cfg.Clean), s.sleep).
		WithCleanScope(receipt.CleanScope{
			UsePrecompiled:   st.Target.UsePrecompiled,
			ProjectInstalled: s.cfg.ProjectInstalled,
			ModDirs:          st.ModDirs,
		}).
		WithIDGenerator(s.newID)
}

// prepareReceipt builds the receipt and the version manifests, then deletes
// the outputs of the previous build that this one no longer produces.
func (s *DefaultBuildService) prepareReceipt(ctx context.Context, st *State) error {
	v, err := s.version(ctx, st)
	if err != nil {
		return err
	}
	tr := st.Target
	st.Toolchain.SetupBundleDependencies(st.Binaries, st.Layout.AppName)

	var external []string
	if tr.Precompile {
		if external, err = receipt.ExternalFileList(s.fs, st.allModules()); err != nil {
			return err
		}
	}

	st.Receipts = s.newReceiptManager(st)
	r, _, err := st.Receipts.PrepareReceipt(receipt.PrepareInput{
		Binaries:       st.Binaries,
		Products:       st.Toolchain,
		Version:        v,
		EnabledPlugins: st.Plugins.Enabled,
		OnlyModules:    len(st.Request.Target.OnlyModules) > 0,
		HotReload:      st.Request.Target.HotReload,
		DisableLinking: tr.DisableLinking,
		Precompile:     tr.Precompile,
		UsesSlate:      tr.Slate(),
		ExternalFiles:  external,
	})
	if err != nil {
		return err
	}
	st.Receipt = r

	n, err := st.Receipts.CleanStaleModules(st.Binaries)
	st.FilesCleaned += n
	return err
}

// settleVersionManifests decides, before anything is compiled, whether a
// shared build environment keeps its build id. When the planned outputs touch
// files of the shared build the existing manifests are deleted, so a compile
// that fails half way never leaves them describing stale binaries.
func (s *DefaultBuildService) settleVersionManifests(st *State, compilable []*binaries.Binary) error {
	if !st.Layout.SharedBuildEnvironment || st.Target.DisableLinking || st.Receipt == nil {
		return nil
	}
	planned := sets.New[string]()
	for _, b := range compilable {
		for path := range st.Toolchain.BuildProducts(b) {
			planned.Add(path)
		}
	}
	recycled, err := st.Receipts.TryRecycleVersionManifests(planned)
	if err != nil || recycled {
		return err
	}
	return st.Receipts.InvalidateVersionManifests()
}

func (s *DefaultBuildService) stageCompile(ctx context.Context, st *State) error {
	st.Toolchain = s.toolchainFactory(st.Layout.Platform)
	if err := s.prepareReceipt(ctx, st); err != nil {
		return err
	}

	env := toolchain.Env{
		Layout:      st.Layout,
		Definitions: st.Target.GlobalDefinitions,
		SharedPCHs:  st.SharedPCHs,
	}
	var compilable []*binaries.Binary
	for _, b := range st.Binaries {
		if b.AllowCompilation {
			compilable = append(compilable, b)
		}
	}
	if err := s.settleVersionManifests(st, compilable); err != nil {
		return err
	}

	type outcome struct {
		produced []string
		err      error
	}
	outcomes := make([]outcome, len(compilable))
	var wg sync.WaitGroup
	for i, b := range compilable {
		wg.Add(1)
		go func() {
			defer wg.Done()
			produced, err := st.Toolchain.Compile(ctx, b, env)
			if err != nil {
				err = fmt.Errorf("%s: %w", b.PrimaryOutput(), err)
			}
			outcomes[i] = outcome{produced: produced, err: err}
		}()
	}
	wg.Wait()

	var errs []error
	for _, o := range outcomes {
		st.Produced = append(st.Produced, o.produced...)
		if o.err != nil {
			errs = append(errs, o.err)
		}
	}
	slices.Sort(st.Produced)
	st.Produced = slices.Compact(st.Produced)
	if len(errs) > 0 {
		observability.ErrorContext(ctx, "Compile failed",
			logfields.Count(len(errs)))
		return stderrors.Join(errs...)
	}
	observability.InfoContext(ctx, "Compiled binaries", logfields.Count(len(compilable)))
	return nil
}

func (s *DefaultBuildService) stageReceipt(ctx context.Context, st *State) error {
	if st.Target.DisableLinking || st.Receipt == nil {
		return nil
	}
	if err := st.Receipts.WriteReceipts(); err != nil {
		return err
	}
	st.Receipt = st.Receipts.Receipt()
	s.record(ctx, st.BuildID, history.TypeReceiptWritten, history.ReceiptWritten{
		Path:          st.Layout.ReceiptFile,
		BuildProducts: len(st.Receipt.BuildProducts),
	})

	if s.cfg.Manifest.Generate || st.Request.Options.GenerateManifest {
		path, err := manifest.Generate(s.fs, st.Receipt, st.Layout, manifest.Options{
			Precompile:      st.Target.Precompile,
			OnlyModules:     len(st.Request.Target.OnlyModules) > 0,
			DisableLinking:  st.Target.DisableLinking,
			EngineInstalled: s.cfg.EngineInstalled,
		})
		if err != nil {
			return err
		}
		st.ManifestFile = path
	}
	observability.InfoContext(ctx, "Wrote receipt", logfields.Path(st.Layout.ReceiptFile))
	return nil
}
