package build

import (
	"context"
	"path/filepath"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/buildsteps"
	"git.home.luguber.info/inful/targetbuilder/internal/catalog"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// prepare loads the declarations of the requested target and resolves its
// layout, plugins and module graph. Clean and export share it with setup.
func (s *DefaultBuildService) prepare(st *State) error {
	desc := st.Request.Target
	cat := catalog.New(s.fs, s.cfg.EngineDir, s.cfg.ProjectFile)
	tr, err := cat.LoadTarget(desc.Name)
	if err != nil {
		return err
	}
	opts := st.Request.Options
	tr.Precompile = tr.Precompile || opts.Precompile
	tr.UsePrecompiled = tr.UsePrecompiled || opts.UsePrecompiled
	tr.DisableLinking = tr.DisableLinking || opts.DisableLinking

	project, err := cat.LoadProject()
	if err != nil {
		return err
	}
	layout, err := rules.NewLayout(desc, tr, s.cfg.EngineDir, s.cfg.ProjectFile)
	if err != nil {
		return err
	}

	req := plugins.Request{
		TargetName:        desc.Name,
		Platform:          desc.Platform,
		TargetType:        tr.Type,
		Project:           project,
		EngineDir:         layout.EngineDir,
		AdditionalPlugins: tr.AdditionalPlugins,
		BuildAllPlugins:   tr.BuildAllPlugins,
		ForeignPlugins:    desc.ForeignPlugins,
	}
	if layout.HasProject() {
		req.ProjectDir = layout.ProjectDir
	}
	set, err := plugins.Resolve(cat, req)
	if err != nil {
		return err
	}

	st.Catalog, st.Target, st.Project, st.Layout, st.Plugins = cat, tr, project, layout, set
	if s.cfg.ProjectInstalled {
		st.ModDirs = binaries.ModDirectories(set.Enabled)
	}
	st.Graph = modulegraph.NewBuilder(cat, modulegraph.Config{
		Layout:          layout,
		Project:         project,
		TargetDir:       filepath.Dir(tr.File),
		EngineInstalled: s.cfg.EngineInstalled,
		OnlyModules:     desc.OnlyModules,
	}).WithLogger(s.logger)
	st.Assigner = binaries.NewAssigner(layout, tr, st.Graph, cat, set).WithLogger(s.logger)
	return nil
}

func (s *DefaultBuildService) stageSetup(ctx context.Context, st *State) error {
	if err := s.prepare(st); err != nil {
		return err
	}
	scripts, err := buildsteps.Setup(s.fs, st.Layout, rules.Platform(s.cfg.HostPlatform), st.Project, st.Plugins.Build)
	if err != nil {
		return err
	}
	st.Scripts = scripts

	if err := st.Assigner.Setup(); err != nil {
		return err
	}
	st.Binaries = st.Assigner.Binaries
	observability.InfoContext(ctx, "Target set up",
		logfields.Count(len(st.Binaries)),
		logfields.Path(st.Layout.ReceiptFile))
	return nil
}

func (s *DefaultBuildService) stageFilter(ctx context.Context, st *State) error {
	desc := st.Request.Target
	bs := st.Binaries
	var err error
	switch {
	case len(desc.OnlyModules) > 0:
		bs, err = binaries.FilterOnlyModules(bs, desc.OnlyModules)
	case desc.HotReload:
		bs, err = binaries.FilterHotReload(bs, st.Layout.EngineDir, s.disambiguator(), st.ModDirs)
	}
	if err != nil {
		return err
	}
	if s.cfg.ProjectInstalled {
		if bs, err = binaries.FilterInstalledMods(bs, st.ModDirs); err != nil {
			return err
		}
	}
	if desc.SingleFile != "" {
		if bs, err = binaries.FilterSingleFile(bs, st.Graph, desc.SingleFile, desc.Name); err != nil {
			return err
		}
	}
	observability.InfoContext(ctx, "Filtered binaries", logfields.Count(len(bs)))
	st.Binaries = bs
	return nil
}
