package build

import (
	"context"
	"io"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/util/sets"
)

// assemble loads the target and assigns its binaries without running any
// build step.
func (s *DefaultBuildService) assemble(ctx context.Context, req BuildRequest) (*State, error) {
	if s.cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}
	st := newState(req, s.newID())
	if err := s.prepare(st); err != nil {
		return nil, err
	}
	if err := st.Assigner.Setup(); err != nil {
		return nil, err
	}
	st.Binaries = st.Assigner.Binaries
	if len(req.Target.OnlyModules) > 0 || req.Target.HotReload || req.Target.SingleFile != "" || s.cfg.ProjectInstalled {
		if err := s.stageFilter(ctx, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Clean deletes the products, receipt, intermediate and generated code
// directories of the requested target. It returns the number of deleted files.
func (s *DefaultBuildService) Clean(ctx context.Context, req BuildRequest) (int, error) {
	ctx = observability.WithTarget(ctx, req.Target.Name)
	st, err := s.assemble(ctx, req)
	if err != nil {
		return 0, err
	}
	l := st.Layout

	intermediate := sets.NewOrdered(l.EngineIntermediateDir, l.ProjectIntermediateDir)
	generated := sets.NewOrdered[string]()
	for _, b := range st.Binaries {
		if b.IntermediateDir != "" {
			intermediate.Add(b.IntermediateDir)
		}
		for _, m := range b.Modules {
			if m.CPP != nil && m.CPP.GeneratedCodeDir != "" {
				generated.Add(m.CPP.GeneratedCodeDir)
			}
		}
	}

	n, err := s.newReceiptManager(st).CleanTarget(receipt.CleanTargetInput{
		Binaries:         st.Binaries,
		HotReload:        req.Target.HotReload,
		IntermediateDirs: intermediate.Items(),
		GeneratedDirs:    generated.Items(),
	})
	s.recorder.AddFilesCleaned(n)
	if err != nil {
		return n, err
	}
	observability.InfoContext(ctx, "Clean finished", logfields.Count(n))
	return n, nil
}

// Export writes the JSON description of the requested target's binaries and
// modules to w.
func (s *DefaultBuildService) Export(ctx context.Context, req BuildRequest, w io.Writer) error {
	st, err := s.assemble(observability.WithTarget(ctx, req.Target.Name), req)
	if err != nil {
		return err
	}
	return st.Assigner.ExportJSON(w)
}
