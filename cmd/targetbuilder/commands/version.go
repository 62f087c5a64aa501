package commands

import (
	"git.home.luguber.info/inful/targetbuilder/internal/git"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// EngineCmd implements the 'engine-version' command.
type EngineCmd struct{}

func (e *EngineCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Version.File != "" {
		v, ok, err := receipt.ReadBuildVersionFile(fsutil.NewOS(), cfg.Version.File)
		if err != nil {
			return err
		}
		if ok {
			g.printf("%d.%d.%d CL %d (%s)\n", v.MajorVersion, v.MinorVersion, v.PatchVersion, v.Changelist, v.BranchName)
			return nil
		}
	}
	if !cfg.Version.FromGit {
		g.printf("unknown\n")
		return nil
	}
	m, err := git.ReadVersion(cfg.EngineDir)
	if err != nil {
		return err
	}
	g.printf("CL %d (%s) %s\n", m.Changelist, m.Branch, m.Commit)
	return nil
}
