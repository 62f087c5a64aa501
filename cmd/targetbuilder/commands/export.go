package commands

import (
	"context"

	"git.home.luguber.info/inful/targetbuilder/internal/build"
)

// ExportCmd implements the 'export' command.
type ExportCmd struct {
	TargetArgs
}

func (e *ExportCmd) Run(g *Global, root *CLI) error {
	desc, err := e.Descriptor()
	if err != nil {
		return err
	}
	s, err := root.newSession(g)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.svc.Export(context.Background(), build.BuildRequest{Target: desc}, g.stdout())
}
