package commands

import (
	"context"

	"git.home.luguber.info/inful/targetbuilder/internal/build"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	TargetArgs
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	desc, err := c.Descriptor()
	if err != nil {
		return err
	}
	s, err := root.newSession(g)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.svc.Clean(context.Background(), build.BuildRequest{Target: desc})
	if err != nil {
		return err
	}
	g.printf("Cleaned %s: %d files deleted\n", desc.Name, n)
	return nil
}
