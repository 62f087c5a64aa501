package commands

import (
	"context"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/history"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of builds to show" default:"20"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		return errors.ConfigError("build history is disabled (history.enabled)").Build()
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	summaries, err := history.List(context.Background(), store, h.Limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	_, _ = tw.Write([]byte("BUILD\tTARGET\tPLATFORM\tCONFIG\tSTATUS\tSTARTED\tDURATION\tBINARIES\n"))
	for _, s := range summaries {
		status := s.Status
		if s.ErrorStage != "" {
			status += " (" + s.ErrorStage + ")"
		}
		g.fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			s.BuildID, s.Target, s.Platform, s.Configuration, status,
			s.StartedAt.Local().Format(time.DateTime), s.Duration.Round(time.Millisecond), s.Binaries)
	}
	return tw.Flush()
}
