package commands

import (
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// ReceiptCmd implements the 'receipt' command.
type ReceiptCmd struct {
	File string `arg:"" help:"Receipt file (.target)" type:"path"`
}

func (r *ReceiptCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	rec, err := receipt.Read(fsutil.NewOS(), r.File)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.NewError(errors.CategoryNotFound, "receipt not found").
			AtPath(r.File).Build()
	}
	rec.ExpandPathVariables(cfg.EngineDir, projectDir(cfg))
	data, err := rec.ToJSON()
	if err != nil {
		return err
	}
	g.printf("%s\n", data)
	return nil
}
