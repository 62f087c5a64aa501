package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/targetbuilder/cmd/targetbuilder/commands"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("targetbuilder"),
		kong.Description("Assemble, compile and record build targets."),
		commands.Vars(version.String()),
		kong.Bind(&commands.Global{}),
	)
	err := parser.Run(&cli)
	if err == nil {
		return
	}
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
