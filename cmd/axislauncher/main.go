package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/axislauncher/cmd/axislauncher/commands"
	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
	"git.home.luguber.info/inful/axislauncher/internal/version"
)

func main() {
	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("axislauncher"),
		kong.Description("Start the Axis server and open it in the default browser."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, &cli)

	adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).WithOutput(os.Stdout)
	os.Exit(adapter.Report(err))
}
