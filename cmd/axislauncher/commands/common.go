package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/axislauncher/internal/config"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path (default: launcher.yaml in the launcher directory, optional)"`
	Dir     string           `short:"C" name:"dir" help:"Launcher directory (default: the executable's directory when it holds server.js, else the working directory)"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Start  StartCmd  `cmd:"" default:"withargs" help:"Start the server and open it in the browser (default)"`
	Doctor DoctorCmd `cmd:"" help:"Check the runtime and dependencies without starting the server"`
	Init   InitCmd   `cmd:"" help:"Write a launcher.yaml with the default settings"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// loadConfig resolves the launcher directory, loads the configuration and
// switches logging to the configured level and format.
func loadConfig(root *CLI, ov config.Overrides) (*config.Config, error) {
	dir, err := config.ResolveDir(root.Dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir, root.Config, ov)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr, root.Verbose))
	slog.Debug("Configuration loaded",
		slog.String("dir", cfg.Dir),
		slog.Int("port", cfg.Port),
		slog.String("server", config.Describe(cfg.Server.Command)))
	return cfg, nil
}
