package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/axislauncher/internal/config"
	ferrors "git.home.luguber.info/inful/axislauncher/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	dir, err := config.ResolveDir(root.Dir)
	if err != nil {
		return err
	}
	return RunInit(os.Stdout, dir, i.Force)
}

// RunInit writes the default configuration into dir.
func RunInit(out io.Writer, dir string, force bool) error {
	_, _ = fmt.Fprintf(out, "Writing configuration to %s\n", dir)
	path, err := config.Init(dir, force)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "initialization failed").Build()
	}
	_, _ = fmt.Fprintf(out, "✓ Created %s\n", path)
	return nil
}
