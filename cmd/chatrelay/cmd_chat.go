package main

import (
	"context"
	"fmt"
	"os"

	"github.com/elee1766/chatrelay/src/client"
	"github.com/elee1766/chatrelay/src/theme"
	"github.com/spf13/afero"
)

// ChatCmd starts the terminal frontend
type ChatCmd struct {
	Server  string `help:"Relay base URL (defaults to localhost and the configured port)"`
	Theme   string `help:"Color theme (dark, light)" default:"dark"`
	NoColor bool   `help:"Disable code highlighting"`
}

func (c *ChatCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg, cli)

	t, ok := theme.ByName(c.Theme)
	if !ok {
		return fmt.Errorf("%w: unknown theme %q", errUsage, c.Theme)
	}
	theme.SetTheme(t)

	api := client.NewAPI(serverURL(c.Server, cfg), cfg.Server.WriteTimeout, logger)
	renderer := client.NewRenderer(client.RenderOptions{
		Theme:     theme.CurrentTheme,
		Highlight: !c.NoColor,
	})

	repl := client.NewREPL(client.NewSession(api), renderer, os.Stdin, os.Stdout, logger)
	return repl.Run(ctx)
}
