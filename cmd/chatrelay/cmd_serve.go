package main

import (
	"context"

	"github.com/elee1766/chatrelay/src/app"
	"github.com/spf13/afero"
)

// ServeCmd runs the HTTP relay
type ServeCmd struct {
	Host string `help:"Interface to bind (default all)"`
}

func (c *ServeCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	logger := loggerFor(cfg, cli)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(ctx)
}
