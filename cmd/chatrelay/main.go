package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// CLI represents the main CLI structure
type CLI struct {
	Config    string `short:"c" help:"Path to a config file (replaces the user config)" type:"path"`
	LogLevel  string `env:"CHATRELAY_LOG_LEVEL" help:"Log level (debug, info, warn, error)"`
	LogFormat string `help:"Log format (text, json)"`

	APIKey   string `help:"Provider API key"`
	Provider string `help:"Provider (openai, openrouter)"`
	BaseURL  string `help:"Custom API base URL"`
	Model    string `help:"Model to use"`
	Port     int    `short:"p" help:"HTTP port"`
	Storage  string `help:"Conversation storage backend (memory, sqlite)"`

	Serve         ServeCmd         `cmd:"" default:"1" help:"Run the HTTP chat relay (default)"`
	Chat          ChatCmd          `cmd:"" help:"Interactive terminal chat against a running server"`
	Ask           AskCmd           `cmd:"" help:"Send a single message and print the reply"`
	Conversations ConversationsCmd `cmd:"" help:"List recent conversations from a running server"`
	Models        ModelsCmd        `cmd:"" help:"Provider model information"`
	Migrate       MigrateCmd       `cmd:"" help:"Database migrations for the sqlite backend"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("chatrelay"),
		kong.Description("Minimal chat relay in front of an OpenAI-compatible API"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	err := kctx.Run(&cli)
	if err != nil {
		stop()
		FatalError(createCLILogger(cli.LogLevel, cli.LogFormat), err)
	}
}
