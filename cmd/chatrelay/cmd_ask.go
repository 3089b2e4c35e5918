package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/elee1766/chatrelay/src/app"
	"github.com/spf13/afero"
)

// AskCmd sends one message through the relay logic without starting a server
type AskCmd struct {
	Message      []string `arg:"" help:"Message to send"`
	Conversation string   `help:"Continue this conversation id (needs the sqlite backend to persist)"`
}

func (c *AskCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg, cli)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.Chat.HandleMessage(ctx, strings.Join(c.Message, " "), c.Conversation)
	if err != nil {
		return err
	}

	reply := res.Messages[len(res.Messages)-1]
	fmt.Println(reply.Content)
	fmt.Fprintf(os.Stderr, "conversation: %s\n", res.ConversationID)
	return nil
}
