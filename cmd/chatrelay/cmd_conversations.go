package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/elee1766/chatrelay/src/client"
	"github.com/elee1766/chatrelay/src/storage"
	"github.com/spf13/afero"
)

// ConversationsCmd prints the recent conversation list
type ConversationsCmd struct {
	Server string `help:"Relay base URL (defaults to localhost and the configured port)"`
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

func (c *ConversationsCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return err
	}
	logger := loggerFor(cfg, cli)

	convs, err := client.NewAPI(serverURL(c.Server, cfg), cfg.Server.ReadTimeout, logger).Conversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch conversations: %w", err)
	}

	if c.Format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(convs)
	}
	return printConversationsTable(os.Stdout, convs)
}

func printConversationsTable(out io.Writer, convs []*storage.Conversation) error {
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "#\tID\tTitle\tMessages\tStarted")
	fmt.Fprintln(w, "-\t--\t-----\t--------\t-------")
	for i, conv := range convs {
		started := "-"
		if len(conv.Messages) > 0 && !conv.Messages[0].Timestamp.IsZero() {
			started = conv.Messages[0].Timestamp.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", i+1, conv.ID, conv.Title, len(conv.Messages), started)
	}
	return nil
}
