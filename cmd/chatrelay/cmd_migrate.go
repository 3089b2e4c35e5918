package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/elee1766/chatrelay/src/app"
	"github.com/spf13/afero"
)

// MigrateCmd manages database migrations
type MigrateCmd struct {
	Up     MigrateUpCmd     `cmd:"" help:"Run pending migrations"`
	Status MigrateStatusCmd `cmd:"" help:"Show migration status"`
}

// MigrateUpCmd runs pending migrations
type MigrateUpCmd struct {
	DBPath string `help:"Database path (defaults to config)"`
}

func (c *MigrateUpCmd) Run(ctx context.Context, cli *CLI) error {
	dbPath, err := migrationDBPath(c.DBPath, cli)
	if err != nil {
		return err
	}

	db, err := app.OpenDB(dbPath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate %s: %w", dbPath, err)
	}

	if len(applied) == 0 {
		fmt.Printf("Database %s is up to date\n", db.Path())
		return nil
	}
	for _, v := range applied {
		fmt.Printf("Applied migration %03d\n", v)
	}
	return nil
}

// MigrateStatusCmd shows migration status
type MigrateStatusCmd struct {
	DBPath string `help:"Database path (defaults to config)"`
}

func (c *MigrateStatusCmd) Run(ctx context.Context, cli *CLI) error {
	dbPath, err := migrationDBPath(c.DBPath, cli)
	if err != nil {
		return err
	}

	db, err := app.OpenDB(dbPath, false)
	if err != nil {
		return err
	}
	defer db.Close()

	statuses, err := db.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "Version\tName\tApplied")
	fmt.Fprintln(w, "-------\t----\t-------")
	for _, s := range statuses {
		applied := "pending"
		if s.Applied && s.AppliedAt != nil {
			applied = s.AppliedAt.Local().Format("2006-01-02 15:04:05")
		} else if s.Applied {
			applied = "yes"
		}
		fmt.Fprintf(w, "%03d\t%s\t%s\n", s.Version, s.Name, applied)
	}
	return nil
}

func migrationDBPath(explicit string, cli *CLI) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cfg, err := loadConfig(afero.NewOsFs(), cli)
	if err != nil {
		return "", err
	}
	return cfg.Storage.Path, nil
}
