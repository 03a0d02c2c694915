// notifierctl is an operator CLI for a webhook notifier database.
//
// Usage:
//
//	notifierctl rate-limit show
//	notifierctl rate-limit set --burst-limit 10 --burst-window-ms 2000
//	notifierctl targets list -o json
//	notifierctl senders verify <sender-id>
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Priya8975/webhook-notifier/internal/store"
)

var (
	version     = "dev"
	outputFmt   string
	databaseURL string
)

// openStore connects to the configured database. Tests replace it.
var openStore = func(ctx context.Context) (store.Store, error) {
	if databaseURL == "" {
		return nil, errors.New("no database configured: set DATABASE_URL or --database-url")
	}
	pg, err := store.NewPostgres(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pg.RunMigrations(ctx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return pg, nil
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifierctl",
		Short: "Inspect and configure a webhook notifier",
		Long: `notifierctl works directly against the notifier's PostgreSQL database.

Changes to rate limits are picked up by running servers once their
settings cache expires.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")

	cmd.AddCommand(rateLimitCmd())
	cmd.AddCommand(targetsCmd())
	cmd.AddCommand(sendersCmd())
	return cmd
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
