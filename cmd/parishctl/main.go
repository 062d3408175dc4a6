// Command parishctl is the operator CLI for the parish back office.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"parish/internal/platform/config"
	"parish/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "parishctl",
		Short:        "Operate the parish back office",
		SilenceUsage: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newUserCmd(),
		newTokenCmd(),
		newDutyCmd(),
	)
	return root
}

// env bundles what subcommands need from the environment.
type env struct {
	cfg config.Server
	db  *sqlx.DB
}

// openEnv loads configuration and connects to the database. Every command
// except token needs PARISH_DATABASE_URL.
func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("%sDATABASE_URL is required", config.Prefix)
	}
	db, err := postgres.Open(ctx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
