package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"parish/internal/platform/postgres"
)

func newMigrateCmd() *cobra.Command {
	var list, status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded SQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				names, err := postgres.Migrations()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			logger := slog.New(slog.NewTextHandler(cmd.OutOrStdout(), nil))
			if status {
				return postgres.MigrationStatus(cmd.Context(), e.db, logger)
			}
			if err := postgres.Migrate(cmd.Context(), e.db, logger); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations without connecting")
	cmd.Flags().BoolVar(&status, "status", false, "report which migrations the database has applied")
	cmd.MarkFlagsMutuallyExclusive("list", "status")
	return cmd
}
