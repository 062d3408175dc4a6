package main

import (
	"github.com/spf13/cobra"

	"parish/internal/audit"
	"parish/internal/platform/logger"
	"parish/internal/users"
	"parish/internal/users/models"
	userservice "parish/internal/users/service"
	userstore "parish/internal/users/store/user"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var req models.CreateUserRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account, typically the first administrator or a priest",
		Example: `  parishctl user create --email office@parish.org --first-name Parish --last-name Office --admin
  parishctl user create --email fr.john@parish.org --first-name John --priest`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			log := logger.NewWithWriter(cmd.ErrOrStderr(), e.cfg.LogLevel, "text")
			svc := users.NewService(userstore.NewPostgres(e.db),
				userservice.WithLogger(log),
				userservice.WithAuditPublisher(audit.NewPublisher(audit.NewPostgresStore(e.db))),
			)
			u, err := svc.Create(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), u)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Email, "email", "", "account email")
	f.StringVar(&req.FirstName, "first-name", "", "first name")
	f.StringVar(&req.LastName, "last-name", "", "last name")
	f.BoolVar(&req.IsAdmin, "admin", false, "grant the administrator role")
	f.BoolVar(&req.IsStaff, "staff", false, "grant the staff role")
	f.BoolVar(&req.IsPriest, "priest", false, "grant the priest role")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	return cmd
}
