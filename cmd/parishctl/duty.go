package main

import (
	"time"

	"github.com/spf13/cobra"

	"parish/internal/duty"
	"parish/internal/duty/checker"
	"parish/internal/duty/models"
	dutyservice "parish/internal/duty/service"
	entrystore "parish/internal/duty/store/entry"
	userstore "parish/internal/users/store/user"
)

func newDutyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duty",
		Short: "Inspect the duty calendar",
	}
	cmd.AddCommand(newDutyCheckCmd())
	return cmd
}

func newDutyCheckCmd() *cobra.Command {
	var (
		req    models.CheckRequest
		window time.Duration
		mode   string
	)
	cmd := &cobra.Command{
		Use:     "check",
		Short:   "Report whether a priest is free at a date and time",
		Example: `  parishctl duty check --priest 7f9c... --date 2026-11-01 --time 09:30 --mode legacy`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			policy := checker.Policy{Window: e.cfg.Duty.OverlapWindow}
			if window > 0 {
				policy.Window = window
			}
			if mode == "" {
				mode = e.cfg.Duty.OverlapMode
			}
			if policy.Mode, err = checker.ParseMode(mode); err != nil {
				return err
			}

			svc := duty.NewService(entrystore.NewPostgres(e.db), userstore.NewPostgres(e.db),
				dutyservice.WithPolicy(policy),
				dutyservice.WithLocation(e.cfg.Location()),
			)
			res, err := svc.CheckAvailability(cmd.Context(), &req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.PriestID, "priest", "", "priest user id")
	f.StringVar(&req.Date, "date", "", "date in YYYY-MM-DD")
	f.StringVar(&req.Time, "time", "", "time in HH:MM")
	f.StringVar(&req.ExcludeEntryID, "exclude", "", "duty entry id to ignore, as when editing it")
	f.DurationVar(&window, "window", 0, "overlap window (defaults to DUTY_OVERLAP_WINDOW)")
	f.StringVar(&mode, "mode", "", "overlap mode: symmetric or legacy (defaults to DUTY_OVERLAP_MODE)")
	for _, name := range []string{"priest", "date", "time"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
