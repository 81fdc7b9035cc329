package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gwtdownloads/internal/components/chrono"
	"gwtdownloads/internal/components/serviceutil"

	"github.com/spf13/cobra"
)

var (
	scheduleSpec  string
	scheduleFlags downloadFlags
)

func init() {
	flags := scheduleCmd.Flags()
	flags.StringVar(&scheduleSpec, "cron", "", "When to download (ex. \"0 4 * * *\"), defaults to the schedule in the config.")
	flags.StringVar(&scheduleFlags.site, "site", "", "The site to download, defaults to the website in the config.")
	flags.StringSliceVar(&scheduleFlags.tables, "table", nil, "Tables to download, defaults to the tables in the config or every table.")
	flags.StringVar(&scheduleFlags.out, "out", "", "The directory reports are written to.")
	flags.StringVar(&scheduleFlags.database, "sqlite", "", "Also store rows in this sqlite file or libsql url.")
	flags.BoolVar(&scheduleFlags.xlsx, "xlsx", false, "Also write every table as an xlsx workbook.")
	rootCmd.AddCommand(scheduleCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule [--cron <spec>]",
	Short: "Downloads the last days_back days of reports on a cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := loadConfig()
		tel := setupTelemetry(ctx, cfg)

		spec := scheduleSpec
		if spec == "" {
			spec = cfg.Schedule
		}
		if spec == "" {
			serviceutil.Fatal("no schedule", fmt.Errorf("set --cron or schedule in the config"))
		}

		j := newJob(cfg, scheduleFlags, tel)
		scheduler := chrono.NewCronScheduler(j.clock, tel)
		err := scheduler.Schedule(spec, func(ctx context.Context) {
			err := runDownload(ctx, j)
			if err != nil {
				tel.ReportBroken("cli.scheduled-download", err)
			}
		})
		if err != nil {
			serviceutil.Fatal("invalid schedule", err)
		}

		slog.Info("waiting for schedule", "cron", spec, "site", j.website)
		err = scheduler.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			serviceutil.Fatal("scheduler stopped", err)
		}
	},
}
