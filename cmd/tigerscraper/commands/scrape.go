package commands

import (
	"context"
	"log/slog"
	"tigerscraper/internal/components/chrono"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/runner"
	"tigerscraper/internal/serviceutil"
	"time"

	"github.com/spf13/cobra"
)

var (
	scrapeHeaded *bool
	scrapeCron   *string
)

func init() {
	scrapeHeaded = scrapeCmd.Flags().Bool("headed", false, "Show the browser window.")
	scrapeCron = scrapeCmd.Flags().String("cron", "", "Repeat the run-loop on a cron schedule, ex. '@every 30m'.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--headed] [--cron <spec>]",
	Short: "Plays the game until the balance runs out, recording every spin.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := readConfig()
		if *scrapeHeaded {
			config.Browser.Headed = true
		}
		if *scrapeCron != "" {
			config.Runner.Cron = *scrapeCron
		}

		otel, err := telemetry.Setup(ctx, "tigerscraper", config.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer otel.Shutdown(context.WithoutCancel(ctx))

		tel := telemetry.SlogAPI{}
		telemetry.InstrumentPerfStats(ctx, tel, 15*time.Second)

		r, err := runner.Build(ctx, config, chrono.NewStandardImpl(), tel)
		if err != nil {
			serviceutil.Fatal("failed to build runner", err)
		}

		t1 := time.Now()
		if config.Runner.Cron != "" {
			slog.Info("scheduling run-loop", "cron", config.Runner.Cron)
			cron := chrono.NewStandardCron(tel)
			err = r.Schedule(ctx, cron, config.Runner.Cron)
		} else {
			err = r.Run(ctx)
		}
		if err != nil && ctx.Err() == nil {
			serviceutil.Fatal("scrape failed", err)
		}
		slog.Info("scraping time", "seconds", time.Since(t1).Seconds())
	},
}
