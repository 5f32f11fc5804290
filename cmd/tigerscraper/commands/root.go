package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/runner"
	"tigerscraper/internal/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "config.json5", "The config file to read, <name>.local.json5 overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug messages.")
}

var rootCmd = &cobra.Command{
	Use:   "tigerscraper",
	Short: "tigerscraper plays a browser slot game and records every spin it intercepts.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func readConfig() runner.Config {
	config, err := runner.ReadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		config, err = runner.WithDefaults(runner.Config{})
	}
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	return config
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
