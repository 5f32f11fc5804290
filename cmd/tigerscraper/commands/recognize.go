package commands

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"tigerscraper/internal/components/telemetry"
	"tigerscraper/internal/recognition"
	"tigerscraper/internal/runner"
	"tigerscraper/internal/scraper"
	"tigerscraper/internal/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recognizeCmd)
}

// screenshotFromFile reads a saved canvas screenshot, useful to tune regions
// and the enabled threshold without starting a browser.
func screenshotFromFile(path string) (recognition.Screenshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return recognition.Screenshot{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return recognition.Screenshot{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return recognition.Screenshot{
		Image:  data,
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

var recognizeCmd = &cobra.Command{
	Use:   "recognize <screenshot.png>...",
	Short: "Runs the bet, balance and play button recognizers on saved screenshots.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := readConfig()
		recognizer, err := runner.NewRecognizer(config, telemetry.SlogAPI{})
		if err != nil {
			serviceutil.Fatal("failed to create recognizer", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Screenshot", "Bet", "Balance", "Play enabled"})
		for _, path := range args {
			shot, err := screenshotFromFile(path)
			if err != nil {
				serviceutil.Fatal("failed to read screenshot", err)
			}

			bet := recognizer.BetAmount(cmd.Context(), shot)
			balance := recognizer.Balance(cmd.Context(), shot)
			enabled := recognizer.PlayEnabled(cmd.Context(), shot)

			t.AppendRow(table.Row{
				filepath.Base(path),
				formatAmount(bet),
				formatAmount(balance),
				enabled.String(),
			})
		}
		t.Render()
	},
}

func formatAmount(res recognition.Result[int64]) string {
	cents, ok := res.Get()
	if !ok {
		return res.String()
	}
	return scraper.FormatBalance(cents)
}
