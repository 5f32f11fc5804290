package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"tigerscraper/internal/repository"
	"tigerscraper/internal/serviceutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var recordsLimit *int

func init() {
	recordsLimit = recordsCmd.Flags().IntP("limit", "n", 20, "The number of records to list.")
	rootCmd.AddCommand(schemaCmd, pingCmd, recordsCmd)
}

func openRepository(ctx context.Context) repository.Repository {
	config := readConfig()
	repo, err := repository.Open(ctx, config.Repository)
	if err != nil {
		serviceutil.Fatal("failed to open repository", err)
	}
	return repo
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Creates the record collection and its indexes if they don't exist.",
	Run: func(cmd *cobra.Command, args []string) {
		repo := openRepository(cmd.Context())
		defer repo.Close(context.Background())

		err := repo.EnsureSchema(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to ensure schema", err)
		}
		slog.Info("schema is up to date")
	},
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Checks that the repository is reachable.",
	Run: func(cmd *cobra.Command, args []string) {
		repo := openRepository(cmd.Context())
		defer repo.Close(context.Background())

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		t1 := time.Now()
		err := repo.Ping(ctx)
		if err != nil {
			serviceutil.Fatal("repository is not reachable", err)
		}
		slog.Info("pong", "ms", time.Since(t1).Milliseconds())
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records [--limit <n>]",
	Short: "Lists the most recently stored records.",
	Run: func(cmd *cobra.Command, args []string) {
		repo := openRepository(cmd.Context())
		defer repo.Close(context.Background())

		docs, err := repo.Recent(cmd.Context(), *recordsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list records", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"Id", "Game", "Date", "Bet", "Win", "Profit", "Balance"})
		for _, doc := range docs {
			t.AppendRow(table.Row{
				doc.ID,
				strconv.FormatInt(doc.GameID, 10),
				doc.Response.Date.Local().Format(time.DateTime),
				fmt.Sprintf("%.2f", doc.BetAmount),
				fmt.Sprintf("%.2f", doc.WinAmount),
				fmt.Sprintf("%.2f", doc.BetProfit),
				fmt.Sprintf("%.2f", doc.Balance),
			})
		}
		t.AppendFooter(table.Row{"", "", "", "", "", "Records", len(docs)})
		t.Render()
	},
}
