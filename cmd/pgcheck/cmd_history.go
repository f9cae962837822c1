package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgcheck/internal/checker"
	"github.com/willibrandon/pgcheck/internal/storage/sqlite"
)

// newHistoryCmd creates the history subcommand.
func newHistoryCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent check results",
		Long: `Show recent check results, newest first.

Each check run is recorded locally unless history is disabled in the
config file or the check ran with --no-history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(checker.ExitConfigError)
			}

			db, err := sqlite.Open(cfg.History.Path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
				os.Exit(1)
			}
			defer db.Close()

			store := sqlite.NewHistoryStore(db)
			records, err := store.Recent(context.Background(), limit)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading history: %v\n", err)
				os.Exit(1)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(records); err != nil {
					fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
					os.Exit(1)
				}
				return nil
			}

			if len(records) == 0 {
				fmt.Println("No checks recorded yet")
				return nil
			}

			printHistory(records)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

// printHistory prints check records in human-readable form.
func printHistory(records []sqlite.CheckRecord) {
	for _, rec := range records {
		icon := okFormat("✓")
		status := fmt.Sprintf("%5.1fms  auth %s", rec.LatencyMs, rec.AuthStatus)

		if !rec.Reachable {
			icon = failFormat("✗")
			status = "unreachable"
		} else if rec.AuthStatus == "failed" {
			icon = warnFormat("!")
		}

		target := rec.Host
		if rec.Port > 0 {
			target = fmt.Sprintf("%s:%d", rec.Host, rec.Port)
		}
		if rec.Database != "" {
			target = fmt.Sprintf("%s/%s", target, rec.Database)
		}

		fmt.Printf("%s %s  %-36s %s\n",
			icon,
			rec.CheckedAt.Local().Format("2006-01-02 15:04:05"),
			target,
			status,
		)
	}
}
