package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/willibrandon/pgcheck/internal/checker"
	"github.com/willibrandon/pgcheck/internal/config"
	"github.com/willibrandon/pgcheck/internal/logger"
	"github.com/willibrandon/pgcheck/internal/storage/sqlite"
)

var (
	okFormat    = color.New(color.FgGreen).SprintFunc()
	failFormat  = color.New(color.FgHiRed).SprintFunc()
	warnFormat  = color.New(color.FgHiYellow).SprintFunc()
	mutedFormat = color.New(color.FgHiBlack).SprintFunc()
)

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	var (
		rawURL         string
		envFile        string
		connectTimeout time.Duration
		queryTimeout   time.Duration
		tcpOnly        bool
		promptPassword bool
		noHistory      bool
		jsonOutput     bool
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to a PostgreSQL server",
		Long: `Check that the PostgreSQL server named by a connection URL is
reachable and that its credentials authenticate.

The check runs in two stages. First a plain TCP connection confirms
something is listening on the host and port; failure here is fatal and
exits nonzero. Then an authenticated probe runs SELECT 1 against the
server; failure here is reported as a warning but exits zero, because
the server itself is up.

Exit codes:
  0  server reachable (authentication may still have failed)
  1  server not reachable
  2  configuration error (missing or malformed URL)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Env files feed POSTGRES_URL into the environment before
			// the config layer reads it.
			explicit := envFile != ""
			path := envFile
			if path == "" {
				path = ".env"
			}
			if err := config.LoadEnvFile(path, explicit); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(checker.ExitConfigError)
			}

			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(checker.ExitConfigError)
			}

			logLevel := logger.ParseLevel(cfg.Log.Level)
			if debug {
				logLevel = logger.LevelDebug
			}
			logger.InitLogger(logLevel, cfg.Log.File)
			defer logger.Close()
			if debug && logger.LogPath != "" {
				fmt.Fprintf(os.Stderr, "Debug mode: Logs written to %s\n", logger.LogPath)
			}

			if rawURL == "" {
				rawURL = cfg.URL
			}
			if rawURL == "" {
				fmt.Fprintln(os.Stderr, "Error: no connection URL provided")
				fmt.Fprintln(os.Stderr, "Set POSTGRES_URL, pass --url, or add url to the config file")
				os.Exit(checker.ExitConfigError)
			}

			// Flags win over the config file only when actually set.
			if !cmd.Flags().Changed("timeout") {
				connectTimeout = cfg.Connection.ConnectTimeout
			}
			if !cmd.Flags().Changed("query-timeout") {
				queryTimeout = cfg.Connection.QueryTimeout
			}

			c := &checker.Checker{
				ConnectTimeout:  connectTimeout,
				PasswordCommand: cfg.Connection.PasswordCommand,
				AllowPrompt:     promptPassword,
			}
			if !tcpOnly && !cfg.Connection.SkipAuth {
				c.Auth = &checker.PGXProber{
					SSLMode:        cfg.Connection.SSLMode,
					ConnectTimeout: connectTimeout,
					QueryTimeout:   queryTimeout,
				}
			}

			ctx := context.Background()
			report, runErr := c.Run(ctx, rawURL)
			if report == nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
				os.Exit(checker.ExitCode(runErr))
			}

			if cfg.History.Enabled && !noHistory {
				saveHistory(ctx, cfg, report, runErr)
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
					os.Exit(1)
				}
			} else {
				printReport(report, runErr)
			}

			if code := checker.ExitCode(runErr); code != checker.ExitSuccess {
				os.Exit(code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rawURL, "url", "", "connection URL (default $POSTGRES_URL)")
	cmd.Flags().StringVar(&envFile, "env-file", "", "env file to read POSTGRES_URL from (default .env if present)")
	cmd.Flags().DurationVar(&connectTimeout, "timeout", checker.DefaultConnectTimeout, "TCP connect timeout")
	cmd.Flags().DurationVar(&queryTimeout, "query-timeout", checker.DefaultQueryTimeout, "probe query timeout")
	cmd.Flags().BoolVar(&tcpOnly, "tcp-only", false, "skip the authenticated probe")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "prompt for a password if none is found")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this check in history")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	return cmd
}

// saveHistory records the check result. Storage problems are logged but
// never affect the check outcome.
func saveHistory(ctx context.Context, cfg *config.Config, report *checker.Report, runErr error) {
	db, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("Failed to open history database", "path", cfg.History.Path, "error", err)
		return
	}
	defer db.Close()

	store := sqlite.NewHistoryStore(db)

	rec := sqlite.CheckRecord{
		ID:            report.RunID,
		CheckedAt:     report.CheckedAt,
		Host:          report.Host,
		Port:          report.Port,
		User:          report.User,
		Database:      report.Database,
		Reachable:     report.Reachable,
		LatencyMs:     report.LatencyMS,
		AuthStatus:    string(report.Auth.Status),
		ServerVersion: report.Auth.ServerVersion,
		Detail:        report.Auth.Error,
	}
	if runErr != nil && !report.Reachable {
		rec.Detail = runErr.Error()
	}

	if err := store.Save(ctx, rec); err != nil {
		logger.Warn("Failed to save check result", "error", err)
		return
	}

	if cfg.History.Retention > 0 {
		cutoff := time.Now().Add(-cfg.History.Retention)
		if _, err := store.PruneBefore(ctx, cutoff); err != nil {
			logger.Warn("Failed to prune check history", "error", err)
		}
	}
}

// printReport prints the check result in human-readable form. The
// password never appears in any output.
func printReport(report *checker.Report, runErr error) {
	target := fmt.Sprintf("%s:%d", report.Host, report.Port)

	described := target
	if report.Database != "" {
		described += "/" + report.Database
	}
	if report.User != "" {
		described += " as " + report.User
	}
	fmt.Printf("Checking %s\n", described)

	if !report.Reachable {
		fmt.Printf("%s %v\n", failFormat("✗"), runErr)
		fmt.Println(mutedFormat("  Check that the server is running and the host and port are correct."))
		return
	}

	fmt.Printf("%s TCP connection to %s succeeded (%.1fms)\n", okFormat("✓"), target, report.LatencyMS)

	switch report.Auth.Status {
	case checker.AuthOK:
		if report.Auth.ServerVersion != "" {
			fmt.Printf("%s Authentication succeeded (%s)\n", okFormat("✓"), report.Auth.ServerVersion)
		} else {
			fmt.Printf("%s Authentication succeeded\n", okFormat("✓"))
		}
	case checker.AuthFailed:
		fmt.Printf("%s Authentication failed: %s\n", warnFormat("!"), report.Auth.Error)
		fmt.Println(mutedFormat("  The server is reachable; check credentials and database name."))
	case checker.AuthSkipped:
		fmt.Println(mutedFormat("- Authentication probe skipped"))
	}
}
