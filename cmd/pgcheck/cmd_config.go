package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/willibrandon/pgcheck/internal/checker"
	"github.com/willibrandon/pgcheck/internal/config"
)

// newConfigCmd creates the config command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(newConfigInitCmd())

	return cmd
}

// newConfigInitCmd creates the config init subcommand.
func newConfigInitCmd() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Long: `Write a config file populated with the default values.

The file documents every setting pgcheck reads: probe timeouts,
sslmode, password command, history retention, and log level.

Example:
  pgcheck config init
  pgcheck config init --output ./pgcheck.yaml --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(outputPath, force)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(checker.ExitConfigError)
			}

			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output path (default ~/.config/pgcheck/config.yaml)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")

	return cmd
}
