package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for placesdir.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "placesdir",
		Short: "Directory of sites grouped by region",
		Long: `placesdir maintains a directory of sites grouped by region.

The whole dataset lives under one key in a durable slot (sqlite by default,
or memory, fs, s3, postgres). When the slot is empty or unreadable it is
seeded from the configured seed location.

Configuration is read from defaults, a YAML file (--config, ./.placesdir.yaml
or the XDG config directory), a .env file, PLACESDIR_* environment variables
and finally command-line flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("storage", "", "Slot driver: memory, fs, s3, sqlite or postgres")
	flags.String("storage-key", "", "Key of the durable slot")
	flags.String("sqlite-path", "", "SQLite database file")
	flags.String("postgres-dsn", "", "PostgreSQL connection string")
	flags.String("fs-root", "", "Root directory of the fs blob driver")
	flags.String("s3-bucket", "", "Bucket of the s3 blob driver")
	flags.String("seed", "", "Seed location: embedded:, http(s)://, file://, a path or blob:<key>")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("trace-file", "", "Append JSON trace spans to this file")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewRegionsCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewUpdateCmd())
	cmd.AddCommand(NewDeleteCmd())
	cmd.AddCommand(NewExportCmd())
	cmd.AddCommand(NewImportCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewSchemaCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
