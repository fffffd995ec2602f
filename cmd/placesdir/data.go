package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"placesdir/pkg/domain"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the dataset as pretty-printed JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out, err := a.store.ExportJSON(ctx)
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
					return err
				}
				if dir := filepath.Dir(output); dir != "" && dir != "." {
					if err := os.MkdirAll(dir, 0o750); err != nil {
						return fmt.Errorf("create output dir: %w", err)
					}
				}
				if err := os.WriteFile(output, []byte(out), 0o600); err != nil {
					return fmt.Errorf("write export: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "exported to %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout (e.g. places_data_export.json)")
	return cmd
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Replace the dataset with a JSON document",
		Long: `Import parses and normalizes a dataset document and replaces the stored
dataset with it. Invalid JSON leaves the stored dataset untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := args[0]
			if arg != "-" {
				arg = "@" + arg
			}
			data, err := readArgument(cmd, arg)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				d, err := a.store.ImportJSON(ctx, string(data))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d regions, %d sites\n", len(d.Regions), countSites(d))
				return nil
			})
		},
	}
}

// NewResetCmd creates the reset command.
func NewResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Replace the dataset with the seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				d, err := a.store.Reset(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset to %d regions, %d sites\n", len(d.Regions), countSites(d))
				return nil
			})
		},
	}
}

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the dataset format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := domain.DatasetSchemaJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func countSites(d domain.Dataset) int {
	n := 0
	for _, r := range d.Regions {
		n += len(r.Sites)
	}
	return n
}
