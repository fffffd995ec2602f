package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"placesdir/internal/listing"
	"placesdir/internal/report"
	"placesdir/pkg/domain"
)

// Output formats for show.
const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

// NewRegionsCmd creates the regions command.
func NewRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List region names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				names, err := a.store.Regions(ctx)
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(cmd.OutOrStdout(), n)
				}
				return nil
			})
		},
	}
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <region>",
		Short: "Show the sites of a region",
		Long: `Show prints the sites of one region, optionally filtered and sorted.

Examples:
  placesdir show IL
  placesdir show IL --query chicago --sort name-asc
  placesdir show IL --format markdown > il.md`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}
	cmd.Flags().StringP("query", "q", "", "Case-insensitive filter over number, name, city, type, address and zip")
	cmd.Flags().String("sort", string(listing.DefaultMode), "Sort order: number-asc, number-desc or name-asc")
	cmd.Flags().StringP("format", "f", formatText, "Output format: text, json or markdown")
	return cmd
}

func runShowCmd(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	sortFlag, _ := cmd.Flags().GetString("sort")
	format, _ := cmd.Flags().GetString("format")
	mode, err := listing.ParseMode(sortFlag)
	if err != nil {
		return err
	}
	switch format {
	case formatText, formatJSON, formatMarkdown:
	default:
		return fmt.Errorf("unknown format %q: want text, json or markdown", format)
	}
	return withApp(cmd, func(ctx context.Context, a *app) error {
		region, ok, err := a.store.Region(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return &domain.RegionNotFoundError{Region: args[0]}
		}
		out := cmd.OutOrStdout()
		switch format {
		case formatMarkdown:
			_, err := report.NewMarkdownWriter(out).Write(region, report.Options{Query: query, Sort: mode})
			return err
		case formatJSON:
			region.Sites = listing.View(region.Sites, query, mode)
			return writeJSONTo(out, domain.NormalizeDataset(domain.Dataset{Regions: []domain.Region{region}}).Regions[0])
		default:
			return writeSiteTable(out, listing.View(region.Sites, query, mode))
		}
	})
}

func writeSiteTable(w io.Writer, sites []domain.Site) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tNAME\tCITY\tSTATE\tTYPE\tWEBSITES")
	for _, s := range sites {
		links := make([]string, 0, len(s.Websites))
		for _, u := range s.Websites {
			if href := listing.NormalizeURL(u); href != "" {
				links = append(links, href)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", s.Number, s.Name, s.City, s.State, s.Type, strings.Join(links, " "))
	}
	return tw.Flush()
}

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <region>",
		Short: "Add a site to a region",
		Long: `Add appends a site to a region. Without a number the next free number is
assigned. Fields come from --data (a JSON object, or @file, or @- for stdin)
overlaid with repeated --set field=value pairs.

Examples:
  placesdir add IL --set name="Loop Exchange" --set city=Chicago
  placesdir add IL --data '{"name":"Loop","websites":["example.com"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := siteInput(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				site, err := a.store.AddSite(ctx, args[0], raw)
				if err != nil {
					return err
				}
				return writeJSONTo(cmd.OutOrStdout(), site)
			})
		},
	}
	addSiteInputFlags(cmd)
	return cmd
}

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <region> <number>",
		Short: "Update fields of a site",
		Long: `Update overlays the given fields onto an existing site. Setting number
renumbers the site unless another site already holds that number.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumberArg(args[1])
			if err != nil {
				return err
			}
			patch, err := siteInput(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				site, err := a.store.UpdateSite(ctx, args[0], number, patch)
				if err != nil {
					return err
				}
				return writeJSONTo(cmd.OutOrStdout(), site)
			})
		},
	}
	addSiteInputFlags(cmd)
	return cmd
}

// NewDeleteCmd creates the delete command.
func NewDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <region> <number>",
		Short: "Delete a site",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := parseNumberArg(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.store.DeleteSite(ctx, args[0], number); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s #%d\n", args[0], number)
				return nil
			})
		},
	}
}

func addSiteInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("data", "d", "", "Site fields as a JSON object, @file or @- for stdin")
	cmd.Flags().StringArrayP("set", "s", nil, "Set a field, e.g. --set city=Chicago; websites takes a comma separated list")
}

// siteInput merges --data and --set into a raw site.
func siteInput(cmd *cobra.Command) (domain.RawSite, error) {
	data, _ := cmd.Flags().GetString("data")
	sets, _ := cmd.Flags().GetStringArray("set")
	raw := domain.RawSite{}
	if data != "" {
		b, err := readArgument(cmd, data)
		if err != nil {
			return nil, err
		}
		if raw, err = domain.ParseRawSite(b); err != nil {
			return nil, err
		}
	}
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want field=value", kv)
		}
		var (
			b   []byte
			err error
		)
		if key == "websites" {
			b, err = json.Marshal(splitList(value))
		} else {
			b, err = json.Marshal(value)
		}
		if err != nil {
			return nil, err
		}
		raw[key] = b
	}
	return raw, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// readArgument returns literal text, or the content of @file, or stdin for @-.
func readArgument(cmd *cobra.Command, arg string) ([]byte, error) {
	switch {
	case arg == "@-" || arg == "-":
		return io.ReadAll(cmd.InOrStdin())
	case strings.HasPrefix(arg, "@"):
		return os.ReadFile(strings.TrimPrefix(arg, "@")) //nolint:gosec // user-provided path is intentional
	default:
		return []byte(arg), nil
	}
}

func parseNumberArg(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid site number %q", s)
	}
	return n, nil
}

func writeJSONTo(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
