// Package report renders a region as a Markdown document.
package report

import (
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"placesdir/internal/listing"
	"placesdir/pkg/domain"
)

// Options controls which sites appear and in what order.
type Options struct {
	Query string
	Sort  listing.Mode
}

// MarkdownWriter writes region reports to an output.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w}
}

// Write renders region and returns the number of bytes produced.
func (w *MarkdownWriter) Write(region domain.Region, opts Options) (int, error) {
	sites := listing.View(region.Sites, opts.Query, opts.Sort)
	md := markdown.NewMarkdown(w.output)

	md.H1("Region " + region.Region)
	md.PlainText("")
	w.writeSummary(md, region, sites, opts)
	w.writeSites(md, sites)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, region domain.Region, sites []domain.Site, opts Options) {
	rows := [][]string{
		{"Sites", strconv.Itoa(len(region.Sites))},
		{"Next number", strconv.Itoa(listing.NextNumber(region.Sites))},
		{"Types", cell(strings.Join(siteTypes(region.Sites), ", "))},
	}
	if strings.TrimSpace(opts.Query) != "" {
		rows = append(rows, []string{"Filter", cell(opts.Query)}, []string{"Matching", strconv.Itoa(len(sites))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSites(md *markdown.Markdown, sites []domain.Site) {
	md.H2("Sites")
	md.PlainText("")
	if len(sites) == 0 {
		md.Note("No sites to show.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(sites))
	for _, s := range sites {
		rows = append(rows, []string{
			number(s.Number),
			cell(s.Name),
			cell(s.Address),
			cell(s.City),
			cell(s.State),
			cell(s.Zip),
			cell(s.Phone),
			cell(s.Hours),
			cell(s.Type),
			websites(s.Websites),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Name", "Address", "City", "State", "Zip", "Phone", "Hours", "Type", "Websites"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range sites {
		if strings.TrimSpace(s.Description) == "" && strings.TrimSpace(s.Notes) == "" {
			continue
		}
		md.H3(number(s.Number) + " " + s.Name)
		md.PlainText("")
		var items []string
		if d := strings.TrimSpace(s.Description); d != "" {
			items = append(items, "Description: "+d)
		}
		if n := strings.TrimSpace(s.Notes); n != "" {
			items = append(items, "Notes: "+n)
		}
		md.BulletList(items...)
		md.PlainText("")
	}
}

func siteTypes(sites []domain.Site) []string {
	var out []string
	for _, s := range sites {
		t := strings.TrimSpace(s.Type)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return out
}

func number(n int) string {
	if n == 0 {
		return "-"
	}
	return "#" + strconv.Itoa(n)
}

func websites(urls []string) string {
	links := make([]string, 0, len(urls))
	for _, u := range urls {
		href := listing.NormalizeURL(u)
		if href == "" {
			continue
		}
		links = append(links, markdown.Link(cell(strings.TrimSpace(u)), href))
	}
	return strings.Join(links, "<br>")
}

// cell keeps a value on one table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r\n", " ")
	return strings.ReplaceAll(s, "\n", " ")
}
