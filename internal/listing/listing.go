// Package listing derives the filtered and sorted site views shown by the
// HTTP API, the CLI and region reports.
package listing

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"placesdir/pkg/domain"
)

// Mode names a sort order.
type Mode string

const (
	NumberAsc  Mode = "number-asc"
	NumberDesc Mode = "number-desc"
	NameAsc    Mode = "name-asc"
)

// DefaultMode is used when no sort order is requested.
const DefaultMode = NumberAsc

// ParseMode validates a sort order. Blank selects DefaultMode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.TrimSpace(strings.ToLower(s))); m {
	case "":
		return DefaultMode, nil
	case NumberAsc, NumberDesc, NameAsc:
		return m, nil
	default:
		return "", fmt.Errorf("unknown sort %q: want number-asc, number-desc or name-asc", s)
	}
}

// Filter returns the sites whose number, name, city, type, address or zip
// contain query, ignoring case. A blank query returns every site.
func Filter(sites []domain.Site, query string) []domain.Site {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]domain.Site, 0, len(sites))
	for _, s := range sites {
		if q == "" || strings.Contains(haystack(s), q) {
			out = append(out, s.Clone())
		}
	}
	return out
}

func haystack(s domain.Site) string {
	number := ""
	if s.Number != 0 {
		number = strconv.Itoa(s.Number)
	}
	return strings.ToLower(strings.Join([]string{number, s.Name, s.City, s.Type, s.Address, s.Zip}, " "))
}

// Sort orders sites in place. Ties keep their existing order.
func Sort(sites []domain.Site, mode Mode) {
	switch mode {
	case NumberDesc:
		slices.SortStableFunc(sites, func(a, b domain.Site) int { return cmp.Compare(b.Number, a.Number) })
	case NameAsc:
		c := collate.New(language.English)
		slices.SortStableFunc(sites, func(a, b domain.Site) int { return c.CompareString(a.Name, b.Name) })
	default:
		slices.SortStableFunc(sites, func(a, b domain.Site) int { return cmp.Compare(a.Number, b.Number) })
	}
}

// View filters then sorts a copy of sites.
func View(sites []domain.Site, query string, mode Mode) []domain.Site {
	out := Filter(sites, query)
	Sort(out, mode)
	return out
}

// NextNumber suggests the number for a new site: one above the highest
// existing number, or 1.
func NextNumber(sites []domain.Site) int {
	return domain.Region{Sites: sites}.NextNumber()
}

// NormalizeURL turns a stored website into a link target. Values with an
// http or https scheme are kept, protocol-relative values get https and
// anything else is prefixed with https://.
func NormalizeURL(u string) string {
	s := strings.TrimSpace(u)
	lower := strings.ToLower(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return s
	case strings.HasPrefix(s, "//"):
		return "https:" + s
	default:
		return "https://" + s
	}
}
