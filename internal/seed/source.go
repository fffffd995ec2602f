// Package seed provides the read-only default dataset used on first load
// and on reset.
package seed

import (
	"context"
	"fmt"
	"strings"

	"placesdir/internal/blob"
)

// DefaultLocation selects the embedded dataset.
const DefaultLocation = "embedded:"

// Source fetches the raw default dataset.
type Source interface {
	// Fetch returns the raw seed document.
	Fetch(ctx context.Context) ([]byte, error)
	// Describe names the source in errors and logs.
	Describe() string
}

// Open selects a Source for location:
//
//	embedded: (or empty)        the dataset compiled into the binary
//	http://... or https://...   an HTTP GET, bypassing caches
//	file:///path or a bare path a local file
//	blob:<key>                  an object in blobs
func Open(location string, blobs blob.Store) (Source, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "" || location == DefaultLocation:
		return Embedded{}, nil
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return NewHTTP(location, nil), nil
	case strings.HasPrefix(location, "file://"):
		return File{Path: strings.TrimPrefix(location, "file://")}, nil
	case strings.HasPrefix(location, "blob:"):
		key := strings.TrimPrefix(location, "blob:")
		if key == "" {
			return nil, fmt.Errorf("seed location %q: missing blob key", location)
		}
		if blobs == nil {
			return nil, fmt.Errorf("seed location %q: no blob store configured", location)
		}
		return Blob{Store: blobs, Key: key}, nil
	case strings.Contains(location, "://"):
		return nil, fmt.Errorf("seed location %q: unsupported scheme", location)
	default:
		return File{Path: location}, nil
	}
}
