package seed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxSeedBytes bounds the seed document read over HTTP.
const maxSeedBytes = 32 << 20

// HTTP fetches the seed document with a GET that bypasses caches.
type HTTP struct {
	URL    string
	Client *http.Client
}

// NewHTTP returns an HTTP source; a nil client gets a 30s timeout default.
func NewHTTP(url string, client *http.Client) HTTP {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return HTTP{URL: url, Client: client}
}

// Fetch performs the GET. Any non-2xx status is an error.
func (h HTTP) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: unexpected status %s", h.URL, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSeedBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxSeedBytes {
		return nil, fmt.Errorf("GET %s: seed larger than %d bytes", h.URL, maxSeedBytes)
	}
	return body, nil
}

func (h HTTP) Describe() string { return h.URL }
