package fixture

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxFixtureBytes bounds a fetched document.
const maxFixtureBytes = 8 << 20

// HTTP fetches fixtures as static files relative to a base URL.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP returns an HTTP source. A nil client uses a client with a 10s timeout.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("fixture: http source requires a base URL")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTP{baseURL: strings.TrimRight(baseURL, "/"), client: client}, nil
}

// URL returns the address of the fixture for collection.
func (h *HTTP) URL(collection string) string { return h.baseURL + "/" + FileName(collection) }

// Fetch GETs the fixture. Transport failures and non-2xx statuses report
// ErrUnavailable.
func (h *HTTP) Fetch(ctx context.Context, collection string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL(collection), nil)
	if err != nil {
		return nil, unavailable(collection, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, unavailable(collection, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, unavailable(collection, fmt.Errorf("GET %s: status %d", h.URL(collection), resp.StatusCode))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxFixtureBytes))
	if err != nil {
		return nil, unavailable(collection, err)
	}
	return b, nil
}
