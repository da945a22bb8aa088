package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/telemetry"
)

const (
	// DefaultKEVURL is CISA's published KEV catalog.
	DefaultKEVURL = "https://www.cisa.gov/sites/default/files/feeds/known_exploited_vulnerabilities.json"

	// DefaultKEVFallbackURL is the GitHub mirror used when CISA is
	// unreachable.
	DefaultKEVFallbackURL = "https://raw.githubusercontent.com/cisagov/kev-data/main/known_exploited_vulnerabilities.json"

	kevTimeout = 30 * time.Second
)

// KEVClient downloads the full CISA Known Exploited Vulnerabilities catalog.
// Bulk sync failures are reported as errors; the caller records them on the
// sync ledger.
type KEVClient struct {
	url         string
	fallbackURL string
	client      *http.Client
}

// NewKEVClient creates a catalog client. Empty URLs fall back to the CISA
// defaults.
func NewKEVClient(primaryURL, fallbackURL string) *KEVClient {
	if primaryURL == "" {
		primaryURL = DefaultKEVURL
	}
	if fallbackURL == "" {
		fallbackURL = DefaultKEVFallbackURL
	}
	return &KEVClient{
		url:         primaryURL,
		fallbackURL: fallbackURL,
		client:      &http.Client{Timeout: kevTimeout},
	}
}

// FetchKEVCatalog returns the full current catalog, trying the primary URL
// first and the mirror second.
func (c *KEVClient) FetchKEVCatalog(ctx context.Context) ([]domain.KEVEntry, error) {
	entries, err := c.fetchFrom(ctx, c.url)
	if err == nil {
		telemetry.FeedRequests.WithLabelValues("cisa_kev", "ok").Inc()
		return entries, nil
	}

	entries, err2 := c.fetchFrom(ctx, c.fallbackURL)
	if err2 == nil {
		telemetry.FeedRequests.WithLabelValues("cisa_kev", "ok").Inc()
		return entries, nil
	}

	telemetry.FeedRequests.WithLabelValues("cisa_kev", "error").Inc()
	return nil, fmt.Errorf("primary (%s): %w; fallback (%s): %v", c.url, err, c.fallbackURL, err2)
}

func (c *KEVClient) fetchFrom(ctx context.Context, url string) ([]domain.KEVEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var catalog kevCatalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("malformed catalog: %w", err)
	}

	entries := make([]domain.KEVEntry, 0, len(catalog.Vulnerabilities))
	for _, v := range catalog.Vulnerabilities {
		added, _ := time.Parse("2006-01-02", v.DateAdded)
		entries = append(entries, domain.KEVEntry{CVEID: v.CVEID, DateAdded: added})
	}
	return entries, nil
}

type kevCatalog struct {
	Vulnerabilities []struct {
		CVEID     string `json:"cveID"`
		DateAdded string `json:"dateAdded"`
	} `json:"vulnerabilities"`
}
