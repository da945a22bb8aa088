package breach

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

const (
	defaultTimeout  = 5 * time.Second
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
)

// sensitiveDataClasses raise a breach's internal risk score when exposed.
var sensitiveDataClasses = map[string]int{
	"passwords":                      25,
	"credit cards":                   25,
	"bank account numbers":           25,
	"social security numbers":        25,
	"health records":                 20,
	"security questions and answers": 15,
	"auth tokens":                    15,
}

// HTTPClient queries a breach-history search collaborator (HIBP-compatible
// shape). Lookups use a short timeout and do not retry.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// SearchBreaches returns candidate breach records for a vendor. The vendor's
// website domain is the primary search key; the name is a fallback.
func (c *HTTPClient) SearchBreaches(ctx context.Context, vendorName, website string) ([]domain.VendorBreach, error) {
	params := url.Values{}
	if domainOf(website) != "" {
		params.Set("domain", domainOf(website))
	} else {
		params.Set("name", vendorName)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/breaches?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("hibp-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("breach search failed: %w", err)
	}
	defer resp.Body.Close()

	// Not found means no breach history, not an error.
	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("breach search returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read breach response: %w", err)
	}

	var wire []breachRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("malformed breach response: %w", err)
	}

	breaches := make([]domain.VendorBreach, 0, len(wire))
	for _, b := range wire {
		date, _ := time.Parse("2006-01-02", b.BreachDate)
		breaches = append(breaches, domain.VendorBreach{
			Title:         b.Title,
			BreachDate:    date,
			AffectedCount: b.PwnCount,
			DataClasses:   b.DataClasses,
			RiskScore:     ScoreBreach(b.PwnCount, b.DataClasses, b.IsVerified),
			Source:        "hibp",
			IsVerified:    b.IsVerified,
			Status:        "open",
		})
	}
	return breaches, nil
}

type breachRecord struct {
	Title       string   `json:"Title"`
	BreachDate  string   `json:"BreachDate"`
	PwnCount    int64    `json:"PwnCount"`
	DataClasses []string `json:"DataClasses"`
	IsVerified  bool     `json:"IsVerified"`
}

// ScoreBreach computes the internal 0-100 breach risk score from scale,
// exposed data categories, and verification status.
func ScoreBreach(affected int64, dataClasses []string, verified bool) int {
	score := 20

	switch {
	case affected >= 100_000_000:
		score += 40
	case affected >= 1_000_000:
		score += 30
	case affected >= 10_000:
		score += 20
	case affected > 0:
		score += 10
	}

	worst := 0
	for _, dc := range dataClasses {
		if w, ok := sensitiveDataClasses[strings.ToLower(dc)]; ok && w > worst {
			worst = w
		}
	}
	score += worst

	if verified {
		score += 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// domainOf strips scheme and path from a website URL.
func domainOf(website string) string {
	website = strings.TrimSpace(website)
	if website == "" {
		return ""
	}
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var _ ports.BreachSearchClient = (*HTTPClient)(nil)
