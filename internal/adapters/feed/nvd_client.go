package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/telemetry"
)

const (
	// DefaultNVDBaseURL is the NVD CVE API 2.0 endpoint.
	DefaultNVDBaseURL = "https://services.nvd.nist.gov/rest/json/cves/2.0"

	defaultTimeout  = 5 * time.Second
	resultsPerPage  = 20
	maxResponseSize = 20 * 1024 * 1024 // 20 MB
)

// NVDClient queries the NVD CVE API 2.0 by keyword or CVE id. Calls use a
// short timeout and do not retry; a failed lookup is the caller's signal to
// skip the candidate, not to abort the run.
type NVDClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewNVDClient creates a feed client. baseURL defaults to the public NVD
// endpoint; apiKey is optional and raises NVD's rate limits when set.
func NewNVDClient(baseURL, apiKey string, timeout time.Duration) *NVDClient {
	if baseURL == "" {
		baseURL = DefaultNVDBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &NVDClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// SearchByKeyword returns normalized records for CVEs whose indexed text
// matches the keyword.
func (c *NVDClient) SearchByKeyword(ctx context.Context, keyword string) ([]domain.CachedCVE, error) {
	params := url.Values{}
	params.Set("keywordSearch", keyword)
	params.Set("resultsPerPage", fmt.Sprintf("%d", resultsPerPage))

	resp, err := c.get(ctx, params)
	if err != nil {
		telemetry.FeedRequests.WithLabelValues("nvd", "error").Inc()
		return nil, err
	}
	telemetry.FeedRequests.WithLabelValues("nvd", "ok").Inc()

	records := make([]domain.CachedCVE, 0, len(resp.Vulnerabilities))
	for _, v := range resp.Vulnerabilities {
		records = append(records, normalize(v.CVE))
	}
	return records, nil
}

// GetByID returns the normalized record for a CVE id, or nil if the feed has
// no such record.
func (c *NVDClient) GetByID(ctx context.Context, cveID string) (*domain.CachedCVE, error) {
	params := url.Values{}
	params.Set("cveId", cveID)

	resp, err := c.get(ctx, params)
	if err != nil {
		telemetry.FeedRequests.WithLabelValues("nvd", "error").Inc()
		return nil, err
	}
	telemetry.FeedRequests.WithLabelValues("nvd", "ok").Inc()

	if len(resp.Vulnerabilities) == 0 {
		return nil, nil
	}
	record := normalize(resp.Vulnerabilities[0].CVE)
	return &record, nil
}

func (c *NVDClient) get(ctx context.Context, params url.Values) (*nvdResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("apiKey", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("feed returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read feed response: %w", err)
	}

	var parsed nvdResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("malformed feed response: %w", err)
	}
	return &parsed, nil
}

// NVD CVE API 2.0 wire format, reduced to the fields we normalize.

type nvdResponse struct {
	Vulnerabilities []struct {
		CVE nvdCVE `json:"cve"`
	} `json:"vulnerabilities"`
}

type nvdCVE struct {
	ID           string `json:"id"`
	Published    string `json:"published"`
	LastModified string `json:"lastModified"`
	Descriptions []struct {
		Lang  string `json:"lang"`
		Value string `json:"value"`
	} `json:"descriptions"`
	Metrics struct {
		CVSSMetricV31 []nvdMetric `json:"cvssMetricV31"`
		CVSSMetricV2  []nvdMetric `json:"cvssMetricV2"`
	} `json:"metrics"`
	Configurations []struct {
		Nodes []struct {
			CPEMatch []struct {
				Criteria   string `json:"criteria"`
				Vulnerable bool   `json:"vulnerable"`
			} `json:"cpeMatch"`
		} `json:"nodes"`
	} `json:"configurations"`
}

type nvdMetric struct {
	CVSSData struct {
		BaseScore    float64 `json:"baseScore"`
		VectorString string  `json:"vectorString"`
	} `json:"cvssData"`
}

// normalize extracts the English description, prefers CVSS v3.1 over v2.0,
// and flattens the vulnerable CPE criteria.
func normalize(cve nvdCVE) domain.CachedCVE {
	record := domain.CachedCVE{
		CVEID:     cve.ID,
		FetchedAt: time.Now().UTC(),
	}

	for _, d := range cve.Descriptions {
		if d.Lang == "en" {
			record.Description = d.Value
			break
		}
	}
	if record.Description == "" && len(cve.Descriptions) > 0 {
		record.Description = cve.Descriptions[0].Value
	}

	if len(cve.Metrics.CVSSMetricV31) > 0 {
		record.CVSSScore = cve.Metrics.CVSSMetricV31[0].CVSSData.BaseScore
		record.CVSSVector = cve.Metrics.CVSSMetricV31[0].CVSSData.VectorString
	} else if len(cve.Metrics.CVSSMetricV2) > 0 {
		record.CVSSScore = cve.Metrics.CVSSMetricV2[0].CVSSData.BaseScore
		record.CVSSVector = cve.Metrics.CVSSMetricV2[0].CVSSData.VectorString
	}

	for _, config := range cve.Configurations {
		for _, node := range config.Nodes {
			for _, m := range node.CPEMatch {
				if m.Vulnerable {
					record.CPEMatches = append(record.CPEMatches, m.Criteria)
				}
			}
		}
	}

	record.PublishedAt, _ = time.Parse("2006-01-02T15:04:05.000", cve.Published)
	record.LastModifiedAt, _ = time.Parse("2006-01-02T15:04:05.000", cve.LastModified)

	return record
}
