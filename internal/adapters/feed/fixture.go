package feed

import (
	"context"
	"strings"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

// FixtureClient is a deterministic in-memory feed used in mock mode and in
// tests. Keyword search matches against record descriptions the same way
// the cache does.
type FixtureClient struct {
	CVEs []domain.CachedCVE
	KEV  []domain.KEVEntry

	// Err, when set, is returned by every call. FailKeywords restricts
	// the failure to searches for specific keywords, to exercise
	// partial-failure isolation.
	Err          error
	FailKeywords map[string]error
}

func (f *FixtureClient) SearchByKeyword(ctx context.Context, keyword string) ([]domain.CachedCVE, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	if err, ok := f.FailKeywords[keyword]; ok {
		return nil, err
	}

	kw := strings.ToLower(keyword)
	var results []domain.CachedCVE
	for _, cve := range f.CVEs {
		if strings.Contains(strings.ToLower(cve.Description), kw) {
			results = append(results, cve)
		}
	}
	return results, nil
}

func (f *FixtureClient) GetByID(ctx context.Context, cveID string) (*domain.CachedCVE, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	for i := range f.CVEs {
		if f.CVEs[i].CVEID == cveID {
			cve := f.CVEs[i]
			return &cve, nil
		}
	}
	return nil, nil
}

func (f *FixtureClient) FetchKEVCatalog(ctx context.Context) ([]domain.KEVEntry, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.KEV, nil
}

var _ ports.VulnerabilityFeedClient = (*FixtureClient)(nil)
