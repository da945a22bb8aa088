package matching

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	goversion "github.com/hashicorp/go-version"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

// ScoringConfig holds the match scoring weights. The weights are policy, not
// invariants; they are injected from configuration rather than inlined.
type ScoringConfig struct {
	KeywordWeight int // added per matched keyword token
	CPEBonus      int // added when a feed CPE criteria equals the asset's generated CPE
	VersionBonus  int // added on an exact version match within the affected-range criteria
}

// DefaultScoringConfig returns the documented default weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		KeywordWeight: 15,
		CPEBonus:      30,
		VersionBonus:  20,
	}
}

// Candidate is a scored CVE candidate for an asset or vendor, before
// persistence and deduplication against prior runs.
type Candidate struct {
	CVE             domain.CachedCVE
	Score           int // 0-100
	Reason          string
	IsKEV           bool
	MatchedKeywords []string
}

// Engine correlates assets and vendors against cached or freshly fetched
// vulnerability records.
type Engine struct {
	cache ports.CVECacheRepository
	kev   ports.KEVRepository
	feed  ports.VulnerabilityFeedClient
	cfg   ScoringConfig
}

// NewEngine creates a matching engine. feed may be nil, in which case only
// cached records are considered.
func NewEngine(cache ports.CVECacheRepository, kev ports.KEVRepository, feed ports.VulnerabilityFeedClient, cfg ScoringConfig) *Engine {
	return &Engine{cache: cache, kev: kev, feed: feed, cfg: cfg}
}

// MatchAsset runs the asset path: keyword set plus, when vendor and product
// are present, a generated CPE identifier. Candidates are sorted by isKev
// descending, then score descending.
func (e *Engine) MatchAsset(ctx context.Context, asset domain.Asset) ([]Candidate, error) {
	keywords := ExtractKeywordsFromAsset(asset)
	if len(keywords) == 0 {
		return nil, nil
	}

	cpe := GenerateCPEString(asset.Vendor, asset.ProductName, asset.Version)

	records, err := e.collectCandidates(ctx, keywords)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, cve := range records {
		c := e.score(cve, keywords, cpe, asset.Version)
		if c.Score <= 0 {
			continue
		}
		c.IsKEV = e.isKEV(ctx, cve.CVEID)
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)
	return candidates, nil
}

// MatchVendor runs the vendor path: a broader keyword search seeded from the
// vendor name alone, with no product or version narrowing.
func (e *Engine) MatchVendor(ctx context.Context, vendor domain.Vendor) ([]Candidate, error) {
	name := strings.ToLower(strings.TrimSpace(vendor.Name))
	if name == "" {
		return nil, nil
	}
	keywords := []string{name}

	records, err := e.collectCandidates(ctx, keywords)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, cve := range records {
		c := e.score(cve, keywords, "", "")
		if c.Score <= 0 {
			continue
		}
		c.IsKEV = e.isKEV(ctx, cve.CVEID)
		candidates = append(candidates, c)
	}

	sortCandidates(candidates)
	return candidates, nil
}

// collectCandidates reads the cache first and falls back to the feed client
// per keyword. A failed keyword lookup is logged and skipped; it must not
// abort the remaining keywords.
func (e *Engine) collectCandidates(ctx context.Context, keywords []string) ([]domain.CachedCVE, error) {
	byID := make(map[string]domain.CachedCVE)

	cached, err := e.cache.SearchCVEs(ctx, keywords)
	if err != nil {
		return nil, fmt.Errorf("cache search failed: %w", err)
	}
	for _, cve := range cached {
		byID[cve.CVEID] = cve
	}

	if len(byID) == 0 && e.feed != nil {
		for _, kw := range keywords {
			results, err := e.feed.SearchByKeyword(ctx, kw)
			if err != nil {
				log.Printf("[MATCH] feed search for %q failed, skipping: %v", kw, err)
				continue
			}
			for _, cve := range results {
				if err := e.cache.UpsertCVE(ctx, cve); err != nil {
					log.Printf("[MATCH] failed to cache %s: %v", cve.CVEID, err)
				}
				byID[cve.CVEID] = cve
			}
		}
	}

	records := make([]domain.CachedCVE, 0, len(byID))
	for _, cve := range byID {
		records = append(records, cve)
	}
	return records, nil
}

// score computes a 0-100 match score: keyword overlap is the primary driver,
// with fixed bonuses for a CPE equality and an exact version match.
func (e *Engine) score(cve domain.CachedCVE, keywords []string, assetCPE, assetVersion string) Candidate {
	desc := strings.ToLower(cve.Description)

	var matched []string
	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			matched = append(matched, kw)
		}
	}

	score := len(matched) * e.cfg.KeywordWeight
	var reasons []string
	if len(matched) > 0 {
		reasons = append(reasons, "matched keywords: "+strings.Join(matched, ", "))
	}

	if assetCPE != "" && cpeCriteriaMatch(cve.CPEMatches, assetCPE) {
		score += e.cfg.CPEBonus
		reasons = append(reasons, "cpe match: "+assetCPE)
	}

	if assetVersion != "" && versionCriteriaMatch(cve.CPEMatches, assetVersion) {
		score += e.cfg.VersionBonus
		reasons = append(reasons, "exact version match: "+assetVersion)
	}

	if score > 100 {
		score = 100
	}

	return Candidate{
		CVE:             cve,
		Score:           score,
		Reason:          strings.Join(reasons, "; "),
		MatchedKeywords: matched,
	}
}

func (e *Engine) isKEV(ctx context.Context, cveID string) bool {
	if e.kev == nil {
		return false
	}
	known, err := e.kev.IsKEV(ctx, cveID)
	if err != nil {
		log.Printf("[MATCH] KEV lookup for %s failed: %v", cveID, err)
		return false
	}
	return known
}

// cpeCriteriaMatch reports whether any feed criteria string equals the
// asset's generated CPE.
func cpeCriteriaMatch(criteria []string, assetCPE string) bool {
	for _, c := range criteria {
		if strings.EqualFold(strings.TrimSpace(c), assetCPE) {
			return true
		}
	}
	return false
}

// versionCriteriaMatch reports whether the asset's exact version appears as
// the version field of any CPE 2.3 criteria string. Semantic comparison
// covers cosmetic differences such as "9.0.86" vs "9.0.86.0".
func versionCriteriaMatch(criteria []string, assetVersion string) bool {
	want, wantErr := goversion.NewVersion(assetVersion)

	for _, c := range criteria {
		parts := strings.Split(c, ":")
		if len(parts) < 6 {
			continue
		}
		v := parts[5]
		if v == "*" || v == "-" || v == "" {
			continue
		}
		if strings.EqualFold(v, assetVersion) {
			return true
		}
		if wantErr == nil {
			if got, err := goversion.NewVersion(v); err == nil && got.Equal(want) {
				return true
			}
		}
	}
	return false
}

func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].IsKEV != candidates[j].IsKEV {
			return candidates[i].IsKEV
		}
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].CVE.CVEID < candidates[j].CVE.CVEID
	})
}
