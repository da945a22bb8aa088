package intel

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/matching"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/vendorrisk"
	"github.com/lcalzada-xor/threatwatch/internal/telemetry"
)

// Options tune the service's cache and pacing policy.
type Options struct {
	// CacheTTL is how long a cached CVE record is considered fresh for
	// LookupCVE before a re-fetch is attempted.
	CacheTTL time.Duration

	// LookupDelay is the pause between consecutive assets in a batch
	// scan, respecting external feed rate limits.
	LookupDelay time.Duration

	// BriefingWindow bounds "new" matches in the daily briefing.
	BriefingWindow time.Duration

	// TopMatchLimit caps the briefing's top-match list.
	TopMatchLimit int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		CacheTTL:       24 * time.Hour,
		LookupDelay:    2 * time.Second,
		BriefingWindow: 24 * time.Hour,
		TopMatchLimit:  10,
	}
}

// Service is the threat-intelligence correlation engine: it owns the match
// lifecycle, cache-read-through CVE lookups, vendor risk scans, and KEV
// syncs. Everything the surrounding platform calls on the engine goes
// through here.
type Service struct {
	assets   ports.AssetRepository
	vendors  ports.VendorRepository
	matches  ports.AssetMatchRepository
	scans    ports.VendorScanRepository
	breaches ports.VendorBreachRepository
	cache    ports.CVECacheRepository
	kev      ports.KEVRepository
	syncRuns ports.SyncRunRepository
	feed     ports.VulnerabilityFeedClient
	breach   ports.BreachSearchClient
	importer ports.VulnerabilityImporter

	engine *matching.Engine
	risk   *vendorrisk.Aggregator
	opts   Options
}

// Deps bundles the service's collaborators.
type Deps struct {
	Assets   ports.AssetRepository
	Vendors  ports.VendorRepository
	Matches  ports.AssetMatchRepository
	Scans    ports.VendorScanRepository
	Breaches ports.VendorBreachRepository
	Cache    ports.CVECacheRepository
	KEV      ports.KEVRepository
	SyncRuns ports.SyncRunRepository
	Feed     ports.VulnerabilityFeedClient
	Breach   ports.BreachSearchClient
	Importer ports.VulnerabilityImporter
	Engine   *matching.Engine
	Risk     *vendorrisk.Aggregator
}

// NewService creates the correlation engine service.
func NewService(deps Deps, opts Options) *Service {
	if opts.TopMatchLimit <= 0 {
		opts.TopMatchLimit = DefaultOptions().TopMatchLimit
	}
	return &Service{
		assets:   deps.Assets,
		vendors:  deps.Vendors,
		matches:  deps.Matches,
		scans:    deps.Scans,
		breaches: deps.Breaches,
		cache:    deps.Cache,
		kev:      deps.KEV,
		syncRuns: deps.SyncRuns,
		feed:     deps.Feed,
		breach:   deps.Breach,
		importer: deps.Importer,
		engine:   deps.Engine,
		risk:     deps.Risk,
		opts:     opts,
	}
}

// ScanAsset correlates one asset against the vulnerability feed and upserts
// suggested matches. Reviewed matches are never altered.
func (s *Service) ScanAsset(ctx context.Context, clientID, assetID string) (*domain.ScanSummary, error) {
	summary := &domain.ScanSummary{ClientID: clientID, StartedAt: time.Now().UTC()}

	asset, err := s.assets.GetAsset(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset %s: %w", assetID, err)
	}
	if asset == nil || asset.ClientID != clientID {
		return nil, fmt.Errorf("asset %s for client %s: %w", assetID, clientID, domain.ErrNotFound)
	}

	candidates, err := s.engine.MatchAsset(ctx, *asset)
	if err != nil {
		return nil, fmt.Errorf("matching failed for asset %s: %w", assetID, err)
	}

	for _, c := range candidates {
		created, err := s.matches.UpsertSuggestion(ctx, domain.AssetCVEMatch{
			ClientID:    clientID,
			AssetID:     assetID,
			CVEID:       c.CVE.CVEID,
			MatchScore:  c.Score,
			MatchReason: c.Reason,
			IsKEV:       c.IsKEV,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to persist match %s/%s: %w", assetID, c.CVE.CVEID, err)
		}
		if created {
			summary.MatchesCreated++
			telemetry.MatchesCreated.Inc()
		} else {
			summary.MatchesUpdated++
		}
	}

	summary.AssetsScanned = 1
	summary.CompletedAt = time.Now().UTC()
	telemetry.ScansTotal.WithLabelValues("asset").Inc()
	return summary, nil
}

// ScanAllAssets runs the asset path over a client's whole inventory,
// sequentially. A failing asset is logged and skipped; the rest of the
// inventory still gets scanned.
func (s *Service) ScanAllAssets(ctx context.Context, clientID string) (*domain.ScanSummary, error) {
	summary := &domain.ScanSummary{ClientID: clientID, StartedAt: time.Now().UTC()}

	assets, err := s.assets.ListAssetsByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets for client %s: %w", clientID, err)
	}

	for i, asset := range assets {
		if i > 0 && s.opts.LookupDelay > 0 {
			select {
			case <-ctx.Done():
				summary.CompletedAt = time.Now().UTC()
				return summary, ctx.Err()
			case <-time.After(s.opts.LookupDelay):
			}
		}

		assetSummary, err := s.ScanAsset(ctx, clientID, asset.ID)
		if err != nil {
			log.Printf("[SCAN] asset %s skipped: %v", asset.ID, err)
			summary.AssetsSkipped++
			continue
		}
		summary.AssetsScanned++
		summary.MatchesCreated += assetSummary.MatchesCreated
		summary.MatchesUpdated += assetSummary.MatchesUpdated
	}

	summary.CompletedAt = time.Now().UTC()
	telemetry.ScansTotal.WithLabelValues("inventory").Inc()
	return summary, nil
}

// GetAssetSuggestions returns an asset's matches, KEV first then by score.
func (s *Service) GetAssetSuggestions(ctx context.Context, assetID string) ([]domain.AssetCVEMatch, error) {
	return s.matches.ListByAsset(ctx, assetID)
}

// GetClientSuggestions returns a client's open suggested matches.
func (s *Service) GetClientSuggestions(ctx context.Context, clientID string) ([]domain.AssetCVEMatch, error) {
	return s.matches.ListByClient(ctx, clientID, domain.MatchStatusSuggested)
}

// UpdateMatchStatus applies a review decision. Re-applying the current
// status is an idempotent no-op; transitions the state machine forbids are
// errors.
func (s *Service) UpdateMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, reviewedBy string) (*domain.AssetCVEMatch, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown match status %q", status)
	}
	if status == domain.MatchStatusImported {
		return nil, fmt.Errorf("imported is reached through import, not a status update")
	}

	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("match %s: %w", matchID, domain.ErrNotFound)
	}

	if match.Status == status {
		return match, nil
	}
	if !match.Status.CanTransition(status) {
		return nil, fmt.Errorf("cannot move match %s from %s to %s", matchID, match.Status, status)
	}

	now := time.Now().UTC()
	if err := s.matches.UpdateStatus(ctx, matchID, status, reviewedBy, now); err != nil {
		return nil, err
	}

	match.Status = status
	match.ReviewedBy = reviewedBy
	match.ReviewedAt = &now
	return match, nil
}

// BulkUpdateMatchStatus applies one review decision across many matches.
// Each id succeeds or fails independently.
func (s *Service) BulkUpdateMatchStatus(ctx context.Context, matchIDs []string, status domain.MatchStatus, reviewedBy string) (*domain.BulkUpdateResult, error) {
	result := &domain.BulkUpdateResult{Failed: make(map[string]string)}

	for _, id := range matchIDs {
		if _, err := s.UpdateMatchStatus(ctx, id, status, reviewedBy); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated++
	}

	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}

// ImportCVEAsVulnerability promotes a match into a vulnerability-tracking
// record. The transition is one-way: re-importing returns the existing
// linked id without creating a second record.
func (s *Service) ImportCVEAsVulnerability(ctx context.Context, clientID, assetID, cveID, matchID string) (string, error) {
	var match *domain.AssetCVEMatch
	var err error
	if matchID != "" {
		match, err = s.matches.GetMatch(ctx, matchID)
	} else {
		match, err = s.matches.FindMatch(ctx, clientID, assetID, cveID)
	}
	if err != nil {
		return "", err
	}
	if match == nil {
		return "", fmt.Errorf("match for client %s asset %s cve %s: %w", clientID, assetID, cveID, domain.ErrNotFound)
	}

	if match.Status == domain.MatchStatusImported {
		return match.ImportedVulnerabilityID, nil
	}
	if !match.Status.CanTransition(domain.MatchStatusImported) {
		return "", fmt.Errorf("cannot import match %s in status %s", match.ID, match.Status)
	}

	cve, err := s.LookupCVE(ctx, match.CVEID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", match.CVEID, err)
	}

	vuln := domain.ImportedVulnerability{
		ID:       uuid.New().String(),
		ClientID: match.ClientID,
		AssetID:  match.AssetID,
		CVEID:    match.CVEID,
		Title:    match.CVEID,
	}
	if cve != nil {
		vuln.Description = cve.Description
		vuln.CVSSScore = cve.CVSSScore
		vuln.Severity = domain.SeverityBucket(cve.CVSSScore)
	} else {
		vuln.Severity = domain.SeverityBucket(0)
	}

	vulnID, err := s.importer.CreateVulnerability(ctx, vuln)
	if err != nil {
		return "", fmt.Errorf("failed to create vulnerability record: %w", err)
	}

	if err := s.matches.SetImported(ctx, match.ID, vulnID, time.Now().UTC()); err != nil {
		return "", err
	}
	return vulnID, nil
}

// ScanVendor runs the vendor path: CVE keyword matching seeded from the
// vendor name plus breach-history lookup, aggregated into one bounded risk
// score. A breach lookup failure degrades the scan, it does not abort it.
func (s *Service) ScanVendor(ctx context.Context, clientID, vendorID string) (*domain.VendorScan, error) {
	vendor, err := s.vendors.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendor %s: %w", vendorID, err)
	}
	if vendor == nil || vendor.ClientID != clientID {
		return nil, fmt.Errorf("vendor %s for client %s: %w", vendorID, clientID, domain.ErrNotFound)
	}

	scan := domain.VendorScan{
		ID:       uuid.New().String(),
		ClientID: clientID,
		VendorID: vendorID,
		Status:   domain.VendorScanStatusRunning,
		ScanDate: time.Now().UTC(),
	}
	if err := s.scans.CreateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	candidates, err := s.engine.MatchVendor(ctx, *vendor)
	if err != nil {
		log.Printf("[SCAN] vendor %s CVE matching failed: %v", vendorID, err)
	}

	cveMatches := make([]domain.VendorCVEMatch, 0, len(candidates))
	for _, c := range candidates {
		cveMatches = append(cveMatches, domain.VendorCVEMatch{
			ScanID:      scan.ID,
			CVEID:       c.CVE.CVEID,
			MatchScore:  c.Score,
			MatchReason: c.Reason,
			CVSSScore:   c.CVE.CVSSScore,
		})
	}
	if err := s.scans.AddCVEMatches(ctx, cveMatches); err != nil {
		return nil, fmt.Errorf("failed to persist vendor matches: %w", err)
	}

	var vendorBreaches []domain.VendorBreach
	if s.breach != nil {
		found, err := s.breach.SearchBreaches(ctx, vendor.Name, vendor.Website)
		if err != nil {
			log.Printf("[SCAN] vendor %s breach lookup failed: %v", vendorID, err)
		}
		for _, b := range found {
			b.VendorID = vendorID
			if err := s.breaches.UpsertBreach(ctx, b); err != nil {
				log.Printf("[SCAN] failed to persist breach %q: %v", b.Title, err)
				continue
			}
			vendorBreaches = append(vendorBreaches, b)
		}
	}

	scan.VulnerabilityCount = len(cveMatches)
	scan.BreachCount = len(vendorBreaches)
	scan.RiskScore = s.risk.Score(cveMatches, vendorBreaches)
	scan.Status = domain.VendorScanStatusCompleted
	if err := s.scans.UpdateScan(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to finalize scan: %w", err)
	}

	telemetry.ScansTotal.WithLabelValues("vendor").Inc()
	return &scan, nil
}

// GetVendorSuggestions returns the vendor's latest scan with its findings.
func (s *Service) GetVendorSuggestions(ctx context.Context, vendorID string) (*domain.VendorScan, []domain.VendorCVEMatch, []domain.VendorBreach, error) {
	scan, err := s.scans.LatestScanByVendor(ctx, vendorID)
	if err != nil {
		return nil, nil, nil, err
	}
	if scan == nil {
		return nil, nil, nil, nil
	}

	matches, err := s.scans.ListCVEMatchesByScan(ctx, scan.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	breaches, err := s.breaches.ListBreachesByVendor(ctx, vendorID)
	if err != nil {
		return nil, nil, nil, err
	}
	return scan, matches, breaches, nil
}

// SyncKEVCatalog fetches the full KEV catalog, replaces the local cache,
// and appends one ledger row. Fetch failures are recorded on the ledger and
// returned.
func (s *Service) SyncKEVCatalog(ctx context.Context) (*domain.SyncRun, error) {
	run := domain.SyncRun{
		Source:    domain.SyncSourceKEV,
		StartedAt: time.Now().UTC(),
	}

	entries, err := s.feed.FetchKEVCatalog(ctx)
	if err != nil {
		run.CompletedAt = time.Now().UTC()
		run.Status = domain.SyncStatusFailed
		run.Error = err.Error()
		if recErr := s.syncRuns.RecordSyncRun(ctx, run); recErr != nil {
			log.Printf("[KEV-SYNC] failed to record failed run: %v", recErr)
		}
		telemetry.SyncRuns.WithLabelValues(domain.SyncSourceKEV, domain.SyncStatusFailed).Inc()
		return &run, fmt.Errorf("kev catalog fetch failed: %w", err)
	}

	if err := s.kev.ReplaceCatalog(ctx, entries); err != nil {
		run.CompletedAt = time.Now().UTC()
		run.Status = domain.SyncStatusFailed
		run.Error = err.Error()
		if recErr := s.syncRuns.RecordSyncRun(ctx, run); recErr != nil {
			log.Printf("[KEV-SYNC] failed to record failed run: %v", recErr)
		}
		telemetry.SyncRuns.WithLabelValues(domain.SyncSourceKEV, domain.SyncStatusFailed).Inc()
		return &run, fmt.Errorf("kev catalog replace failed: %w", err)
	}

	run.CompletedAt = time.Now().UTC()
	run.RecordCount = len(entries)
	run.Status = domain.SyncStatusSuccess
	if err := s.syncRuns.RecordSyncRun(ctx, run); err != nil {
		return &run, fmt.Errorf("failed to record sync run: %w", err)
	}

	telemetry.SyncRuns.WithLabelValues(domain.SyncSourceKEV, domain.SyncStatusSuccess).Inc()
	log.Printf("[KEV-SYNC] cached %d known exploited vulnerabilities", len(entries))
	return &run, nil
}

// GetKEVStats summarizes the local KEV cache.
func (s *Service) GetKEVStats(ctx context.Context) (*domain.KEVStats, error) {
	count, err := s.kev.CountKEV(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.syncRuns.LastSyncRun(ctx, domain.SyncSourceKEV)
	if err != nil {
		return nil, err
	}
	return &domain.KEVStats{EntryCount: count, LastSync: last, AsOf: time.Now().UTC()}, nil
}

// LookupCVE is the cache-read-through lookup: cached and fresh wins,
// otherwise fetch, normalize, upsert, return. A CVE the feed does not know
// is (nil, nil), never an error.
func (s *Service) LookupCVE(ctx context.Context, cveID string) (*domain.CachedCVE, error) {
	cached, err := s.cache.GetCVE(ctx, cveID)
	if err != nil {
		return nil, err
	}
	if cached != nil && (s.opts.CacheTTL <= 0 || time.Since(cached.FetchedAt) < s.opts.CacheTTL) {
		return cached, nil
	}

	if s.feed == nil {
		return cached, nil
	}

	fetched, err := s.feed.GetByID(ctx, cveID)
	if err != nil {
		// Feed unavailability degrades to the stale cached record, or
		// to not-found when there is none.
		log.Printf("[LOOKUP] feed lookup for %s failed: %v", cveID, err)
		return cached, nil
	}
	if fetched == nil {
		return cached, nil
	}

	if err := s.cache.UpsertCVE(ctx, *fetched); err != nil {
		log.Printf("[LOOKUP] failed to cache %s: %v", cveID, err)
	}
	return fetched, nil
}

// GetDailyBriefing composes the per-client summary read model.
func (s *Service) GetDailyBriefing(ctx context.Context, clientID string) (*domain.DailyBriefing, error) {
	now := time.Now().UTC()
	briefing := &domain.DailyBriefing{ClientID: clientID, GeneratedAt: now}

	suggested, err := s.matches.ListByClient(ctx, clientID, domain.MatchStatusSuggested)
	if err != nil {
		return nil, err
	}
	briefing.OpenSuggested = len(suggested)

	window := now.Add(-s.opts.BriefingWindow)
	for _, m := range suggested {
		if m.DiscoveredAt.After(window) {
			briefing.NewSuggestedCount++
		}
		if m.IsKEV {
			briefing.KEVMatchCount++
		}
	}

	if len(suggested) > s.opts.TopMatchLimit {
		suggested = suggested[:s.opts.TopMatchLimit]
	}
	briefing.TopMatches = suggested

	if briefing.LastKEVSync, err = s.syncRuns.LastSyncRun(ctx, domain.SyncSourceKEV); err != nil {
		return nil, err
	}
	if briefing.LastFeedSync, err = s.syncRuns.LastSyncRun(ctx, domain.SyncSourceNVD); err != nil {
		return nil, err
	}
	return briefing, nil
}

// Ensure interface compliance
var _ ports.IntelService = (*Service)(nil)
