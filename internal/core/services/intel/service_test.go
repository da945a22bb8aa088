package intel

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/adapters/breach"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feed"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feedcache"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/storage"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/matching"
	"github.com/lcalzada-xor/threatwatch/internal/core/services/vendorrisk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	svc   *Service
	store *storage.Adapter
	cache *feedcache.SQLiteRepository
	feed  *feed.FixtureClient
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewAdapter(filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cache, err := feedcache.NewSQLiteRepository(filepath.Join(dir, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	feedClient := &feed.FixtureClient{
		CVEs: []domain.CachedCVE{
			{
				CVEID:       "CVE-2024-0001",
				Description: "Remote code execution in Apache Tomcat request parsing.",
				CVSSScore:   9.8,
				CPEMatches:  []string{"cpe:2.3:a:apache:tomcat:9.0.86:*:*:*:*:*:*:*"},
			},
			{
				CVEID:       "CVE-2024-0003",
				Description: "SQL injection in Atlassian Jira issue search.",
				CVSSScore:   8.1,
			},
		},
		KEV: []domain.KEVEntry{
			{CVEID: "CVE-2024-0001", DateAdded: time.Now().UTC()},
		},
	}

	breachClient := &breach.FixtureClient{
		Breaches: map[string][]domain.VendorBreach{
			"atlassian": {
				{
					Title:      "Atlassian",
					BreachDate: time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
					RiskScore:  85,
					IsVerified: true,
				},
			},
		},
	}

	engine := matching.NewEngine(cache, cache, feedClient, matching.DefaultScoringConfig())
	agg := vendorrisk.NewAggregator(vendorrisk.DefaultPenaltyConfig())

	opts := DefaultOptions()
	opts.LookupDelay = 0

	svc := NewService(Deps{
		Assets:   store,
		Vendors:  store,
		Matches:  store,
		Scans:    store,
		Breaches: store,
		Cache:    cache,
		KEV:      cache,
		SyncRuns: cache,
		Feed:     feedClient,
		Breach:   breachClient,
		Importer: store,
		Engine:   engine,
		Risk:     agg,
	}, opts)

	return &testEnv{svc: svc, store: store, cache: cache, feed: feedClient}
}

func (e *testEnv) seedTomcat(t *testing.T) domain.Asset {
	t.Helper()
	asset := domain.Asset{
		ID:          "asset-1",
		ClientID:    "client-1",
		Name:        "Public web frontend",
		Vendor:      "Apache",
		ProductName: "Tomcat",
		Version:     "9.0.86",
	}
	require.NoError(t, e.store.SaveAsset(context.Background(), asset))
	return asset
}

func TestScanAssetCreatesSuggestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)
	require.NoError(t, env.cache.ReplaceCatalog(ctx, env.feed.KEV))

	summary, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesCreated)
	assert.Zero(t, summary.MatchesUpdated)

	matches, err := env.svc.GetAssetSuggestions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "CVE-2024-0001", m.CVEID)
	assert.Equal(t, domain.MatchStatusSuggested, m.Status)
	assert.True(t, m.IsKEV)
	assert.Equal(t, 80, m.MatchScore)
	assert.False(t, m.DiscoveredAt.IsZero())
}

func TestScanAssetRescanDoesNotDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)

	summary, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)
	assert.Zero(t, summary.MatchesCreated)
	assert.Equal(t, 1, summary.MatchesUpdated)

	matches, err := env.svc.GetAssetSuggestions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestScanAssetDismissalIsSticky(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)

	matches, err := env.svc.GetAssetSuggestions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	_, err = env.svc.UpdateMatchStatus(ctx, matches[0].ID, domain.MatchStatusDismissed, "analyst")
	require.NoError(t, err)

	// Rescan must not resurrect or modify the dismissed match.
	_, err = env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)

	after, err := env.svc.GetAssetSuggestions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, domain.MatchStatusDismissed, after[0].Status)
	assert.Equal(t, "analyst", after[0].ReviewedBy)
}

func TestUpdateMatchStatusIdempotentAndGuarded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)
	matches, _ := env.svc.GetAssetSuggestions(ctx, asset.ID)
	id := matches[0].ID

	_, err = env.svc.UpdateMatchStatus(ctx, id, domain.MatchStatusAccepted, "analyst")
	require.NoError(t, err)

	// Same status again is a no-op, not an error.
	m, err := env.svc.UpdateMatchStatus(ctx, id, domain.MatchStatusAccepted, "analyst")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusAccepted, m.Status)

	// accepted -> dismissed is forbidden.
	_, err = env.svc.UpdateMatchStatus(ctx, id, domain.MatchStatusDismissed, "analyst")
	assert.Error(t, err)

	// imported is not reachable via a status update.
	_, err = env.svc.UpdateMatchStatus(ctx, id, domain.MatchStatusImported, "analyst")
	assert.Error(t, err)

	// unknown match id
	_, err = env.svc.UpdateMatchStatus(ctx, "nope", domain.MatchStatusAccepted, "analyst")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBulkUpdateIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)
	matches, _ := env.svc.GetAssetSuggestions(ctx, asset.ID)

	result, err := env.svc.BulkUpdateMatchStatus(ctx, []string{matches[0].ID, "missing-id"}, domain.MatchStatusAccepted, "analyst")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Contains(t, result.Failed, "missing-id")
}

func TestImportIsOneWayAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)
	matches, _ := env.svc.GetAssetSuggestions(ctx, asset.ID)
	id := matches[0].ID

	vulnID, err := env.svc.ImportCVEAsVulnerability(ctx, asset.ClientID, asset.ID, "CVE-2024-0001", id)
	require.NoError(t, err)
	require.NotEmpty(t, vulnID)

	// Severity derives from the cached CVSS score.
	vuln, err := env.store.GetVulnerability(ctx, vulnID)
	require.NoError(t, err)
	require.NotNil(t, vuln)
	assert.Equal(t, "Critical", vuln.Severity)

	// Re-import returns the same record instead of creating another.
	again, err := env.svc.ImportCVEAsVulnerability(ctx, asset.ClientID, asset.ID, "CVE-2024-0001", id)
	require.NoError(t, err)
	assert.Equal(t, vulnID, again)

	m, err := env.store.GetMatch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.MatchStatusImported, m.Status)

	// A dismissed match cannot be imported.
	_, err = env.svc.UpdateMatchStatus(ctx, id, domain.MatchStatusDismissed, "analyst")
	assert.Error(t, err)
}

func TestImportByNaturalKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	_, err := env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)

	vulnID, err := env.svc.ImportCVEAsVulnerability(ctx, asset.ClientID, asset.ID, "CVE-2024-0001", "")
	require.NoError(t, err)
	assert.NotEmpty(t, vulnID)
}

func TestScanAllAssetsIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedTomcat(t)

	require.NoError(t, env.store.SaveAsset(ctx, domain.Asset{
		ID:       "asset-2",
		ClientID: "client-1",
		Vendor:   "Atlassian",
		Name:     "Issue tracker",
	}))

	// The second asset's only keyword lookups fail; the first still scans.
	env.feed.FailKeywords = map[string]error{
		"atlassian":     errors.New("feed down"),
		"issue tracker": errors.New("feed down"),
	}

	summary, err := env.svc.ScanAllAssets(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.AssetsScanned)
	assert.GreaterOrEqual(t, summary.MatchesCreated, 1)
}

func TestScanVendorAggregatesRisk(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor := domain.Vendor{
		ID:       "vendor-1",
		ClientID: "client-1",
		Name:     "Atlassian",
		Website:  "https://www.atlassian.com",
	}
	require.NoError(t, env.store.SaveVendor(ctx, vendor))

	scan, err := env.svc.ScanVendor(ctx, vendor.ClientID, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VendorScanStatusCompleted, scan.Status)
	assert.Equal(t, 1, scan.VulnerabilityCount)
	assert.Equal(t, 1, scan.BreachCount)
	// 100 - 5 (cvss 8.1) - 15 (breach risk 85)
	assert.Equal(t, 80, scan.RiskScore)

	latest, matches, breaches, err := env.svc.GetVendorSuggestions(ctx, vendor.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, scan.ID, latest.ID)
	assert.Len(t, matches, 1)
	assert.Len(t, breaches, 1)
}

func TestScanVendorBreachFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	vendor := domain.Vendor{ID: "vendor-1", ClientID: "client-1", Name: "Atlassian"}
	require.NoError(t, env.store.SaveVendor(ctx, vendor))

	failing := &breach.FixtureClient{Err: errors.New("breach api down")}
	env.svc.breach = failing

	scan, err := env.svc.ScanVendor(ctx, vendor.ClientID, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VendorScanStatusCompleted, scan.Status)
	assert.Zero(t, scan.BreachCount)
	assert.Equal(t, 1, scan.VulnerabilityCount)
}

func TestSyncKEVCatalogRecordsLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	run, err := env.svc.SyncKEVCatalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusSuccess, run.Status)
	assert.Equal(t, 1, run.RecordCount)

	stats, err := env.svc.GetKEVStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntryCount)
	require.NotNil(t, stats.LastSync)
	assert.Equal(t, domain.SyncStatusSuccess, stats.LastSync.Status)
}

func TestSyncKEVCatalogFailureRecorded(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.feed.Err = errors.New("cisa unreachable")

	run, err := env.svc.SyncKEVCatalog(ctx)
	require.Error(t, err)
	assert.Equal(t, domain.SyncStatusFailed, run.Status)
	assert.NotEmpty(t, run.Error)

	stats, err := env.svc.GetKEVStats(ctx)
	require.NoError(t, err)
	require.NotNil(t, stats.LastSync)
	assert.Equal(t, domain.SyncStatusFailed, stats.LastSync.Status)
}

func TestLookupCVEReadThrough(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cve, err := env.svc.LookupCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	require.NotNil(t, cve)
	assert.Equal(t, 9.8, cve.CVSSScore)

	// The record landed in the cache.
	cached, err := env.cache.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.NotNil(t, cached)

	// Unknown CVE is not-found, not an error.
	missing, err := env.svc.LookupCVE(ctx, "CVE-1999-9999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLookupCVEFeedFailureFallsBackToCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.LookupCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)

	// Age the TTL to zero and break the feed: the stale cached record is
	// still served.
	env.svc.opts.CacheTTL = time.Nanosecond
	env.feed.Err = errors.New("nvd down")
	time.Sleep(time.Millisecond)

	cve, err := env.svc.LookupCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	require.NotNil(t, cve)
	assert.Equal(t, "CVE-2024-0001", cve.CVEID)
}

func TestGetDailyBriefing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asset := env.seedTomcat(t)

	require.NoError(t, env.cache.ReplaceCatalog(ctx, env.feed.KEV))
	_, err := env.svc.SyncKEVCatalog(ctx)
	require.NoError(t, err)
	_, err = env.svc.ScanAsset(ctx, asset.ClientID, asset.ID)
	require.NoError(t, err)

	briefing, err := env.svc.GetDailyBriefing(ctx, asset.ClientID)
	require.NoError(t, err)
	assert.Equal(t, 1, briefing.OpenSuggested)
	assert.Equal(t, 1, briefing.NewSuggestedCount)
	assert.Equal(t, 1, briefing.KEVMatchCount)
	require.Len(t, briefing.TopMatches, 1)
	require.NotNil(t, briefing.LastKEVSync)
	assert.Nil(t, briefing.LastFeedSync)
}
