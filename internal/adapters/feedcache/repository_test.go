package feedcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleCVE(id string, modified time.Time) domain.CachedCVE {
	return domain.CachedCVE{
		CVEID:          id,
		Description:    "Remote code execution in Apache Tomcat request parsing.",
		CVSSScore:      9.8,
		CVSSVector:     "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
		CPEMatches:     []string{"cpe:2.3:a:apache:tomcat:9.0.86:*:*:*:*:*:*:*"},
		PublishedAt:    modified.AddDate(0, -1, 0),
		LastModifiedAt: modified,
	}
}

func TestUpsertAndGetCVE(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	missing, err := repo.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	cve := sampleCVE("CVE-2024-0001", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.UpsertCVE(ctx, cve))

	got, err := repo.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cve.Description, got.Description)
	assert.Equal(t, cve.CVSSScore, got.CVSSScore)
	assert.Equal(t, cve.CPEMatches, got.CPEMatches)
	assert.False(t, got.FetchedAt.IsZero())

	count, err := repo.CountCVEs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpsertCVEStaleRefetchDoesNotClobber(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	newer := sampleCVE("CVE-2024-0001", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	newer.Description = "updated description"
	require.NoError(t, repo.UpsertCVE(ctx, newer))

	stale := sampleCVE("CVE-2024-0001", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	stale.Description = "stale description"
	require.NoError(t, repo.UpsertCVE(ctx, stale))

	got, err := repo.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, "updated description", got.Description)
}

func TestUpsertCVESameModifiedRefreshes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	modified := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	first := sampleCVE("CVE-2024-0001", modified)
	require.NoError(t, repo.UpsertCVE(ctx, first))

	second := sampleCVE("CVE-2024-0001", modified)
	second.Description = "refetched description"
	require.NoError(t, repo.UpsertCVE(ctx, second))

	got, err := repo.GetCVE(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.Equal(t, "refetched description", got.Description)
}

func TestSearchCVEs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tomcat := sampleCVE("CVE-2024-0001", time.Now().UTC())
	jira := domain.CachedCVE{
		CVEID:       "CVE-2024-0003",
		Description: "SQL injection in Atlassian Jira issue search.",
		CVSSScore:   8.1,
	}
	require.NoError(t, repo.UpsertCVE(ctx, tomcat))
	require.NoError(t, repo.UpsertCVE(ctx, jira))

	results, err := repo.SearchCVEs(ctx, []string{"tomcat"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "CVE-2024-0001", results[0].CVEID)

	// Multiple keywords OR together; highest CVSS first.
	results, err = repo.SearchCVEs(ctx, []string{"tomcat", "atlassian"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "CVE-2024-0001", results[0].CVEID)

	// Case-insensitive.
	results, err = repo.SearchCVEs(ctx, []string{"APACHE"})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// No keywords, no query.
	results, err = repo.SearchCVEs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestKEVCatalogReplaceAndLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []domain.KEVEntry{
		{CVEID: "CVE-2024-0001", DateAdded: time.Now().UTC()},
		{CVEID: "CVE-2023-9999", DateAdded: time.Now().UTC()},
	}
	require.NoError(t, repo.ReplaceCatalog(ctx, entries))

	known, err := repo.IsKEV(ctx, "CVE-2024-0001")
	require.NoError(t, err)
	assert.True(t, known)

	unknown, err := repo.IsKEV(ctx, "CVE-2020-1111")
	require.NoError(t, err)
	assert.False(t, unknown)

	count, err := repo.CountKEV(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Replacing swaps the whole catalog, removals included.
	require.NoError(t, repo.ReplaceCatalog(ctx, entries[:1]))
	gone, err := repo.IsKEV(ctx, "CVE-2023-9999")
	require.NoError(t, err)
	assert.False(t, gone)
}

func TestSyncRunLedger(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	none, err := repo.LastSyncRun(ctx, domain.SyncSourceKEV)
	require.NoError(t, err)
	assert.Nil(t, none)

	first := domain.SyncRun{
		Source:      domain.SyncSourceKEV,
		StartedAt:   time.Now().UTC().Add(-time.Minute),
		CompletedAt: time.Now().UTC(),
		RecordCount: 1100,
		Status:      domain.SyncStatusSuccess,
	}
	require.NoError(t, repo.RecordSyncRun(ctx, first))

	second := first
	second.Status = domain.SyncStatusFailed
	second.RecordCount = 0
	second.Error = "catalog fetch failed"
	require.NoError(t, repo.RecordSyncRun(ctx, second))

	last, err := repo.LastSyncRun(ctx, domain.SyncSourceKEV)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, domain.SyncStatusFailed, last.Status)
	assert.Equal(t, "catalog fetch failed", last.Error)

	// The ledger is per-source.
	other, err := repo.LastSyncRun(ctx, domain.SyncSourceNVD)
	require.NoError(t, err)
	assert.Nil(t, other)
}
