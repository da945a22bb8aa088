package ports

import (
	"context"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// CVECacheRepository is the local store of previously fetched CVE records.
type CVECacheRepository interface {
	// GetCVE returns the cached record, or nil if not cached.
	GetCVE(ctx context.Context, cveID string) (*domain.CachedCVE, error)

	// UpsertCVE inserts the record or refreshes an existing one. An
	// existing record is only overwritten when the incoming
	// LastModifiedAt is newer.
	UpsertCVE(ctx context.Context, cve domain.CachedCVE) error

	// SearchCVEs returns cached records whose description matches any of
	// the keywords.
	SearchCVEs(ctx context.Context, keywords []string) ([]domain.CachedCVE, error)

	CountCVEs(ctx context.Context) (int, error)
}

// KEVRepository holds the local copy of the KEV catalog.
type KEVRepository interface {
	IsKEV(ctx context.Context, cveID string) (bool, error)

	// ReplaceCatalog swaps the whole cached catalog for the given entries.
	ReplaceCatalog(ctx context.Context, entries []domain.KEVEntry) error

	CountKEV(ctx context.Context) (int, error)
}

// SyncRunRepository is the append-only sync ledger.
type SyncRunRepository interface {
	RecordSyncRun(ctx context.Context, run domain.SyncRun) error
	LastSyncRun(ctx context.Context, source string) (*domain.SyncRun, error)
}

// AssetRepository reads the inventory owned by the surrounding platform.
type AssetRepository interface {
	GetAsset(ctx context.Context, assetID string) (*domain.Asset, error)
	ListAssetsByClient(ctx context.Context, clientID string) ([]domain.Asset, error)
	ListClientIDs(ctx context.Context) ([]string, error)
}

// VendorRepository reads third-party vendor records.
type VendorRepository interface {
	GetVendor(ctx context.Context, vendorID string) (*domain.Vendor, error)
}

// AssetMatchRepository persists asset/CVE matches and enforces the
// (clientID, assetID, cveID) uniqueness invariant.
type AssetMatchRepository interface {
	// UpsertSuggestion creates the match as suggested, or refreshes
	// score/reason/isKev in place when the existing row is still
	// suggested. Reviewed rows are left untouched. Returns whether a new
	// row was created.
	UpsertSuggestion(ctx context.Context, match domain.AssetCVEMatch) (created bool, err error)

	GetMatch(ctx context.Context, matchID string) (*domain.AssetCVEMatch, error)
	FindMatch(ctx context.Context, clientID, assetID, cveID string) (*domain.AssetCVEMatch, error)
	ListByAsset(ctx context.Context, assetID string) ([]domain.AssetCVEMatch, error)
	ListByClient(ctx context.Context, clientID string, status domain.MatchStatus) ([]domain.AssetCVEMatch, error)

	// UpdateStatus records a review decision.
	UpdateStatus(ctx context.Context, matchID string, status domain.MatchStatus, reviewedBy string, reviewedAt time.Time) error

	// SetImported links the match to its vulnerability-tracking record
	// and moves it to imported. The link is written at most once.
	SetImported(ctx context.Context, matchID, vulnerabilityID string, reviewedAt time.Time) error

	// ListDiscoveredAfter returns a client's matches discovered strictly
	// after the given instant.
	ListDiscoveredAfter(ctx context.Context, clientID string, after time.Time) ([]domain.AssetCVEMatch, error)
}

// VendorScanRepository persists vendor scans and their per-scan CVE findings.
type VendorScanRepository interface {
	CreateScan(ctx context.Context, scan domain.VendorScan) error
	UpdateScan(ctx context.Context, scan domain.VendorScan) error
	GetScan(ctx context.Context, scanID string) (*domain.VendorScan, error)
	LatestScanByVendor(ctx context.Context, vendorID string) (*domain.VendorScan, error)
	AddCVEMatches(ctx context.Context, matches []domain.VendorCVEMatch) error
	ListCVEMatchesByScan(ctx context.Context, scanID string) ([]domain.VendorCVEMatch, error)
}

// VendorBreachRepository persists breach history, upserted by natural key
// (vendor + title + date).
type VendorBreachRepository interface {
	UpsertBreach(ctx context.Context, breach domain.VendorBreach) error
	ListBreachesByVendor(ctx context.Context, vendorID string) ([]domain.VendorBreach, error)
}

// VulnerabilityImporter creates vulnerability-tracking records in the
// surrounding platform when a match is imported.
type VulnerabilityImporter interface {
	CreateVulnerability(ctx context.Context, vuln domain.ImportedVulnerability) (string, error)
}
