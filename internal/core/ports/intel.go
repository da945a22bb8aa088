package ports

import (
	"context"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// IntelService is the surface the rest of the application calls on the
// correlation engine. Transport (RPC, HTTP) is layered on top of this.
type IntelService interface {
	ScanAsset(ctx context.Context, clientID, assetID string) (*domain.ScanSummary, error)
	ScanAllAssets(ctx context.Context, clientID string) (*domain.ScanSummary, error)
	GetAssetSuggestions(ctx context.Context, assetID string) ([]domain.AssetCVEMatch, error)
	GetClientSuggestions(ctx context.Context, clientID string) ([]domain.AssetCVEMatch, error)

	UpdateMatchStatus(ctx context.Context, matchID string, status domain.MatchStatus, reviewedBy string) (*domain.AssetCVEMatch, error)
	BulkUpdateMatchStatus(ctx context.Context, matchIDs []string, status domain.MatchStatus, reviewedBy string) (*domain.BulkUpdateResult, error)
	ImportCVEAsVulnerability(ctx context.Context, clientID, assetID, cveID, matchID string) (string, error)

	ScanVendor(ctx context.Context, clientID, vendorID string) (*domain.VendorScan, error)
	GetVendorSuggestions(ctx context.Context, vendorID string) (*domain.VendorScan, []domain.VendorCVEMatch, []domain.VendorBreach, error)

	SyncKEVCatalog(ctx context.Context) (*domain.SyncRun, error)
	GetKEVStats(ctx context.Context) (*domain.KEVStats, error)
	LookupCVE(ctx context.Context, cveID string) (*domain.CachedCVE, error)
	GetDailyBriefing(ctx context.Context, clientID string) (*domain.DailyBriefing, error)
}
