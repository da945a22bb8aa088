package ports

import (
	"context"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// VulnerabilityFeedClient abstracts the external vulnerability database and
// the KEV catalog. Implementations carry the timeout policy; lookups that
// find nothing return (nil, nil) rather than an error.
type VulnerabilityFeedClient interface {
	// SearchByKeyword returns normalized CVE records whose indexed text
	// matches the keyword.
	SearchByKeyword(ctx context.Context, keyword string) ([]domain.CachedCVE, error)

	// GetByID returns the normalized record for a CVE id, or nil if the
	// feed has no such record.
	GetByID(ctx context.Context, cveID string) (*domain.CachedCVE, error)

	// FetchKEVCatalog returns the full current KEV catalog.
	FetchKEVCatalog(ctx context.Context) ([]domain.KEVEntry, error)
}

// BreachSearchClient looks up breach history for a vendor.
type BreachSearchClient interface {
	SearchBreaches(ctx context.Context, vendorName, website string) ([]domain.VendorBreach, error)
}

// AlertFinding is one high-severity discovery handed to the alert
// dispatcher. Formatting and delivery are the dispatcher's problem.
type AlertFinding struct {
	CVEID       string  `json:"cve_id"`
	AssetName   string  `json:"asset_name"`
	Description string  `json:"description"`
	CVSSScore   float64 `json:"cvss_score"`
	IsKEV       bool    `json:"is_kev"`
}

// AlertNotifier dispatches newly discovered high-severity findings, one call
// per client.
type AlertNotifier interface {
	NotifyHighSeverityMatches(ctx context.Context, clientID string, findings []AlertFinding) error
}
