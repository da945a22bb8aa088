package storage

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Adapter implements the match-store repositories using GORM and SQLite.
type Adapter struct {
	db *gorm.DB
}

// AssetModel is the GORM model for inventory assets. The inventory
// subsystem owns the rows; the engine reads them.
type AssetModel struct {
	ID           string `gorm:"primaryKey"`
	ClientID     string `gorm:"index"`
	Name         string
	Vendor       string
	ProductName  string
	Version      string
	Description  string
	Technologies string // JSON encoded []string
}

// VendorModel is the GORM model for third-party vendors.
type VendorModel struct {
	ID       string `gorm:"primaryKey"`
	ClientID string `gorm:"index"`
	Name     string
	Website  string
}

// AssetCVEMatchModel is the GORM model for asset/CVE matches, unique on
// (client_id, asset_id, cve_id).
type AssetCVEMatchModel struct {
	ID                      string `gorm:"primaryKey"`
	ClientID                string `gorm:"index;uniqueIndex:idx_match_natural"`
	AssetID                 string `gorm:"index;uniqueIndex:idx_match_natural"`
	CVEID                   string `gorm:"uniqueIndex:idx_match_natural"`
	MatchScore              int
	MatchReason             string
	IsKEV                   bool
	Status                  string `gorm:"index"`
	DiscoveredAt            time.Time
	ReviewedAt              *time.Time
	ReviewedBy              string
	ImportedVulnerabilityID string
}

// VendorScanModel is the GORM model for vendor risk scans.
type VendorScanModel struct {
	ID                 string `gorm:"primaryKey"`
	ClientID           string `gorm:"index"`
	VendorID           string `gorm:"index"`
	RiskScore          int
	VulnerabilityCount int
	BreachCount        int
	Status             string
	ScanDate           time.Time
}

// VendorCVEMatchModel is a CVE finding scoped to one scan.
type VendorCVEMatchModel struct {
	ID          string `gorm:"primaryKey"`
	ScanID      string `gorm:"index"`
	CVEID       string
	MatchScore  int
	MatchReason string
	CVSSScore   float64
}

// VendorBreachModel is the GORM model for breach history, unique on
// (vendor_id, title, breach_date).
type VendorBreachModel struct {
	ID            string    `gorm:"primaryKey"`
	VendorID      string    `gorm:"index;uniqueIndex:idx_breach_natural"`
	Title         string    `gorm:"uniqueIndex:idx_breach_natural"`
	BreachDate    time.Time `gorm:"uniqueIndex:idx_breach_natural"`
	AffectedCount int64
	DataClasses   string // JSON encoded []string
	RiskScore     int
	Source        string
	IsVerified    bool
	Status        string
}

// ImportedVulnerabilityModel is the vulnerability-tracking record created on
// import; remediation workflows own it from there.
type ImportedVulnerabilityModel struct {
	ID          string `gorm:"primaryKey"`
	ClientID    string `gorm:"index"`
	AssetID     string `gorm:"index"`
	CVEID       string
	Title       string
	Description string
	Severity    string
	CVSSScore   float64
	CreatedAt   time.Time
}

// NewAdapter initializes the database and migrates schema.
func NewAdapter(path string) (*Adapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&AssetModel{},
		&VendorModel{},
		&AssetCVEMatchModel{},
		&VendorScanModel{},
		&VendorCVEMatchModel{},
		&VendorBreachModel{},
		&ImportedVulnerabilityModel{},
	); err != nil {
		return nil, err
	}

	// Indices for the hot read paths
	db.Exec("CREATE INDEX IF NOT EXISTS idx_matches_discovered ON asset_cve_match_models(client_id, discovered_at)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_scans_vendor_date ON vendor_scan_models(vendor_id, scan_date)")

	return &Adapter{db: db}, nil
}

// Close closes the underlying connection.
func (a *Adapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
