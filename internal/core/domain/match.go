package domain

import "time"

// MatchStatus is the review state of an asset/CVE match.
type MatchStatus string

const (
	MatchStatusSuggested MatchStatus = "suggested"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusDismissed MatchStatus = "dismissed"
	MatchStatusImported  MatchStatus = "imported"
)

// Valid reports whether s is a known review status.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusSuggested, MatchStatusAccepted, MatchStatusDismissed, MatchStatusImported:
		return true
	}
	return false
}

// Reviewed reports whether a human decision has been recorded. A rescan must
// never touch a reviewed row.
func (s MatchStatus) Reviewed() bool {
	return s == MatchStatusAccepted || s == MatchStatusDismissed || s == MatchStatusImported
}

// CanTransition reports whether the state machine allows moving from s to
// target. Re-applying the current state is allowed; callers treat it as an
// idempotent no-op.
func (s MatchStatus) CanTransition(target MatchStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case MatchStatusSuggested:
		return target == MatchStatusAccepted || target == MatchStatusDismissed || target == MatchStatusImported
	case MatchStatusAccepted:
		return target == MatchStatusImported
	}
	// dismissed and imported are terminal
	return false
}

// AssetCVEMatch is a scored association between an asset and a candidate
// CVE, unique per (ClientID, AssetID, CVEID). Created as suggested; never
// silently overwritten once reviewed.
type AssetCVEMatch struct {
	ID                      string      `json:"id"`
	ClientID                string      `json:"client_id"`
	AssetID                 string      `json:"asset_id"`
	CVEID                   string      `json:"cve_id"`
	MatchScore              int         `json:"match_score"` // 0-100
	MatchReason             string      `json:"match_reason"`
	IsKEV                   bool        `json:"is_kev"` // evaluated at scan time
	Status                  MatchStatus `json:"status"`
	DiscoveredAt            time.Time   `json:"discovered_at"`
	ReviewedAt              *time.Time  `json:"reviewed_at,omitempty"`
	ReviewedBy              string      `json:"reviewed_by,omitempty"`
	ImportedVulnerabilityID string      `json:"imported_vulnerability_id,omitempty"`
}

// Vendor scan lifecycle.
const (
	VendorScanStatusRunning   = "running"
	VendorScanStatusCompleted = "completed"
	VendorScanStatusFailed    = "failed"
)

// VendorScan is one vendor risk scan invocation, manual or scheduled.
type VendorScan struct {
	ID                 string    `json:"id"`
	ClientID           string    `json:"client_id"`
	VendorID           string    `json:"vendor_id"`
	RiskScore          int       `json:"risk_score"` // 0-100, 100 = no findings
	VulnerabilityCount int       `json:"vulnerability_count"`
	BreachCount        int       `json:"breach_count"`
	Status             string    `json:"status"`
	ScanDate           time.Time `json:"scan_date"`
}

// VendorCVEMatch is a CVE finding scoped to a single VendorScan. Not
// deduplicated across scans.
type VendorCVEMatch struct {
	ID          string  `json:"id"`
	ScanID      string  `json:"scan_id"`
	CVEID       string  `json:"cve_id"`
	MatchScore  int     `json:"match_score"`
	MatchReason string  `json:"match_reason"`
	CVSSScore   float64 `json:"cvss_score"`
}

// VendorBreach is a breach-history record for a vendor, upserted by natural
// key (vendor + title + date) so repeated scans do not duplicate it.
type VendorBreach struct {
	ID            string    `json:"id"`
	VendorID      string    `json:"vendor_id"`
	Title         string    `json:"title"`
	BreachDate    time.Time `json:"breach_date"`
	AffectedCount int64     `json:"affected_count"`
	DataClasses   []string  `json:"data_classes,omitempty"`
	RiskScore     int       `json:"risk_score"` // 0-100, internal breach severity
	Source        string    `json:"source"`
	IsVerified    bool      `json:"is_verified"`
	Status        string    `json:"status"`
}

// ImportedVulnerability is the vulnerability-tracking record created when an
// accepted match is imported. Downstream remediation workflows own it; the
// engine only creates it and keeps the back-link.
type ImportedVulnerability struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	AssetID     string    `json:"asset_id"`
	CVEID       string    `json:"cve_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"` // Low | Medium | High | Critical
	CVSSScore   float64   `json:"cvss_score"`
	CreatedAt   time.Time `json:"created_at"`
}
