package domain

import "time"

// CachedCVE is a normalized vulnerability record cached from the external
// feed (NVD or compatible). Records are immutable once cached except when a
// re-fetch carries a newer LastModifiedAt.
type CachedCVE struct {
	CVEID          string    `json:"cve_id"` // e.g., "CVE-2024-1234"
	Description    string    `json:"description"`
	CVSSScore      float64   `json:"cvss_score"`            // 0-10, v3.1 preferred over v2.0
	CVSSVector     string    `json:"cvss_vector,omitempty"` // e.g., "CVSS:3.1/AV:N/AC:L/..."
	CPEMatches     []string  `json:"cpe_matches,omitempty"` // CPE 2.3 match criteria from the feed
	PublishedAt    time.Time `json:"published_at"`
	LastModifiedAt time.Time `json:"last_modified_at"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// KEVEntry marks a CVE as present in the CISA Known Exploited
// Vulnerabilities catalog. Presence implies "known exploited".
type KEVEntry struct {
	CVEID     string    `json:"cve_id"`
	DateAdded time.Time `json:"date_added"`
}

// Sync sources.
const (
	SyncSourceNVD = "nvd"
	SyncSourceKEV = "cisa_kev"
)

// Sync outcomes.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// SyncRun is one row of the append-only sync ledger, written per scheduled
// or manual sync invocation.
type SyncRun struct {
	ID          int64     `json:"id"`
	Source      string    `json:"source"` // nvd | cisa_kev
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	RecordCount int       `json:"record_count"`
	Status      string    `json:"status"` // success | partial | failed
	Error       string    `json:"error,omitempty"`
}

// KEVStats summarizes the state of the local KEV cache.
type KEVStats struct {
	EntryCount int       `json:"entry_count"`
	LastSync   *SyncRun  `json:"last_sync,omitempty"`
	AsOf       time.Time `json:"as_of"`
}

// SeverityBucket maps a CVSS base score to the severity used by the
// vulnerability-tracking collaborator.
func SeverityBucket(cvss float64) string {
	switch {
	case cvss >= 9:
		return "Critical"
	case cvss >= 7:
		return "High"
	case cvss >= 4:
		return "Medium"
	default:
		return "Low"
	}
}
