package domain

import "time"

// DailyBriefing is a per-client summary read model over the match store and
// the sync ledger.
type DailyBriefing struct {
	ClientID          string          `json:"client_id"`
	GeneratedAt       time.Time       `json:"generated_at"`
	NewSuggestedCount int             `json:"new_suggested_count"` // suggested in the last 24h
	OpenSuggested     int             `json:"open_suggested"`
	KEVMatchCount     int             `json:"kev_match_count"`
	TopMatches        []AssetCVEMatch `json:"top_matches,omitempty"`
	LastKEVSync       *SyncRun        `json:"last_kev_sync,omitempty"`
	LastFeedSync      *SyncRun        `json:"last_feed_sync,omitempty"`
}

// ScanSummary is returned by scan operations. Scans report partial problems
// as counts rather than failing outright.
type ScanSummary struct {
	ClientID       string    `json:"client_id"`
	AssetsScanned  int       `json:"assets_scanned"`
	AssetsSkipped  int       `json:"assets_skipped"`
	MatchesCreated int       `json:"matches_created"`
	MatchesUpdated int       `json:"matches_updated"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// BulkUpdateResult reports per-id outcomes of a bulk status change. Each id
// succeeds or fails independently.
type BulkUpdateResult struct {
	Updated int               `json:"updated"`
	Failed  map[string]string `json:"failed,omitempty"` // match id -> reason
}
