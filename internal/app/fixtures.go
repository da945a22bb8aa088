package app

import (
	"context"
	"fmt"
	"time"

	"github.com/lcalzada-xor/threatwatch/internal/adapters/breach"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/feed"
	"github.com/lcalzada-xor/threatwatch/internal/adapters/storage"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

// FixtureFeed returns the deterministic vulnerability feed used in mock
// mode. The records are shaped like real NVD data so scoring and KEV
// prioritization behave as they would in production.
func FixtureFeed() *feed.FixtureClient {
	published := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &feed.FixtureClient{
		CVEs: []domain.CachedCVE{
			{
				CVEID:       "CVE-2024-0001",
				Description: "Remote code execution in Apache Tomcat request parsing.",
				CVSSScore:   9.8,
				CVSSVector:  "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
				CPEMatches:  []string{"cpe:2.3:a:apache:tomcat:9.0.86:*:*:*:*:*:*:*"},
				PublishedAt: published,
			},
			{
				CVEID:       "CVE-2024-0002",
				Description: "Denial of service in Apache Tomcat HTTP/2 stream handling.",
				CVSSScore:   7.5,
				CVSSVector:  "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:N/I:N/A:H",
				CPEMatches:  []string{"cpe:2.3:a:apache:tomcat:*:*:*:*:*:*:*:*"},
				PublishedAt: published,
			},
			{
				CVEID:       "CVE-2024-0003",
				Description: "SQL injection in Atlassian Jira issue search.",
				CVSSScore:   8.1,
				CPEMatches:  []string{"cpe:2.3:a:atlassian:jira:*:*:*:*:*:*:*:*"},
				PublishedAt: published,
			},
			{
				CVEID:       "CVE-2024-0004",
				Description: "Information disclosure in nginx range filter.",
				CVSSScore:   5.3,
				CPEMatches:  []string{"cpe:2.3:a:f5:nginx:*:*:*:*:*:*:*:*"},
				PublishedAt: published,
			},
		},
		KEV: []domain.KEVEntry{
			{CVEID: "CVE-2024-0001", DateAdded: published.AddDate(0, 0, 7)},
		},
	}
}

// FixtureBreaches returns the deterministic breach history used in mock mode.
func FixtureBreaches() *breach.FixtureClient {
	return &breach.FixtureClient{
		Breaches: map[string][]domain.VendorBreach{
			"atlassian": {
				{
					Title:         "Atlassian",
					BreachDate:    time.Date(2023, 11, 2, 0, 0, 0, 0, time.UTC),
					AffectedCount: 13200000,
					DataClasses:   []string{"Email addresses", "Passwords"},
					RiskScore:     85,
					Source:        "fixture",
					IsVerified:    true,
				},
			},
		},
	}
}

// SeedFixtures loads a small demo inventory so mock mode has something to
// correlate. Existing rows are overwritten, which keeps reruns idempotent.
func SeedFixtures(ctx context.Context, store *storage.Adapter) error {
	assets := []domain.Asset{
		{
			ID:          "asset-tomcat",
			ClientID:    "demo",
			Name:        "Public web frontend",
			Vendor:      "Apache",
			ProductName: "Tomcat",
			Version:     "9.0.86",
			Description: "Customer-facing servlet container",
		},
		{
			ID:           "asset-jira",
			ClientID:     "demo",
			Name:         "Issue tracker",
			Vendor:       "Atlassian",
			ProductName:  "Jira",
			Version:      "9.12.0",
			Technologies: []string{"java", "postgresql"},
		},
	}
	for _, a := range assets {
		if err := store.SaveAsset(ctx, a); err != nil {
			return fmt.Errorf("failed to seed asset %s: %w", a.ID, err)
		}
	}

	vendor := domain.Vendor{
		ID:       "vendor-atlassian",
		ClientID: "demo",
		Name:     "Atlassian",
		Website:  "https://www.atlassian.com",
	}
	if err := store.SaveVendor(ctx, vendor); err != nil {
		return fmt.Errorf("failed to seed vendor %s: %w", vendor.ID, err)
	}
	return nil
}
