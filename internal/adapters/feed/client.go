package feed

import (
	"context"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

// Client combines the NVD and KEV clients into the single feed capability
// the core depends on.
type Client struct {
	nvd *NVDClient
	kev *KEVClient
}

func NewClient(nvd *NVDClient, kev *KEVClient) *Client {
	return &Client{nvd: nvd, kev: kev}
}

func (c *Client) SearchByKeyword(ctx context.Context, keyword string) ([]domain.CachedCVE, error) {
	return c.nvd.SearchByKeyword(ctx, keyword)
}

func (c *Client) GetByID(ctx context.Context, cveID string) (*domain.CachedCVE, error) {
	return c.nvd.GetByID(ctx, cveID)
}

func (c *Client) FetchKEVCatalog(ctx context.Context) ([]domain.KEVEntry, error) {
	return c.kev.FetchKEVCatalog(ctx)
}

var _ ports.VulnerabilityFeedClient = (*Client)(nil)
