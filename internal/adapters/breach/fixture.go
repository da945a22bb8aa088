package breach

import (
	"context"
	"strings"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
)

// FixtureClient is a deterministic breach source for mock mode and tests,
// keyed by lowercase vendor name.
type FixtureClient struct {
	Breaches map[string][]domain.VendorBreach
	Err      error
}

func (f *FixtureClient) SearchBreaches(ctx context.Context, vendorName, website string) ([]domain.VendorBreach, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Breaches[strings.ToLower(vendorName)], nil
}

var _ ports.BreachSearchClient = (*FixtureClient)(nil)
