package storage

import (
	"context"
	"testing"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGetVulnerability(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	id, err := adapter.CreateVulnerability(ctx, domain.ImportedVulnerability{
		ClientID:  "c1",
		AssetID:   "a1",
		CVEID:     "CVE-2024-0001",
		Title:     "CVE-2024-0001",
		Severity:  "Critical",
		CVSSScore: 9.8,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	vuln, err := adapter.GetVulnerability(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, vuln)
	assert.Equal(t, "CVE-2024-0001", vuln.CVEID)
	assert.Equal(t, "Critical", vuln.Severity)
	assert.False(t, vuln.CreatedAt.IsZero())
}

func TestGetVulnerabilityNotFound(t *testing.T) {
	adapter := newTestAdapter(t)

	vuln, err := adapter.GetVulnerability(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, vuln)
}

func TestGetVulnerabilityPropagatesStoreErrors(t *testing.T) {
	adapter := newTestAdapter(t)
	require.NoError(t, adapter.Close())

	_, err := adapter.GetVulnerability(context.Background(), "any")
	assert.Error(t, err)
}
