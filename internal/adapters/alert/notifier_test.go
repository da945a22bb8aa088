package alert

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPostsGroupedPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0)
	findings := []ports.AlertFinding{
		{CVEID: "CVE-2024-0001", AssetName: "Public web frontend", CVSSScore: 9.8, IsKEV: true},
		{CVEID: "CVE-2024-0002", AssetName: "Issue tracker", CVSSScore: 7.5},
	}

	err := n.NotifyHighSeverityMatches(context.Background(), "client-1", findings)
	require.NoError(t, err)

	assert.Equal(t, "client-1", got["client_id"])
	assert.Len(t, got["findings"], 2)
}

func TestNotifyEmptyFindingsIsNoop(t *testing.T) {
	var hit bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0)
	require.NoError(t, n.NotifyHighSeverityMatches(context.Background(), "client-1", nil))
	assert.False(t, hit)
}

func TestNotifyNoURLLogsOnly(t *testing.T) {
	n := NewWebhookNotifier("", 0)
	err := n.NotifyHighSeverityMatches(context.Background(), "client-1", []ports.AlertFinding{
		{CVEID: "CVE-2024-0001"},
	})
	assert.NoError(t, err)
}

func TestNotifyDispatcherError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, 0)
	err := n.NotifyHighSeverityMatches(context.Background(), "client-1", []ports.AlertFinding{
		{CVEID: "CVE-2024-0001"},
	})
	assert.Error(t, err)
}
