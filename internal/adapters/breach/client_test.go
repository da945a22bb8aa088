package breach

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const breachSample = `[
	{
		"Title": "Atlassian",
		"BreachDate": "2023-11-02",
		"PwnCount": 13200000,
		"DataClasses": ["Email addresses", "Passwords"],
		"IsVerified": true
	}
]`

func TestSearchBreachesByDomain(t *testing.T) {
	var gotDomain, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDomain = r.URL.Query().Get("domain")
		gotKey = r.Header.Get("hibp-api-key")
		w.Write([]byte(breachSample))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "test-key", 0)

	breaches, err := client.SearchBreaches(context.Background(), "Atlassian", "https://www.atlassian.com/about")
	require.NoError(t, err)
	assert.Equal(t, "atlassian.com", gotDomain)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, breaches, 1)
	b := breaches[0]
	assert.Equal(t, "Atlassian", b.Title)
	assert.Equal(t, int64(13200000), b.AffectedCount)
	assert.True(t, b.IsVerified)
	assert.Equal(t, "hibp", b.Source)
	// 20 base + 30 (>=1M) + 25 (passwords) + 10 verified
	assert.Equal(t, 85, b.RiskScore)
}

func TestSearchBreachesFallsBackToName(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotName = r.URL.Query().Get("name")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", 0)

	_, err := client.SearchBreaches(context.Background(), "Atlassian", "")
	require.NoError(t, err)
	assert.Equal(t, "Atlassian", gotName)
}

func TestSearchBreachesNotFoundIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", 0)

	breaches, err := client.SearchBreaches(context.Background(), "Unknown", "")
	require.NoError(t, err)
	assert.Empty(t, breaches)
}

func TestSearchBreachesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", 0)

	_, err := client.SearchBreaches(context.Background(), "Atlassian", "")
	assert.Error(t, err)
}

func TestScoreBreach(t *testing.T) {
	// Unverified, tiny, no sensitive data.
	assert.Equal(t, 30, ScoreBreach(100, nil, false))

	// Scale buckets.
	assert.Equal(t, 40, ScoreBreach(50_000, nil, false))
	assert.Equal(t, 50, ScoreBreach(5_000_000, nil, false))
	assert.Equal(t, 60, ScoreBreach(200_000_000, nil, false))

	// Only the worst data class counts, case-insensitively.
	assert.Equal(t, 55, ScoreBreach(100, []string{"Passwords", "Auth tokens"}, false))

	// Worst case: huge verified breach exposing payment data.
	assert.Equal(t, 95, ScoreBreach(200_000_000, []string{"Credit cards"}, true))

	// Zero affected contributes nothing beyond the base.
	assert.Equal(t, 20, ScoreBreach(0, nil, false))
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "atlassian.com", domainOf("https://www.atlassian.com"))
	assert.Equal(t, "atlassian.com", domainOf("atlassian.com/products"))
	assert.Equal(t, "", domainOf(""))
}
