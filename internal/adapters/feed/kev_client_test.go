package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kevSample = `{
	"vulnerabilities": [
		{"cveID": "CVE-2024-0001", "dateAdded": "2024-03-08"},
		{"cveID": "CVE-2023-9999", "dateAdded": "2023-12-01"}
	]
}`

func TestFetchKEVCatalogPrimary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(kevSample))
	}))
	defer srv.Close()

	client := NewKEVClient(srv.URL, srv.URL)

	entries, err := client.FetchKEVCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "CVE-2024-0001", entries[0].CVEID)
	assert.Equal(t, 2024, entries[0].DateAdded.Year())
}

func TestFetchKEVCatalogFallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	var fallbackHit bool
	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fallbackHit = true
		w.Write([]byte(kevSample))
	}))
	defer fallback.Close()

	client := NewKEVClient(primary.URL, fallback.URL)

	entries, err := client.FetchKEVCatalog(context.Background())
	require.NoError(t, err)
	assert.True(t, fallbackHit)
	assert.Len(t, entries, 2)
}

func TestFetchKEVCatalogBothFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewKEVClient(srv.URL, srv.URL)

	_, err := client.FetchKEVCatalog(context.Background())
	assert.Error(t, err)
}
