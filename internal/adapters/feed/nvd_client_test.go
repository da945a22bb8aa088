package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nvdSample = `{
	"vulnerabilities": [
		{
			"cve": {
				"id": "CVE-2024-0001",
				"published": "2024-03-01T10:15:00.000",
				"lastModified": "2024-03-05T08:00:00.000",
				"descriptions": [
					{"lang": "es", "value": "Ejecución remota de código."},
					{"lang": "en", "value": "Remote code execution in Apache Tomcat."}
				],
				"metrics": {
					"cvssMetricV31": [
						{"cvssData": {"baseScore": 9.8, "vectorString": "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H"}}
					],
					"cvssMetricV2": [
						{"cvssData": {"baseScore": 7.5, "vectorString": "AV:N/AC:L/Au:N/C:P/I:P/A:P"}}
					]
				},
				"configurations": [
					{
						"nodes": [
							{
								"cpeMatch": [
									{"criteria": "cpe:2.3:a:apache:tomcat:9.0.86:*:*:*:*:*:*:*", "vulnerable": true},
									{"criteria": "cpe:2.3:o:linux:linux_kernel:*:*:*:*:*:*:*:*", "vulnerable": false}
								]
							}
						]
					}
				]
			}
		}
	]
}`

func TestSearchByKeywordNormalizes(t *testing.T) {
	var gotQuery, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("keywordSearch")
		gotKey = r.Header.Get("apiKey")
		w.Write([]byte(nvdSample))
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "test-key", 0)

	records, err := client.SearchByKeyword(context.Background(), "tomcat")
	require.NoError(t, err)
	assert.Equal(t, "tomcat", gotQuery)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "CVE-2024-0001", r.CVEID)
	// English description wins over the first listed language.
	assert.Equal(t, "Remote code execution in Apache Tomcat.", r.Description)
	// v3.1 wins over v2.
	assert.Equal(t, 9.8, r.CVSSScore)
	assert.Equal(t, "CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", r.CVSSVector)
	// Only vulnerable criteria are kept.
	assert.Equal(t, []string{"cpe:2.3:a:apache:tomcat:9.0.86:*:*:*:*:*:*:*"}, r.CPEMatches)
	assert.Equal(t, 2024, r.PublishedAt.Year())
	assert.False(t, r.FetchedAt.IsZero())
}

func TestGetByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CVE-2024-0001", r.URL.Query().Get("cveId"))
		w.Write([]byte(nvdSample))
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "", 0)

	record, err := client.GetByID(context.Background(), "CVE-2024-0001")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "CVE-2024-0001", record.CVEID)
}

func TestGetByIDNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vulnerabilities": []}`))
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "", 0)

	record, err := client.GetByID(context.Background(), "CVE-1999-9999")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestFeedErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "", 0)

	_, err := client.SearchByKeyword(context.Background(), "tomcat")
	assert.Error(t, err)
}

func TestFeedMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	client := NewNVDClient(srv.URL, "", 0)

	_, err := client.SearchByKeyword(context.Background(), "tomcat")
	assert.Error(t, err)
}

func TestNormalizeV2Fallback(t *testing.T) {
	cve := nvdCVE{
		ID: "CVE-2015-1000",
		Descriptions: []struct {
			Lang  string `json:"lang"`
			Value string `json:"value"`
		}{
			{Lang: "en", Value: "Legacy issue."},
		},
	}
	cve.Metrics.CVSSMetricV2 = []nvdMetric{{}}
	cve.Metrics.CVSSMetricV2[0].CVSSData.BaseScore = 6.4

	record := normalize(cve)
	assert.Equal(t, 6.4, record.CVSSScore)
}
