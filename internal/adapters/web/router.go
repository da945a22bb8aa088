package web

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()

	// Asset correlation
	api.HandleFunc("/clients/{clientID}/assets/{assetID}/scan", s.handleScanAsset).Methods(http.MethodPost)
	api.HandleFunc("/clients/{clientID}/scan", s.handleScanAllAssets).Methods(http.MethodPost)
	api.HandleFunc("/assets/{assetID}/suggestions", s.handleAssetSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/clients/{clientID}/suggestions", s.handleClientSuggestions).Methods(http.MethodGet)

	// Match review lifecycle
	api.HandleFunc("/matches/{matchID}/status", s.handleUpdateMatchStatus).Methods(http.MethodPatch)
	api.HandleFunc("/matches/status", s.handleBulkUpdateMatchStatus).Methods(http.MethodPatch)
	api.HandleFunc("/matches/import", s.handleImportMatch).Methods(http.MethodPost)

	// Vendor risk
	api.HandleFunc("/clients/{clientID}/vendors/{vendorID}/scan", s.handleScanVendor).Methods(http.MethodPost)
	api.HandleFunc("/vendors/{vendorID}/suggestions", s.handleVendorSuggestions).Methods(http.MethodGet)

	// Feed
	api.HandleFunc("/kev/sync", s.handleKEVSync).Methods(http.MethodPost)
	api.HandleFunc("/kev/stats", s.handleKEVStats).Methods(http.MethodGet)
	api.HandleFunc("/cves/{cveID}", s.handleLookupCVE).Methods(http.MethodGet)

	// Briefing
	api.HandleFunc("/clients/{clientID}/briefing", s.handleDailyBriefing).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
