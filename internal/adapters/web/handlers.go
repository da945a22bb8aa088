package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to a status code: unknown entities
// are 404, everything else gets the fallback (409 for lifecycle conflicts,
// 500 for the rest).
func writeServiceError(w http.ResponseWriter, err error, fallback int) {
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, fallback, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScanAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	summary, err := s.Service.ScanAsset(r.Context(), vars["clientID"], vars["assetID"])
	if err != nil {
		log.Printf("Asset scan failed: %v", err)
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleScanAllAssets(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	summary, err := s.Service.ScanAllAssets(r.Context(), vars["clientID"])
	if err != nil {
		log.Printf("Inventory scan failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAssetSuggestions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	matches, err := s.Service.GetAssetSuggestions(r.Context(), vars["assetID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) handleClientSuggestions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	matches, err := s.Service.GetClientSuggestions(r.Context(), vars["clientID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"matches": matches})
}

func (s *Server) handleUpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req struct {
		Status     string `json:"status"`
		ReviewedBy string `json:"reviewed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	match, err := s.Service.UpdateMatchStatus(r.Context(), vars["matchID"], domain.MatchStatus(req.Status), req.ReviewedBy)
	if err != nil {
		writeServiceError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

func (s *Server) handleBulkUpdateMatchStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MatchIDs   []string `json:"match_ids"`
		Status     string   `json:"status"`
		ReviewedBy string   `json:"reviewed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.MatchIDs) == 0 {
		writeError(w, http.StatusBadRequest, "match_ids is required")
		return
	}

	result, err := s.Service.BulkUpdateMatchStatus(r.Context(), req.MatchIDs, domain.MatchStatus(req.Status), req.ReviewedBy)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleImportMatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID string `json:"client_id"`
		AssetID  string `json:"asset_id"`
		CVEID    string `json:"cve_id"`
		MatchID  string `json:"match_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	vulnID, err := s.Service.ImportCVEAsVulnerability(r.Context(), req.ClientID, req.AssetID, req.CVEID, req.MatchID)
	if err != nil {
		writeServiceError(w, err, http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"vulnerability_id": vulnID})
}

func (s *Server) handleScanVendor(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	scan, err := s.Service.ScanVendor(r.Context(), vars["clientID"], vars["vendorID"])
	if err != nil {
		log.Printf("Vendor scan failed: %v", err)
		writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleVendorSuggestions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	scan, matches, breaches, err := s.Service.GetVendorSuggestions(r.Context(), vars["vendorID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scan == nil {
		writeError(w, http.StatusNotFound, "no scan for vendor")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scan":     scan,
		"matches":  matches,
		"breaches": breaches,
	})
}

func (s *Server) handleKEVSync(w http.ResponseWriter, r *http.Request) {
	run, err := s.Service.SyncKEVCatalog(r.Context())
	if err != nil {
		log.Printf("KEV sync failed: %v", err)
		writeJSON(w, http.StatusBadGateway, run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleKEVStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.Service.GetKEVStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLookupCVE(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	cve, err := s.Service.LookupCVE(r.Context(), vars["cveID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cve == nil {
		writeError(w, http.StatusNotFound, "cve not found")
		return
	}
	writeJSON(w, http.StatusOK, cve)
}

func (s *Server) handleDailyBriefing(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	briefing, err := s.Service.GetDailyBriefing(r.Context(), vars["clientID"])
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, briefing)
}
