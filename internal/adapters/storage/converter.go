package storage

import (
	"encoding/json"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
)

func assetToDomain(m AssetModel) domain.Asset {
	var techs []string
	if m.Technologies != "" {
		json.Unmarshal([]byte(m.Technologies), &techs)
	}
	return domain.Asset{
		ID:           m.ID,
		ClientID:     m.ClientID,
		Name:         m.Name,
		Vendor:       m.Vendor,
		ProductName:  m.ProductName,
		Version:      m.Version,
		Description:  m.Description,
		Technologies: techs,
	}
}

func assetToModel(a domain.Asset) AssetModel {
	techs, _ := json.Marshal(a.Technologies)
	return AssetModel{
		ID:           a.ID,
		ClientID:     a.ClientID,
		Name:         a.Name,
		Vendor:       a.Vendor,
		ProductName:  a.ProductName,
		Version:      a.Version,
		Description:  a.Description,
		Technologies: string(techs),
	}
}

func vendorToDomain(m VendorModel) domain.Vendor {
	return domain.Vendor{ID: m.ID, ClientID: m.ClientID, Name: m.Name, Website: m.Website}
}

func vendorToModel(v domain.Vendor) VendorModel {
	return VendorModel{ID: v.ID, ClientID: v.ClientID, Name: v.Name, Website: v.Website}
}

func matchToDomain(m AssetCVEMatchModel) domain.AssetCVEMatch {
	return domain.AssetCVEMatch{
		ID:                      m.ID,
		ClientID:                m.ClientID,
		AssetID:                 m.AssetID,
		CVEID:                   m.CVEID,
		MatchScore:              m.MatchScore,
		MatchReason:             m.MatchReason,
		IsKEV:                   m.IsKEV,
		Status:                  domain.MatchStatus(m.Status),
		DiscoveredAt:            m.DiscoveredAt,
		ReviewedAt:              m.ReviewedAt,
		ReviewedBy:              m.ReviewedBy,
		ImportedVulnerabilityID: m.ImportedVulnerabilityID,
	}
}

func matchToModel(m domain.AssetCVEMatch) AssetCVEMatchModel {
	return AssetCVEMatchModel{
		ID:                      m.ID,
		ClientID:                m.ClientID,
		AssetID:                 m.AssetID,
		CVEID:                   m.CVEID,
		MatchScore:              m.MatchScore,
		MatchReason:             m.MatchReason,
		IsKEV:                   m.IsKEV,
		Status:                  string(m.Status),
		DiscoveredAt:            m.DiscoveredAt,
		ReviewedAt:              m.ReviewedAt,
		ReviewedBy:              m.ReviewedBy,
		ImportedVulnerabilityID: m.ImportedVulnerabilityID,
	}
}

func scanToDomain(m VendorScanModel) domain.VendorScan {
	return domain.VendorScan{
		ID:                 m.ID,
		ClientID:           m.ClientID,
		VendorID:           m.VendorID,
		RiskScore:          m.RiskScore,
		VulnerabilityCount: m.VulnerabilityCount,
		BreachCount:        m.BreachCount,
		Status:             m.Status,
		ScanDate:           m.ScanDate,
	}
}

func scanToModel(s domain.VendorScan) VendorScanModel {
	return VendorScanModel{
		ID:                 s.ID,
		ClientID:           s.ClientID,
		VendorID:           s.VendorID,
		RiskScore:          s.RiskScore,
		VulnerabilityCount: s.VulnerabilityCount,
		BreachCount:        s.BreachCount,
		Status:             s.Status,
		ScanDate:           s.ScanDate,
	}
}

func vendorMatchToDomain(m VendorCVEMatchModel) domain.VendorCVEMatch {
	return domain.VendorCVEMatch{
		ID:          m.ID,
		ScanID:      m.ScanID,
		CVEID:       m.CVEID,
		MatchScore:  m.MatchScore,
		MatchReason: m.MatchReason,
		CVSSScore:   m.CVSSScore,
	}
}

func vendorMatchToModel(m domain.VendorCVEMatch) VendorCVEMatchModel {
	return VendorCVEMatchModel{
		ID:          m.ID,
		ScanID:      m.ScanID,
		CVEID:       m.CVEID,
		MatchScore:  m.MatchScore,
		MatchReason: m.MatchReason,
		CVSSScore:   m.CVSSScore,
	}
}

func breachToDomain(m VendorBreachModel) domain.VendorBreach {
	var classes []string
	if m.DataClasses != "" {
		json.Unmarshal([]byte(m.DataClasses), &classes)
	}
	return domain.VendorBreach{
		ID:            m.ID,
		VendorID:      m.VendorID,
		Title:         m.Title,
		BreachDate:    m.BreachDate,
		AffectedCount: m.AffectedCount,
		DataClasses:   classes,
		RiskScore:     m.RiskScore,
		Source:        m.Source,
		IsVerified:    m.IsVerified,
		Status:        m.Status,
	}
}

func breachToModel(b domain.VendorBreach) VendorBreachModel {
	classes, _ := json.Marshal(b.DataClasses)
	return VendorBreachModel{
		ID:            b.ID,
		VendorID:      b.VendorID,
		Title:         b.Title,
		BreachDate:    b.BreachDate,
		AffectedCount: b.AffectedCount,
		DataClasses:   string(classes),
		RiskScore:     b.RiskScore,
		Source:        b.Source,
		IsVerified:    b.IsVerified,
		Status:        b.Status,
	}
}
