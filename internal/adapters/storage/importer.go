package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"gorm.io/gorm"
)

// Ensure compliance
var _ ports.VulnerabilityImporter = (*Adapter)(nil)

// CreateVulnerability writes the vulnerability-tracking record created when
// a match is imported and returns its id.
func (a *Adapter) CreateVulnerability(ctx context.Context, vuln domain.ImportedVulnerability) (string, error) {
	model := ImportedVulnerabilityModel{
		ID:          vuln.ID,
		ClientID:    vuln.ClientID,
		AssetID:     vuln.AssetID,
		CVEID:       vuln.CVEID,
		Title:       vuln.Title,
		Description: vuln.Description,
		Severity:    vuln.Severity,
		CVSSScore:   vuln.CVSSScore,
		CreatedAt:   vuln.CreatedAt,
	}
	if model.ID == "" {
		model.ID = uuid.New().String()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	if err := a.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", err
	}
	return model.ID, nil
}

// GetVulnerability retrieves an imported vulnerability record, or nil.
func (a *Adapter) GetVulnerability(ctx context.Context, id string) (*domain.ImportedVulnerability, error) {
	var model ImportedVulnerabilityModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.ImportedVulnerability{
		ID:          model.ID,
		ClientID:    model.ClientID,
		AssetID:     model.AssetID,
		CVEID:       model.CVEID,
		Title:       model.Title,
		Description: model.Description,
		Severity:    model.Severity,
		CVSSScore:   model.CVSSScore,
		CreatedAt:   model.CreatedAt,
	}, nil
}
