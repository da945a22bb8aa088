package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"gorm.io/gorm"
)

// Ensure compliance
var (
	_ ports.VendorScanRepository   = (*Adapter)(nil)
	_ ports.VendorBreachRepository = (*Adapter)(nil)
)

// CreateScan persists a new vendor scan row.
func (a *Adapter) CreateScan(ctx context.Context, scan domain.VendorScan) error {
	model := scanToModel(scan)
	if model.ID == "" {
		return fmt.Errorf("scan id is required")
	}
	return a.db.WithContext(ctx).Create(&model).Error
}

// UpdateScan overwrites a scan row (status, score, counts).
func (a *Adapter) UpdateScan(ctx context.Context, scan domain.VendorScan) error {
	model := scanToModel(scan)
	return a.db.WithContext(ctx).Save(&model).Error
}

// GetScan retrieves a scan by id, or nil.
func (a *Adapter) GetScan(ctx context.Context, scanID string) (*domain.VendorScan, error) {
	var model VendorScanModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", scanID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	scan := scanToDomain(model)
	return &scan, nil
}

// LatestScanByVendor returns the most recent scan for a vendor, or nil.
func (a *Adapter) LatestScanByVendor(ctx context.Context, vendorID string) (*domain.VendorScan, error) {
	var model VendorScanModel
	err := a.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("scan_date DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	scan := scanToDomain(model)
	return &scan, nil
}

// AddCVEMatches appends per-scan CVE findings in one transaction.
func (a *Adapter) AddCVEMatches(ctx context.Context, matches []domain.VendorCVEMatch) error {
	if len(matches) == 0 {
		return nil
	}

	models := make([]VendorCVEMatchModel, len(matches))
	for i, m := range matches {
		models[i] = vendorMatchToModel(m)
		if models[i].ID == "" {
			models[i].ID = uuid.New().String()
		}
	}

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(models, 100).Error
	})
}

// ListCVEMatchesByScan returns one scan's CVE findings by score.
func (a *Adapter) ListCVEMatchesByScan(ctx context.Context, scanID string) ([]domain.VendorCVEMatch, error) {
	var models []VendorCVEMatchModel
	err := a.db.WithContext(ctx).
		Where("scan_id = ?", scanID).
		Order("match_score DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	matches := make([]domain.VendorCVEMatch, len(models))
	for i, m := range models {
		matches[i] = vendorMatchToDomain(m)
	}
	return matches, nil
}

// UpsertBreach inserts a breach or refreshes the existing row with the same
// natural key (vendor + title + date), so repeated scans never duplicate
// breach history.
func (a *Adapter) UpsertBreach(ctx context.Context, breach domain.VendorBreach) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing VendorBreachModel
		err := tx.Where("vendor_id = ? AND title = ? AND breach_date = ?",
			breach.VendorID, breach.Title, breach.BreachDate).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			model := breachToModel(breach)
			if model.ID == "" {
				model.ID = uuid.New().String()
			}
			return tx.Create(&model).Error
		}
		if err != nil {
			return err
		}

		model := breachToModel(breach)
		model.ID = existing.ID
		return tx.Save(&model).Error
	})
}

// ListBreachesByVendor returns a vendor's breach history, newest first.
func (a *Adapter) ListBreachesByVendor(ctx context.Context, vendorID string) ([]domain.VendorBreach, error) {
	var models []VendorBreachModel
	err := a.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("breach_date DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	breaches := make([]domain.VendorBreach, len(models))
	for i, m := range models {
		breaches[i] = breachToDomain(m)
	}
	return breaches, nil
}
