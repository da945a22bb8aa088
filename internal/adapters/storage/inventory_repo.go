package storage

import (
	"context"
	"errors"

	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"gorm.io/gorm"
)

// Ensure compliance
var (
	_ ports.AssetRepository  = (*Adapter)(nil)
	_ ports.VendorRepository = (*Adapter)(nil)
)

// GetAsset retrieves an asset by id, or nil.
func (a *Adapter) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	var model AssetModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", assetID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	asset := assetToDomain(model)
	return &asset, nil
}

// ListAssetsByClient returns a client's full inventory.
func (a *Adapter) ListAssetsByClient(ctx context.Context, clientID string) ([]domain.Asset, error) {
	var models []AssetModel
	if err := a.db.WithContext(ctx).Where("client_id = ?", clientID).Find(&models).Error; err != nil {
		return nil, err
	}
	assets := make([]domain.Asset, len(models))
	for i, m := range models {
		assets[i] = assetToDomain(m)
	}
	return assets, nil
}

// ListClientIDs returns the distinct clients that own at least one asset.
func (a *Adapter) ListClientIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := a.db.WithContext(ctx).Model(&AssetModel{}).
		Distinct("client_id").
		Order("client_id").
		Pluck("client_id", &ids).Error
	return ids, err
}

// GetVendor retrieves a vendor by id, or nil.
func (a *Adapter) GetVendor(ctx context.Context, vendorID string) (*domain.Vendor, error) {
	var model VendorModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", vendorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	vendor := vendorToDomain(model)
	return &vendor, nil
}

// SaveAsset upserts an inventory row. The inventory subsystem is the normal
// writer; this is used by fixtures and tests.
func (a *Adapter) SaveAsset(ctx context.Context, asset domain.Asset) error {
	model := assetToModel(asset)
	return a.db.WithContext(ctx).Save(&model).Error
}

// SaveVendor upserts a vendor row. Same caveat as SaveAsset.
func (a *Adapter) SaveVendor(ctx context.Context, vendor domain.Vendor) error {
	model := vendorToModel(vendor)
	return a.db.WithContext(ctx).Save(&model).Error
}
