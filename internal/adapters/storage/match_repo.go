package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lcalzada-xor/threatwatch/internal/core/domain"
	"github.com/lcalzada-xor/threatwatch/internal/core/ports"
	"gorm.io/gorm"
)

// Ensure compliance
var _ ports.AssetMatchRepository = (*Adapter)(nil)

// UpsertSuggestion creates the match as suggested or refreshes an existing
// suggested row in place. Reviewed rows (accepted, dismissed, imported) are
// never touched, which keeps dismissals sticky across rescans.
func (a *Adapter) UpsertSuggestion(ctx context.Context, match domain.AssetCVEMatch) (bool, error) {
	created := false

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing AssetCVEMatchModel
		err := tx.Where("client_id = ? AND asset_id = ? AND cve_id = ?",
			match.ClientID, match.AssetID, match.CVEID).First(&existing).Error

		if errors.Is(err, gorm.ErrRecordNotFound) {
			model := matchToModel(match)
			if model.ID == "" {
				model.ID = uuid.New().String()
			}
			model.Status = string(domain.MatchStatusSuggested)
			if model.DiscoveredAt.IsZero() {
				model.DiscoveredAt = time.Now().UTC()
			}
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
			created = true
			return nil
		}
		if err != nil {
			return err
		}

		if domain.MatchStatus(existing.Status).Reviewed() {
			return nil
		}

		return tx.Model(&AssetCVEMatchModel{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
			"match_score":  match.MatchScore,
			"match_reason": match.MatchReason,
			"is_kev":       match.IsKEV,
		}).Error
	})

	return created, err
}

// GetMatch retrieves a match by id, or nil if it does not exist.
func (a *Adapter) GetMatch(ctx context.Context, matchID string) (*domain.AssetCVEMatch, error) {
	var model AssetCVEMatchModel
	err := a.db.WithContext(ctx).First(&model, "id = ?", matchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	match := matchToDomain(model)
	return &match, nil
}

// FindMatch retrieves a match by its natural key, or nil.
func (a *Adapter) FindMatch(ctx context.Context, clientID, assetID, cveID string) (*domain.AssetCVEMatch, error) {
	var model AssetCVEMatchModel
	err := a.db.WithContext(ctx).
		Where("client_id = ? AND asset_id = ? AND cve_id = ?", clientID, assetID, cveID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	match := matchToDomain(model)
	return &match, nil
}

// ListByAsset returns an asset's matches, KEV first, then by score.
func (a *Adapter) ListByAsset(ctx context.Context, assetID string) ([]domain.AssetCVEMatch, error) {
	var models []AssetCVEMatchModel
	err := a.db.WithContext(ctx).
		Where("asset_id = ?", assetID).
		Order("is_kev DESC, match_score DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return matchesToDomain(models), nil
}

// ListByClient returns a client's matches, optionally filtered by status.
func (a *Adapter) ListByClient(ctx context.Context, clientID string, status domain.MatchStatus) ([]domain.AssetCVEMatch, error) {
	query := a.db.WithContext(ctx).Where("client_id = ?", clientID)
	if status != "" {
		query = query.Where("status = ?", string(status))
	}

	var models []AssetCVEMatchModel
	if err := query.Order("is_kev DESC, match_score DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return matchesToDomain(models), nil
}

// UpdateStatus records a review decision.
func (a *Adapter) UpdateStatus(ctx context.Context, matchID string, status domain.MatchStatus, reviewedBy string, reviewedAt time.Time) error {
	result := a.db.WithContext(ctx).Model(&AssetCVEMatchModel{}).
		Where("id = ?", matchID).
		Updates(map[string]interface{}{
			"status":      string(status),
			"reviewed_by": reviewedBy,
			"reviewed_at": reviewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match %s not found", matchID)
	}
	return nil
}

// SetImported links the match to its vulnerability record and moves it to
// imported. The link column is written only when still empty.
func (a *Adapter) SetImported(ctx context.Context, matchID, vulnerabilityID string, reviewedAt time.Time) error {
	result := a.db.WithContext(ctx).Model(&AssetCVEMatchModel{}).
		Where("id = ? AND imported_vulnerability_id = ''", matchID).
		Updates(map[string]interface{}{
			"status":                    string(domain.MatchStatusImported),
			"imported_vulnerability_id": vulnerabilityID,
			"reviewed_at":               reviewedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("match %s not found or already imported", matchID)
	}
	return nil
}

// ListDiscoveredAfter returns a client's matches discovered strictly after
// the given instant.
func (a *Adapter) ListDiscoveredAfter(ctx context.Context, clientID string, after time.Time) ([]domain.AssetCVEMatch, error) {
	var models []AssetCVEMatchModel
	err := a.db.WithContext(ctx).
		Where("client_id = ? AND discovered_at > ?", clientID, after).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return matchesToDomain(models), nil
}

func matchesToDomain(models []AssetCVEMatchModel) []domain.AssetCVEMatch {
	matches := make([]domain.AssetCVEMatch, len(models))
	for i, m := range models {
		matches[i] = matchToDomain(m)
	}
	return matches
}
