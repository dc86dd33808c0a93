/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/models"
)

// Store is the data access layer for media asset rows.
type Store struct {
	db *gorm.DB
}

// NewStore wraps a gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Create inserts a new asset row.
func (s *Store) Create(ctx context.Context, asset *models.MediaAsset) error {
	if err := s.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// ByID fetches one asset by numeric id.
func (s *Store) ByID(ctx context.Context, id uint) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := s.db.WithContext(ctx).First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("query asset %d: %w", id, err)
	}
	return &asset, nil
}

// ByStoredFilename fetches one asset by its generated on-disk filename.
func (s *Store) ByStoredFilename(ctx context.Context, filename string) (*models.MediaAsset, error) {
	var asset models.MediaAsset
	if err := s.db.WithContext(ctx).First(&asset, "stored_filename = ?", filename).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("query asset %s: %w", filename, err)
	}
	return &asset, nil
}

// ListByWeapon returns the assets owned by a weapon, newest first. Kind is an
// optional filter.
func (s *Store) ListByWeapon(ctx context.Context, weaponID uint, kind models.MediaKind) ([]models.MediaAsset, error) {
	query := s.db.WithContext(ctx).Where("weapon_id = ?", weaponID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var assets []models.MediaAsset
	if err := query.Order("created_at DESC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets for weapon %d: %w", weaponID, err)
	}
	return assets, nil
}

// AllWithPath returns every asset row holding a non-empty path. Used by the
// migration engine and integrity checker.
func (s *Store) AllWithPath(ctx context.Context) ([]models.MediaAsset, error) {
	var assets []models.MediaAsset
	if err := s.db.WithContext(ctx).Where("relative_path <> ''").Order("id").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// UpdateDescription mutates the only caller-editable metadata field and
// returns the updated row. Path and size stay immutable post-creation.
func (s *Store) UpdateDescription(ctx context.Context, id uint, description string) (*models.MediaAsset, error) {
	asset, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(asset).Update("description", description).Error; err != nil {
		return nil, fmt.Errorf("update asset %d: %w", id, err)
	}
	asset.Description = description
	return asset, nil
}

// UpdatePath rewrites the stored path for one row. Reserved for the path
// migration engine; request handlers never call it.
func (s *Store) UpdatePath(ctx context.Context, id uint, path string) error {
	result := s.db.WithContext(ctx).Model(&models.MediaAsset{}).Where("id = ?", id).Update("relative_path", path)
	if result.Error != nil {
		return fmt.Errorf("update path for asset %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Delete removes the row only. File removal is the service's responsibility
// and the two steps are not atomic.
func (s *Store) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.MediaAsset{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete asset %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAssetNotFound
	}
	return nil
}

// Count returns the total number of asset rows.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.MediaAsset{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

// WeaponExists reports whether the owning entity is present.
func (s *Store) WeaponExists(ctx context.Context, weaponID uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Weapon{}).Where("id = ?", weaponID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("query weapon %d: %w", weaponID, err)
	}
	return count > 0, nil
}

// WeaponStats aggregates per-weapon asset figures.
type WeaponStats struct {
	TotalAssets int64   `json:"total_assets"`
	TotalSize   int64   `json:"total_size"`
	AvgSize     float64 `json:"avg_size"`
}

// StatsByWeapon computes count, total size, and average size for one weapon.
func (s *Store) StatsByWeapon(ctx context.Context, weaponID uint, kind models.MediaKind) (*WeaponStats, error) {
	query := s.db.WithContext(ctx).Model(&models.MediaAsset{}).Where("weapon_id = ?", weaponID)
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var stats WeaponStats
	row := struct {
		Count int64
		Total *int64
		Avg   *float64
	}{}
	if err := query.Select("COUNT(*) as count, SUM(size_bytes) as total, AVG(size_bytes) as avg").Scan(&row).Error; err != nil {
		return nil, fmt.Errorf("stats for weapon %d: %w", weaponID, err)
	}

	stats.TotalAssets = row.Count
	if row.Total != nil {
		stats.TotalSize = *row.Total
	}
	if row.Avg != nil {
		stats.AvgSize = *row.Avg
	}
	return &stats, nil
}
