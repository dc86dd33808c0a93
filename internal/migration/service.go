/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package migration rewrites legacy absolute media paths to data-root-relative
// ones, with rollback and read-only verification. It is an administrative
// batch operation: run it offline, never concurrently with ingestion or with
// another migration run.
package migration

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/models"
)

// Summary aggregates the outcome of one migrate or rollback batch. One row's
// failure is recorded and never aborts the rest of the batch.
type Summary struct {
	Total         int `json:"total"`
	Migrated      int `json:"migrated"`
	Reconstructed int `json:"reconstructed"`
	Skipped       int `json:"skipped"`
	Errors        int `json:"errors"`
}

// Issue describes one asset whose path does not resolve to a file on disk.
type Issue struct {
	AssetID  uint   `json:"id"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Issue    string `json:"issue"`
}

// IssueFileMissing is the only issue kind verify emits.
const IssueFileMissing = "file_missing"

// VerifyReport is the read-only existence audit over all asset rows.
type VerifyReport struct {
	Valid   int     `json:"valid"`
	Invalid int     `json:"invalid"`
	Issues  []Issue `json:"issues"`
}

// Service is the path migration engine.
type Service struct {
	store  *media.Store
	fs     *media.FilesystemStorage
	logger zerolog.Logger
}

// NewService wires the engine against the asset store and data root.
func NewService(store *media.Store, fs *media.FilesystemStorage, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		fs:     fs,
		logger: logger.With().Str("component", "path_migration").Logger(),
	}
}

// Migrate rewrites every absolute path to a data-root-relative one.
//
// Per row: already-relative paths are skipped, which makes a second run a
// no-op. An absolute path whose file exists is rewritten relative to the data
// root. An absolute path whose file is gone falls back to the canonical
// bucket path <bucket-for-kind>/<storedFilename>; that is a reconstruction,
// not a verified migration, and is counted separately.
func (s *Service) Migrate(ctx context.Context) (*Summary, error) {
	assets, err := s.store.AllWithPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	summary := &Summary{Total: len(assets)}
	s.logger.Info().Int("rows", len(assets)).Msg("starting path migration")

	for _, asset := range assets {
		if !filepath.IsAbs(asset.RelativePath) {
			summary.Skipped++
			s.logger.Debug().Uint("asset_id", asset.ID).Msg("path already relative, skipping")
			continue
		}

		newPath, reconstructed, err := s.relativeFor(&asset)
		if err != nil {
			summary.Errors++
			s.logger.Error().Err(err).Uint("asset_id", asset.ID).Msg("path rewrite failed")
			continue
		}

		if err := s.store.UpdatePath(ctx, asset.ID, newPath); err != nil {
			summary.Errors++
			s.logger.Error().Err(err).Uint("asset_id", asset.ID).Msg("path update failed")
			continue
		}

		if reconstructed {
			summary.Reconstructed++
			s.logger.Warn().
				Uint("asset_id", asset.ID).
				Str("old", asset.RelativePath).
				Str("new", newPath).
				Msg("original file missing, reconstructed canonical bucket path")
		} else {
			summary.Migrated++
			s.logger.Info().
				Uint("asset_id", asset.ID).
				Str("old", asset.RelativePath).
				Str("new", newPath).
				Msg("path migrated")
		}
	}

	s.logger.Info().
		Int("migrated", summary.Migrated).
		Int("reconstructed", summary.Reconstructed).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("path migration finished")

	return summary, nil
}

// relativeFor computes the root-relative replacement for one absolute path.
func (s *Service) relativeFor(asset *models.MediaAsset) (path string, reconstructed bool, err error) {
	if s.fs.Exists(asset.RelativePath) {
		rel, err := filepath.Rel(s.fs.Root(), asset.RelativePath)
		if err != nil {
			return "", false, fmt.Errorf("relativize %s: %w", asset.RelativePath, err)
		}
		return rel, false, nil
	}

	// Lossy fallback: the original absolute location is unrecoverable after
	// this rewrite.
	return filepath.Join(asset.Kind.Bucket(), asset.StoredFilename), true, nil
}

// Rollback converts relative paths back to absolute ones by resolving against
// the data root. Rows already absolute are left untouched, mirroring
// Migrate's skip rule.
func (s *Service) Rollback(ctx context.Context) (*Summary, error) {
	assets, err := s.store.AllWithPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	summary := &Summary{Total: len(assets)}
	s.logger.Info().Int("rows", len(assets)).Msg("starting path rollback")

	for _, asset := range assets {
		if filepath.IsAbs(asset.RelativePath) {
			summary.Skipped++
			continue
		}

		absPath := s.fs.Resolve(asset.RelativePath)
		if err := s.store.UpdatePath(ctx, asset.ID, absPath); err != nil {
			summary.Errors++
			s.logger.Error().Err(err).Uint("asset_id", asset.ID).Msg("rollback update failed")
			continue
		}

		summary.Migrated++
		s.logger.Info().
			Uint("asset_id", asset.ID).
			Str("old", asset.RelativePath).
			Str("new", absPath).
			Msg("path rolled back")
	}

	s.logger.Info().
		Int("rolled_back", summary.Migrated).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("path rollback finished")

	return summary, nil
}

// Verify is the read-only existence audit: resolve every row's path
// (absolute or relative) and check for the file on disk. The integrity
// checker runs the same audit as part of its deployment report.
func (s *Service) Verify(ctx context.Context) (*VerifyReport, error) {
	assets, err := s.store.AllWithPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("load assets: %w", err)
	}

	report := &VerifyReport{}
	for _, asset := range assets {
		if s.fs.Exists(asset.RelativePath) {
			report.Valid++
			continue
		}

		report.Invalid++
		report.Issues = append(report.Issues, Issue{
			AssetID:  asset.ID,
			Filename: asset.StoredFilename,
			Path:     asset.RelativePath,
			Issue:    IssueFileMissing,
		})
		s.logger.Warn().
			Uint("asset_id", asset.ID).
			Str("path", asset.RelativePath).
			Msg("file missing for asset")
	}

	s.logger.Info().
		Int("valid", report.Valid).
		Int("invalid", report.Invalid).
		Msg("path verification finished")

	return report, nil
}
