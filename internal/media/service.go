/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/armory_media/internal/models"
)

// Per-category allow-lists. Uploads must match on both MIME type and file
// extension before anything touches disk.
var (
	imageMimeTypes = map[string]bool{
		"image/jpeg": true,
		"image/jpg":  true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	imageExtensions = map[string]bool{
		".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
	}

	videoMimeTypes = map[string]bool{
		"video/mp4":  true,
		"video/avi":  true,
		"video/mov":  true,
		"video/wmv":  true,
		"video/flv":  true,
		"video/webm": true,
	}
	videoExtensions = map[string]bool{
		".mp4": true, ".avi": true, ".mov": true, ".wmv": true, ".flv": true, ".webm": true,
	}
)

// Limits holds the per-kind upload ceilings in bytes.
type Limits struct {
	ImageMaxBytes int64
	VideoMaxBytes int64
}

// DefaultLimits mirrors the historical 5 MB / 100 MB ceilings.
func DefaultLimits() Limits {
	return Limits{
		ImageMaxBytes: 5 * 1024 * 1024,
		VideoMaxBytes: 100 * 1024 * 1024,
	}
}

func (l Limits) forKind(kind models.MediaKind) int64 {
	if kind == models.KindVideo {
		return l.VideoMaxBytes
	}
	return l.ImageMaxBytes
}

// Service manages media asset ingestion, metadata, and removal.
type Service struct {
	store  *Store
	fs     *FilesystemStorage
	limits Limits
	logger zerolog.Logger
}

// NewService wires the asset store and filesystem adapter.
func NewService(store *Store, fs *FilesystemStorage, limits Limits, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		fs:     fs,
		limits: limits,
		logger: logger.With().Str("component", "media").Logger(),
	}
}

// Storage exposes the filesystem adapter for collaborating services.
func (s *Service) Storage() *FilesystemStorage {
	return s.fs
}

// Store exposes the asset store for collaborating services.
func (s *Service) Store() *Store {
	return s.store
}

// IngestInput describes one incoming upload. The HTTP layer has already
// decoded the multipart form; the byte stream arrives with a declared
// filename, size, and MIME type.
type IngestInput struct {
	WeaponID    uint
	Kind        models.MediaKind
	Filename    string
	MimeType    string
	SizeBytes   int64
	Description string
	Body        io.Reader
}

// Ingest validates, stores, and records one upload.
//
// Validation failures reject before any disk write. Once the file is durably
// written, a missing owner or failed insert deletes the file again before the
// error surfaces, so a failed ingestion never leaves an orphan behind.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*models.MediaAsset, error) {
	if !in.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown media kind %q", ErrInvalidMediaType, in.Kind)
	}

	ext := strings.ToLower(filepath.Ext(in.Filename))
	if err := validateType(in.Kind, in.MimeType, ext); err != nil {
		return nil, err
	}

	limit := s.limits.forKind(in.Kind)
	if in.SizeBytes > limit {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte limit", ErrPayloadTooLarge, in.SizeBytes, limit)
	}

	storedFilename := generateFilename(in.Kind, ext)

	// Guard against streams longer than declared: copy at most limit+1 bytes
	// and treat the extra byte as an oversize upload.
	relPath, written, err := s.fs.Store(in.Kind.Bucket(), storedFilename, io.LimitReader(in.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if written > limit {
		s.fs.Remove(relPath)
		return nil, fmt.Errorf("%w: stream exceeds %d byte limit", ErrPayloadTooLarge, limit)
	}

	exists, err := s.store.WeaponExists(ctx, in.WeaponID)
	if err != nil {
		s.fs.Remove(relPath)
		return nil, err
	}
	if !exists {
		// Mandatory rollback: the common bad-id path must not orphan files.
		if rmErr := s.fs.Remove(relPath); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("path", relPath).Msg("rollback of rejected upload failed")
		}
		return nil, fmt.Errorf("%w: weapon %d", ErrOwnerNotFound, in.WeaponID)
	}

	asset := &models.MediaAsset{
		WeaponID:         in.WeaponID,
		Kind:             in.Kind,
		StoredFilename:   storedFilename,
		OriginalFilename: in.Filename,
		RelativePath:     relPath,
		SizeBytes:        written,
		MimeType:         in.MimeType,
		Description:      in.Description,
	}

	if err := s.store.Create(ctx, asset); err != nil {
		if rmErr := s.fs.Remove(relPath); rmErr != nil {
			s.logger.Error().Err(rmErr).Str("path", relPath).Msg("rollback of failed insert failed")
		}
		return nil, err
	}

	s.logger.Info().
		Uint("asset_id", asset.ID).
		Uint("weapon_id", in.WeaponID).
		Str("kind", string(in.Kind)).
		Str("filename", storedFilename).
		Int64("bytes", written).
		Msg("media ingested")

	return asset, nil
}

// Get returns one asset by id.
func (s *Service) Get(ctx context.Context, id uint) (*models.MediaAsset, error) {
	return s.store.ByID(ctx, id)
}

// ListByWeapon returns the assets owned by a weapon.
func (s *Service) ListByWeapon(ctx context.Context, weaponID uint, kind models.MediaKind) ([]models.MediaAsset, error) {
	return s.store.ListByWeapon(ctx, weaponID, kind)
}

// StatsByWeapon aggregates asset figures for a weapon.
func (s *Service) StatsByWeapon(ctx context.Context, weaponID uint, kind models.MediaKind) (*WeaponStats, error) {
	return s.store.StatsByWeapon(ctx, weaponID, kind)
}

// UpdateDescription changes an asset's description.
func (s *Service) UpdateDescription(ctx context.Context, id uint, description string) (*models.MediaAsset, error) {
	return s.store.UpdateDescription(ctx, id, description)
}

// Delete removes the asset row, then best-effort removes the backing file.
// The two deletions are not atomic; a failed file removal leaves a transient
// orphan the integrity checker can report later.
func (s *Service) Delete(ctx context.Context, id uint) error {
	asset, err := s.store.ByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}

	if err := s.fs.Remove(asset.RelativePath); err != nil {
		s.logger.Warn().Err(err).
			Uint("asset_id", id).
			Str("path", asset.RelativePath).
			Msg("asset row deleted but file removal failed")
	} else {
		s.logger.Info().Uint("asset_id", id).Msg("asset deleted")
	}
	return nil
}

func validateType(kind models.MediaKind, mimeType, ext string) error {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	switch kind {
	case models.KindImage:
		if !imageMimeTypes[mimeType] || !imageExtensions[ext] {
			return fmt.Errorf("%w: %s (%s) is not an allowed image", ErrInvalidMediaType, mimeType, ext)
		}
	case models.KindVideo:
		if !videoMimeTypes[mimeType] || !videoExtensions[ext] {
			return fmt.Errorf("%w: %s (%s) is not an allowed video", ErrInvalidMediaType, mimeType, ext)
		}
	}
	return nil
}

// generateFilename builds <prefix>-<unixMilli>-<random><ext>. The millisecond
// timestamp plus random component makes collisions under concurrent uploads
// practically impossible without a store round-trip.
func generateFilename(kind models.MediaKind, ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%s-%d-%s%s", kind.FilenamePrefix(), time.Now().UnixMilli(), random, ext)
}
