/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package integrity is the deployment audit: it cross-references asset rows
// against the filesystem and reports on database, directories, files, and
// write permissions. Apart from creating missing directories it is read-only.
package integrity

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
	"github.com/friendsincode/armory_media/internal/models"
)

type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusEmpty   Status = "empty"
)

// DirState records the outcome for one required directory.
type DirState string

const (
	DirExists  DirState = "exists"
	DirCreated DirState = "created"
	DirFailed  DirState = "failed"
)

// DatabaseCheck reports reachability, schema presence, and row count.
type DatabaseCheck struct {
	Status     Status `json:"status"`
	AssetCount int64  `json:"asset_count"`
	Message    string `json:"message,omitempty"`
}

// DirectoryCheck reports one required storage directory.
type DirectoryCheck struct {
	Dir     string   `json:"dir"`
	State   DirState `json:"state"`
	Message string   `json:"message,omitempty"`
}

// FileCheck cross-references every asset row against the filesystem.
type FileCheck struct {
	Status  Status            `json:"status"`
	Valid   int               `json:"valid"`
	Invalid int               `json:"invalid"`
	Issues  []migration.Issue `json:"issues,omitempty"`
}

// PermissionCheck is a write-then-delete probe against the upload root.
type PermissionCheck struct {
	Status   Status `json:"status"`
	Writable bool   `json:"writable"`
	Message  string `json:"message,omitempty"`
}

// Report is the aggregate deployment health report.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Database    DatabaseCheck    `json:"database"`
	Directories []DirectoryCheck `json:"directories"`
	AssetFiles  FileCheck        `json:"asset_files"`
	Permissions PermissionCheck  `json:"permissions"`
}

// Healthy reports whether the deployment passed without errors. File-level
// findings count as warnings, not errors.
func (r *Report) Healthy() bool {
	if r.Database.Status == StatusError || r.Permissions.Status == StatusError {
		return false
	}
	for _, d := range r.Directories {
		if d.State == DirFailed {
			return false
		}
	}
	return true
}

// Service performs the deployment audit.
type Service struct {
	db       *gorm.DB
	store    *media.Store
	fs       *media.FilesystemStorage
	migrator *migration.Service
	logger   zerolog.Logger
}

// NewService wires the checker against the database, data root, and path
// migration engine (used by AutoFix).
func NewService(db *gorm.DB, store *media.Store, fs *media.FilesystemStorage, migrator *migration.Service, logger zerolog.Logger) *Service {
	return &Service{
		db:       db,
		store:    store,
		fs:       fs,
		migrator: migrator,
		logger:   logger.With().Str("component", "integrity").Logger(),
	}
}

// requiredDirs are the storage directories the deployment needs, relative to
// the data root.
func requiredDirs() []string {
	return []string{
		"uploads",
		"uploads/weapons",
		models.KindImage.Bucket(),
		models.KindVideo.Bucket(),
		"data",
	}
}

// CheckAll runs the full audit. Creating missing directories is the only
// mutating step.
func (s *Service) CheckAll(ctx context.Context) (*Report, error) {
	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Database:    s.checkDatabase(ctx),
		Directories: s.checkDirectories(),
		Permissions: s.checkPermissions(),
	}

	files, err := s.checkAssetFiles(ctx)
	if err != nil {
		report.AssetFiles = FileCheck{Status: StatusError}
		s.logger.Error().Err(err).Msg("asset file check failed")
	} else {
		report.AssetFiles = files
	}

	if report.Healthy() {
		s.logger.Info().Msg("deployment check passed")
	} else {
		s.logger.Warn().Msg("deployment check found problems")
	}

	return report, nil
}

func (s *Service) checkDatabase(ctx context.Context) DatabaseCheck {
	if s.db == nil {
		return DatabaseCheck{Status: StatusError, Message: "no database handle"}
	}

	if !s.db.WithContext(ctx).Migrator().HasTable(&models.MediaAsset{}) {
		return DatabaseCheck{Status: StatusError, Message: "media_assets table missing"}
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return DatabaseCheck{Status: StatusError, Message: err.Error()}
	}

	s.logger.Info().Int64("assets", count).Msg("database reachable")
	return DatabaseCheck{Status: StatusOK, AssetCount: count}
}

func (s *Service) checkDirectories() []DirectoryCheck {
	checks := make([]DirectoryCheck, 0, len(requiredDirs()))

	for _, dir := range requiredDirs() {
		if dirExists(s.fs, dir) {
			checks = append(checks, DirectoryCheck{Dir: dir, State: DirExists})
			continue
		}
		if err := s.fs.EnsureDir(dir); err != nil {
			s.logger.Error().Err(err).Str("dir", dir).Msg("directory creation failed")
			checks = append(checks, DirectoryCheck{Dir: dir, State: DirFailed, Message: err.Error()})
			continue
		}
		s.logger.Info().Str("dir", dir).Msg("created missing directory")
		checks = append(checks, DirectoryCheck{Dir: dir, State: DirCreated})
	}

	return checks
}

func (s *Service) checkAssetFiles(ctx context.Context) (FileCheck, error) {
	report, err := s.migrator.Verify(ctx)
	if err != nil {
		return FileCheck{}, err
	}

	check := FileCheck{
		Valid:   report.Valid,
		Invalid: report.Invalid,
		Issues:  report.Issues,
	}
	switch {
	case report.Valid == 0 && report.Invalid == 0:
		check.Status = StatusEmpty
	case report.Invalid > 0:
		check.Status = StatusWarning
	default:
		check.Status = StatusOK
	}
	return check, nil
}

func dirExists(fs *media.FilesystemStorage, relDir string) bool {
	info, err := os.Stat(fs.Resolve(relDir))
	return err == nil && info.IsDir()
}

func (s *Service) checkPermissions() PermissionCheck {
	if err := s.fs.WriteProbe(models.KindVideo.Bucket()); err != nil {
		s.logger.Error().Err(err).Msg("upload root is not writable")
		return PermissionCheck{Status: StatusError, Writable: false, Message: err.Error()}
	}
	return PermissionCheck{Status: StatusOK, Writable: true}
}

// AutoFix is the operational bootstrap path: ensure the directory layout,
// then run the path migration. It is not part of steady-state request
// handling.
func (s *Service) AutoFix(ctx context.Context) (*migration.Summary, error) {
	s.logger.Info().Msg("starting auto-fix")

	s.checkDirectories()

	summary, err := s.migrator.Migrate(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("migrated", summary.Migrated).Int("errors", summary.Errors).Msg("auto-fix finished")
	return summary, nil
}
