/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStorage handles file operations under a configured data root.
// Paths stored in the database are relative to that root; Resolve accepts
// both relative and legacy absolute paths.
type FilesystemStorage struct {
	root   string
	logger zerolog.Logger
}

// NewFilesystemStorage creates a storage adapter rooted at root.
func NewFilesystemStorage(root string, logger zerolog.Logger) *FilesystemStorage {
	return &FilesystemStorage{
		root:   root,
		logger: logger.With().Str("component", "storage").Logger(),
	}
}

// Root returns the configured data root.
func (fs *FilesystemStorage) Root() string {
	return fs.root
}

// Resolve turns a stored path into an absolute on-disk path. Absolute inputs
// pass through unchanged so pre-migration rows keep working.
func (fs *FilesystemStorage) Resolve(storedPath string) string {
	if filepath.IsAbs(storedPath) {
		return storedPath
	}
	return filepath.Join(fs.root, storedPath)
}

// Exists reports whether the stored path resolves to an existing regular file.
func (fs *FilesystemStorage) Exists(storedPath string) bool {
	info, err := os.Stat(fs.Resolve(storedPath))
	return err == nil && info.Mode().IsRegular()
}

// EnsureDir creates a root-relative directory if missing. Idempotent.
func (fs *FilesystemStorage) EnsureDir(relDir string) error {
	if err := os.MkdirAll(filepath.Join(fs.root, relDir), 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", relDir, err)
	}
	return nil
}

// Store writes the stream to <root>/<relDir>/<filename>, creating the
// directory lazily, and returns the root-relative path. The temporary file is
// removed when the copy fails partway.
func (fs *FilesystemStorage) Store(relDir, filename string, src io.Reader) (string, int64, error) {
	if err := fs.EnsureDir(relDir); err != nil {
		return "", 0, err
	}

	relPath := filepath.Join(relDir, filename)
	fullPath := filepath.Join(fs.root, relPath)

	dest, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	written, err := io.Copy(dest, src)
	if cerr := dest.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("write file: %w", err)
	}

	fs.logger.Debug().
		Str("path", relPath).
		Int64("bytes", written).
		Msg("file stored")

	return relPath, written, nil
}

// Remove deletes the file behind a stored path. Missing files are not an
// error; the row/file pair is reconciled by the integrity checker.
func (fs *FilesystemStorage) Remove(storedPath string) error {
	fullPath := fs.Resolve(storedPath)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}

	fs.logger.Debug().Str("path", storedPath).Msg("file deleted")
	return nil
}

// Open opens the file behind a stored path for reading, with its size.
func (fs *FilesystemStorage) Open(storedPath string) (*os.File, int64, error) {
	fullPath := fs.Resolve(storedPath)

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrFileMissing
		}
		return nil, 0, fmt.Errorf("stat file: %w", err)
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open file: %w", err)
	}
	return f, info.Size(), nil
}

// WriteProbe confirms the process can write under relDir by creating and
// removing a probe file. Failures are reported as-is, never retried.
func (fs *FilesystemStorage) WriteProbe(relDir string) error {
	probe := filepath.Join(fs.root, relDir, ".write-probe.tmp")
	if err := os.WriteFile(probe, []byte("probe"), 0644); err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}
