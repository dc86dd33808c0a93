/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
)

var migratePathsCmd = &cobra.Command{
	Use:   "migrate-paths",
	Short: "Rewrite absolute media paths to data-root-relative ones",
	Long:  "One-shot batch that normalizes stored media paths, reconstructs canonical bucket paths for missing files, and verifies the result. Run it offline, never alongside ingestion.",
	RunE:  runMigratePaths,
}

var rollbackPathsCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Convert relative media paths back to absolute ones",
	RunE:  runRollbackPaths,
}

func init() {
	rootCmd.AddCommand(migratePathsCmd)
	migratePathsCmd.AddCommand(rollbackPathsCmd)
}

func newMigrator() (*migration.Service, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}

	gormDB, err := initDatabase()
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	store := media.NewStore(gormDB)
	fs := media.NewFilesystemStorage(cfg.DataRoot, logger)
	return migration.NewService(store, fs, logger), nil
}

func runMigratePaths(cmd *cobra.Command, args []string) error {
	migrator, err := newMigrator()
	if err != nil {
		return err
	}

	ctx := context.Background()

	summary, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate paths: %w", err)
	}

	report, err := migrator.Verify(ctx)
	if err != nil {
		return fmt.Errorf("verify paths: %w", err)
	}

	logger.Info().
		Int("migrated", summary.Migrated).
		Int("reconstructed", summary.Reconstructed).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Int("valid", report.Valid).
		Int("invalid", report.Invalid).
		Msg("migration summary")

	if summary.Errors > 0 {
		return fmt.Errorf("migration finished with %d row errors", summary.Errors)
	}
	return nil
}

func runRollbackPaths(cmd *cobra.Command, args []string) error {
	migrator, err := newMigrator()
	if err != nil {
		return err
	}

	summary, err := migrator.Rollback(context.Background())
	if err != nil {
		return fmt.Errorf("rollback paths: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("rollback finished with %d row errors", summary.Errors)
	}
	return nil
}
