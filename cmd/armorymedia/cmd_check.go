/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/friendsincode/armory_media/internal/integrity"
	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the deployment integrity audit",
	Long:  "Cross-reference asset rows against the filesystem and report on database, directories, files, and write permissions",
	RunE:  runCheck,
}

var checkFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Create missing directories and run the path migration",
	RunE:  runCheckFix,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.AddCommand(checkFixCmd)
}

func newIntegrityService() (*integrity.Service, error) {
	if err := loadConfig(); err != nil {
		return nil, err
	}

	gormDB, err := initDatabase()
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	store := media.NewStore(gormDB)
	fs := media.NewFilesystemStorage(cfg.DataRoot, logger)
	migrator := migration.NewService(store, fs, logger)
	return integrity.NewService(gormDB, store, fs, migrator, logger), nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	svc, err := newIntegrityService()
	if err != nil {
		return err
	}

	report, err := svc.CheckAll(context.Background())
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}

	if !report.Healthy() {
		return fmt.Errorf("deployment check found problems")
	}
	return nil
}

func runCheckFix(cmd *cobra.Command, args []string) error {
	svc, err := newIntegrityService()
	if err != nil {
		return err
	}

	summary, err := svc.AutoFix(context.Background())
	if err != nil {
		return fmt.Errorf("auto-fix: %w", err)
	}

	if summary.Errors > 0 {
		return fmt.Errorf("auto-fix finished with %d row errors", summary.Errors)
	}
	return nil
}
