/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string

	// DataRoot is the project root all relative media paths resolve against.
	// It must stay constant between path migration and later resolution;
	// changing it invalidates every stored relative path.
	DataRoot string

	JWTSigningKey string
	MetricsBind   string

	// Per-kind upload ceilings (MB). Defaults mirror the historical limits:
	// 5 MB images, 100 MB videos.
	ImageMaxSizeMB int
	VideoMaxSizeMB int
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment:    getEnv("ARMORY_ENV", "development"),
		HTTPBind:       getEnv("ARMORY_HTTP_BIND", "0.0.0.0"),
		HTTPPort:       getEnvInt("ARMORY_HTTP_PORT", 8080),
		DBBackend:      DatabaseBackend(getEnv("ARMORY_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:          getEnv("ARMORY_DB_DSN", "data/armory.db"),
		DataRoot:       getEnv("ARMORY_DATA_ROOT", "."),
		JWTSigningKey:  getEnv("ARMORY_JWT_SIGNING_KEY", ""),
		MetricsBind:    getEnv("ARMORY_METRICS_BIND", "127.0.0.1:9000"),
		ImageMaxSizeMB: getEnvInt("ARMORY_IMAGE_MAX_SIZE_MB", 5),
		VideoMaxSizeMB: getEnvInt("ARMORY_VIDEO_MAX_SIZE_MB", 100),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("ARMORY_DB_DSN must be provided")
	}

	if cfg.DataRoot == "" {
		return nil, fmt.Errorf("ARMORY_DATA_ROOT must not be empty")
	}

	if cfg.JWTSigningKey == "" && strings.EqualFold(cfg.Environment, "production") {
		return nil, fmt.Errorf("ARMORY_JWT_SIGNING_KEY must be provided in production")
	}

	if cfg.ImageMaxSizeMB <= 0 || cfg.VideoMaxSizeMB <= 0 {
		return nil, fmt.Errorf("upload size limits must be positive")
	}

	return cfg, nil
}

// ImageMaxSizeBytes returns the image upload ceiling in bytes.
func (c *Config) ImageMaxSizeBytes() int64 {
	return int64(c.ImageMaxSizeMB) * 1024 * 1024
}

// VideoMaxSizeBytes returns the video upload ceiling in bytes.
func (c *Config) VideoMaxSizeBytes() int64 {
	return int64(c.VideoMaxSizeMB) * 1024 * 1024
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}
