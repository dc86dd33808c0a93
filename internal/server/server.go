/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/api"
	"github.com/friendsincode/armory_media/internal/auth"
	"github.com/friendsincode/armory_media/internal/config"
	"github.com/friendsincode/armory_media/internal/db"
	"github.com/friendsincode/armory_media/internal/integrity"
	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
	"github.com/friendsincode/armory_media/internal/telemetry"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg    *config.Config
	logger zerolog.Logger
	router chi.Router

	db           *gorm.DB
	mediaSvc     *media.Service
	migrator     *migration.Service
	integritySvc *integrity.Service

	httpServer    *http.Server
	metricsServer *http.Server
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	store := media.NewStore(gormDB)
	fs := media.NewFilesystemStorage(cfg.DataRoot, logger)
	limits := media.Limits{
		ImageMaxBytes: cfg.ImageMaxSizeBytes(),
		VideoMaxBytes: cfg.VideoMaxSizeBytes(),
	}
	mediaSvc := media.NewService(store, fs, limits, logger)
	migrator := migration.NewService(store, fs, logger)
	integritySvc := integrity.NewService(gormDB, store, fs, migrator, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.MetricsMiddleware)
	router.Use(auth.Middleware([]byte(cfg.JWTSigningKey)))
	// Streaming connections outlive the default request timeout.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(60 * time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Path) >= 7 && r.URL.Path[:7] == "/media/" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	apiHandler := api.New(gormDB, mediaSvc, migrator, integritySvc, cfg.VideoMaxSizeBytes()+(1<<20), logger)
	apiHandler.Routes(router)

	srv := &Server{
		cfg:          cfg,
		logger:       logger,
		router:       router,
		db:           gormDB,
		mediaSvc:     mediaSvc,
		migrator:     migrator,
		integritySvc: integritySvc,
	}

	srv.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", telemetry.Handler())
	srv.metricsServer = &http.Server{
		Addr:              cfg.MetricsBind,
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// HTTPServer returns the configured API server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// MetricsServer returns the prometheus listener.
func (s *Server) MetricsServer() *http.Server {
	return s.metricsServer
}

// Close releases held resources.
func (s *Server) Close() error {
	return db.Close(s.db)
}
