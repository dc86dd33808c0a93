/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/auth"
	"github.com/friendsincode/armory_media/internal/integrity"
	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
)

// API exposes HTTP handlers.
type API struct {
	db           *gorm.DB
	media        *media.Service
	migrator     *migration.Service
	integritySvc *integrity.Service
	logger       zerolog.Logger

	// maxUploadBytes caps multipart request bodies before the media service
	// applies per-kind ceilings.
	maxUploadBytes int64
}

// New creates the API router wrapper.
func New(db *gorm.DB, mediaSvc *media.Service, migrator *migration.Service, integritySvc *integrity.Service, maxUploadBytes int64, logger zerolog.Logger) *API {
	return &API{
		db:             db,
		media:          mediaSvc,
		migrator:       migrator,
		integritySvc:   integritySvc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on the provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/weapons/{weaponID}/media", func(r chi.Router) {
			r.Get("/", a.handleListMedia)
			r.Get("/stats", a.handleMediaStats)
			r.With(auth.RequireAdmin).Post("/", a.handleUploadMedia)
		})

		r.Route("/media/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetMedia)
			r.With(auth.RequireAdmin).Put("/", a.handleUpdateMedia)
			r.With(auth.RequireAdmin).Delete("/", a.handleDeleteMedia)
		})

		r.Route("/integrity", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", a.handleIntegrityCheck)
			r.Post("/fix", a.handleIntegrityFix)
		})
	})

	// Public streaming endpoint; kept outside the versioned API so players
	// can use stable URLs.
	r.Get("/media/{filename}", a.handleStreamMedia)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err != nil || sqlDB.PingContext(r.Context()) != nil {
		writeError(w, http.StatusServiceUnavailable, "database_unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
