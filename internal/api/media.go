/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/models"
	"github.com/friendsincode/armory_media/internal/telemetry"
)

func (a *API) handleListMedia(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := parseID(w, chi.URLParam(r, "weaponID"))
	if !ok {
		return
	}

	kind := models.MediaKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}

	assets, err := a.media.ListByWeapon(r.Context(), weaponID, kind)
	if err != nil {
		a.logger.Error().Err(err).Uint("weapon_id", weaponID).Msg("list media failed")
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": assets})
}

func (a *API) handleMediaStats(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := parseID(w, chi.URLParam(r, "weaponID"))
	if !ok {
		return
	}

	kind := models.MediaKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}

	stats, err := a.media.StatsByWeapon(r.Context(), weaponID, kind)
	if err != nil {
		a.logger.Error().Err(err).Uint("weapon_id", weaponID).Msg("media stats failed")
		writeError(w, http.StatusInternalServerError, "stats_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": stats})
}

func (a *API) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	weaponID, ok := parseID(w, chi.URLParam(r, "weaponID"))
	if !ok {
		return
	}

	if a.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_multipart")
		return
	}
	defer r.MultipartForm.RemoveAll()

	kind := models.MediaKind(r.FormValue("kind"))
	if !kind.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_kind")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file_required")
		return
	}
	defer file.Close()

	asset, err := a.media.Ingest(r.Context(), media.IngestInput{
		WeaponID:    weaponID,
		Kind:        kind,
		Filename:    header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		SizeBytes:   header.Size,
		Description: r.FormValue("description"),
		Body:        file,
	})
	if err != nil {
		telemetry.MediaIngestsTotal.WithLabelValues(string(kind), "rejected").Inc()
		a.writeMediaError(w, err, "upload")
		return
	}

	telemetry.MediaIngestsTotal.WithLabelValues(string(kind), "stored").Inc()
	writeJSON(w, http.StatusCreated, map[string]any{"data": asset})
}

func (a *API) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	asset, err := a.media.Get(r.Context(), id)
	if err != nil {
		a.writeMediaError(w, err, "get")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": asset})
}

type mediaUpdateRequest struct {
	Description string `json:"description"`
}

func (a *API) handleUpdateMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req mediaUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	asset, err := a.media.UpdateDescription(r.Context(), id, req.Description)
	if err != nil {
		a.writeMediaError(w, err, "update")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": asset})
}

func (a *API) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := a.media.Delete(r.Context(), id); err != nil {
		a.writeMediaError(w, err, "delete")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// handleStreamMedia serves the file bytes, honoring single-range requests.
func (a *API) handleStreamMedia(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "filename_required")
		return
	}

	resp, err := a.media.OpenStream(r.Context(), filename, r.Header.Get("Range"))
	if err != nil {
		a.writeMediaError(w, err, "stream")
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	if resp.ContentRange != "" {
		w.Header().Set("Content-Range", resp.ContentRange)
	}
	w.WriteHeader(resp.Status)

	// Client disconnects abort the copy; the deferred Close releases the
	// file handle either way.
	written, err := io.Copy(w, resp.Body)
	telemetry.MediaBytesStreamed.Add(float64(written))
	if err != nil {
		a.logger.Debug().Err(err).Str("filename", filename).Msg("stream aborted")
	}
}

// writeMediaError maps media error kinds onto HTTP statuses. FileMissing is
// logged distinctly from AssetNotFound: the former signals corrupted state
// that needs the integrity checker, the latter a bad reference.
func (a *API) writeMediaError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, media.ErrInvalidMediaType):
		writeError(w, http.StatusBadRequest, "invalid_media_type")
	case errors.Is(err, media.ErrPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "file_too_large")
	case errors.Is(err, media.ErrOwnerNotFound):
		writeError(w, http.StatusNotFound, "weapon_not_found")
	case errors.Is(err, media.ErrAssetNotFound):
		writeError(w, http.StatusNotFound, "asset_not_found")
	case errors.Is(err, media.ErrFileMissing):
		a.logger.Warn().Err(err).Str("op", op).Msg("asset file missing; integrity check recommended")
		writeError(w, http.StatusNotFound, "file_missing")
	case errors.Is(err, media.ErrRangeUnsatisfiable):
		var rangeErr *media.RangeError
		if errors.As(err, &rangeErr) {
			w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Size))
		}
		writeError(w, http.StatusRequestedRangeNotSatisfiable, "range_not_satisfiable")
	default:
		a.logger.Error().Err(err).Str("op", op).Msg("media operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseID(w http.ResponseWriter, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid_id")
		return 0, false
	}
	return uint(id), true
}
