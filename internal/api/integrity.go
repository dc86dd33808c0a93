/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import "net/http"

func (a *API) handleIntegrityCheck(w http.ResponseWriter, r *http.Request) {
	report, err := a.integritySvc.CheckAll(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("integrity check failed")
		writeError(w, http.StatusInternalServerError, "integrity_check_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": report})
}

func (a *API) handleIntegrityFix(w http.ResponseWriter, r *http.Request) {
	summary, err := a.integritySvc.AutoFix(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("auto-fix failed")
		writeError(w, http.StatusInternalServerError, "auto_fix_failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": summary})
}
