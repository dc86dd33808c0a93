/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import "errors"

// Error kinds surfaced by the media subsystem. Handlers map these onto HTTP
// statuses with errors.Is; everything else is treated as an internal failure.
var (
	// ErrInvalidMediaType rejects an upload whose MIME type or extension is
	// not on the allow-list for its category.
	ErrInvalidMediaType = errors.New("invalid media type")

	// ErrPayloadTooLarge rejects an upload exceeding the per-kind ceiling.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrOwnerNotFound means the referenced weapon does not exist.
	ErrOwnerNotFound = errors.New("weapon not found")

	// ErrAssetNotFound means no asset row matches the identifier.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrFileMissing means the asset row exists but the resolved path does
	// not. This is a consistency fault, kept distinct from ErrAssetNotFound
	// so operators can tell a bad reference apart from state that needs the
	// integrity checker.
	ErrFileMissing = errors.New("asset file missing")

	// ErrRangeUnsatisfiable rejects a byte range outside the file.
	ErrRangeUnsatisfiable = errors.New("range not satisfiable")
)
