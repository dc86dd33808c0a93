/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// StreamResponse carries everything an HTTP handler needs to answer a media
// request. Body is lazy: bytes are read as the caller consumes them, and
// Close releases the underlying file handle on completion or abort.
type StreamResponse struct {
	Status        int // 200 or 206
	ContentType   string
	ContentLength int64
	ContentRange  string // set for 206 responses only
	Body          io.ReadCloser
}

// RangeError reports an unsatisfiable range together with the file size so
// the HTTP layer can answer with "Content-Range: bytes */size".
type RangeError struct {
	Size int64
	err  error
}

func (e *RangeError) Error() string { return e.err.Error() }
func (e *RangeError) Unwrap() error { return e.err }

// sectionReader streams one byte span of an open file and owns its handle.
type sectionReader struct {
	*io.SectionReader
	file *os.File
}

func (r *sectionReader) Close() error {
	return r.file.Close()
}

// OpenStream resolves an asset by stored filename and opens the requested
// byte span.
//
// An empty rangeHeader yields a full-body 200 response. A single-range header
// "bytes=start-end" yields a 206 span with both bounds defaulted per RFC 9110
// (absent start means 0, absent end means size-1). Multi-range requests are
// not supported. Ranges with start > end or start >= size fail with
// ErrRangeUnsatisfiable.
func (s *Service) OpenStream(ctx context.Context, storedFilename, rangeHeader string) (*StreamResponse, error) {
	asset, err := s.store.ByStoredFilename(ctx, storedFilename)
	if err != nil {
		return nil, err
	}

	file, size, err := s.fs.Open(asset.RelativePath)
	if err != nil {
		if err == ErrFileMissing {
			s.logger.Warn().
				Uint("asset_id", asset.ID).
				Str("path", asset.RelativePath).
				Msg("asset row exists but file is missing; run integrity check")
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, asset.RelativePath)
		}
		return nil, err
	}

	if rangeHeader == "" {
		return &StreamResponse{
			Status:        200,
			ContentType:   asset.MimeType,
			ContentLength: size,
			Body:          &sectionReader{io.NewSectionReader(file, 0, size), file},
		}, nil
	}

	start, end, err := parseRange(rangeHeader, size)
	if err != nil {
		file.Close()
		return nil, &RangeError{Size: size, err: err}
	}

	return &StreamResponse{
		Status:        206,
		ContentType:   asset.MimeType,
		ContentLength: end - start + 1,
		ContentRange:  fmt.Sprintf("bytes %d-%d/%d", start, end, size),
		Body:          &sectionReader{io.NewSectionReader(file, start, end-start+1), file},
	}, nil
}

// parseRange interprets a single-range bytes header against a file size.
func parseRange(header string, size int64) (start, end int64, err error) {
	spec := strings.TrimPrefix(strings.TrimSpace(header), "bytes=")
	if spec == header {
		return 0, 0, fmt.Errorf("%w: malformed range %q", ErrRangeUnsatisfiable, header)
	}
	if strings.Contains(spec, ",") {
		return 0, 0, fmt.Errorf("%w: multi-range requests are not supported", ErrRangeUnsatisfiable)
	}

	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed range %q", ErrRangeUnsatisfiable, header)
	}

	start = 0
	if parts[0] != "" {
		start, err = strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		if err != nil || start < 0 {
			return 0, 0, fmt.Errorf("%w: malformed range start %q", ErrRangeUnsatisfiable, parts[0])
		}
	}

	end = size - 1
	if parts[1] != "" {
		end, err = strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || end < 0 {
			return 0, 0, fmt.Errorf("%w: malformed range end %q", ErrRangeUnsatisfiable, parts[1])
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if start > end || start >= size {
		return 0, 0, fmt.Errorf("%w: bytes %d-%d of %d", ErrRangeUnsatisfiable, start, end, size)
	}

	return start, end, nil
}
