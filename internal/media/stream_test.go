package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/friendsincode/armory_media/internal/models"
)

func ingestFixture(t *testing.T, svc *Service, weaponID uint, payload string) *models.MediaAsset {
	t.Helper()
	asset, err := svc.Ingest(context.Background(), IngestInput{
		WeaponID:  weaponID,
		Kind:      models.KindVideo,
		Filename:  "fixture.mp4",
		MimeType:  "video/mp4",
		SizeBytes: int64(len(payload)),
		Body:      strings.NewReader(payload),
	})
	if err != nil {
		t.Fatalf("ingest fixture: %v", err)
	}
	return asset
}

func readAll(t *testing.T, body io.ReadCloser) []byte {
	t.Helper()
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read stream body: %v", err)
	}
	return data
}

func TestOpenStreamFullBody(t *testing.T) {
	svc, db, _ := setupService(t)
	weaponID := createWeapon(t, db, "MG42")
	payload := strings.Repeat("a", 1000)
	asset := ingestFixture(t, svc, weaponID, payload)

	resp, err := svc.OpenStream(context.Background(), asset.StoredFilename, "")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}

	if resp.Status != 200 {
		t.Fatalf("expected status 200, got %d", resp.Status)
	}
	if resp.ContentLength != 1000 {
		t.Fatalf("expected content length 1000, got %d", resp.ContentLength)
	}
	if resp.ContentRange != "" {
		t.Fatalf("full responses must not carry Content-Range, got %q", resp.ContentRange)
	}
	if resp.ContentType != "video/mp4" {
		t.Fatalf("expected video/mp4, got %s", resp.ContentType)
	}
	if got := readAll(t, resp.Body); len(got) != 1000 {
		t.Fatalf("expected 1000 body bytes, got %d", len(got))
	}
}

func TestOpenStreamRanges(t *testing.T) {
	svc, db, _ := setupService(t)
	weaponID := createWeapon(t, db, "PKM")

	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	asset := ingestFixture(t, svc, weaponID, string(payload))

	tests := []struct {
		name       string
		header     string
		wantLength int64
		wantRange  string
		wantFirst  byte
		wantLast   byte
	}{
		{"explicit span", "bytes=0-99", 100, "bytes 0-99/1000", payload[0], payload[99]},
		{"open-ended tail", "bytes=500-", 500, "bytes 500-999/1000", payload[500], payload[999]},
		{"missing start defaults to zero", "bytes=-99", 100, "bytes 0-99/1000", payload[0], payload[99]},
		{"end clamped to size", "bytes=900-5000", 100, "bytes 900-999/1000", payload[900], payload[999]},
		{"single byte", "bytes=42-42", 1, "bytes 42-42/1000", payload[42], payload[42]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.OpenStream(context.Background(), asset.StoredFilename, tt.header)
			if err != nil {
				t.Fatalf("open stream: %v", err)
			}

			if resp.Status != 206 {
				t.Fatalf("expected status 206, got %d", resp.Status)
			}
			if resp.ContentLength != tt.wantLength {
				t.Fatalf("expected content length %d, got %d", tt.wantLength, resp.ContentLength)
			}
			if resp.ContentRange != tt.wantRange {
				t.Fatalf("expected range %q, got %q", tt.wantRange, resp.ContentRange)
			}

			body := readAll(t, resp.Body)
			if int64(len(body)) != tt.wantLength {
				t.Fatalf("expected %d body bytes, got %d", tt.wantLength, len(body))
			}
			if body[0] != tt.wantFirst || body[len(body)-1] != tt.wantLast {
				t.Fatalf("span bytes wrong: first=%d last=%d", body[0], body[len(body)-1])
			}
		})
	}
}

func TestOpenStreamUnsatisfiableRanges(t *testing.T) {
	svc, db, _ := setupService(t)
	weaponID := createWeapon(t, db, "DShK")
	asset := ingestFixture(t, svc, weaponID, strings.Repeat("b", 1000))

	tests := []struct {
		name   string
		header string
	}{
		{"start past end of file", "bytes=1000-"},
		{"start beyond end", "bytes=2000-3000"},
		{"inverted span", "bytes=500-100"},
		{"multi-range", "bytes=0-99,200-299"},
		{"missing unit prefix", "0-99"},
		{"garbage start", "bytes=abc-99"},
		{"garbage end", "bytes=0-xyz"},
		{"negative start", "bytes=-5-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.OpenStream(context.Background(), asset.StoredFilename, tt.header)
			if !errors.Is(err, ErrRangeUnsatisfiable) {
				t.Fatalf("expected ErrRangeUnsatisfiable, got %v", err)
			}
		})
	}
}

func TestOpenStreamUnknownFilename(t *testing.T) {
	svc, _, _ := setupService(t)

	_, err := svc.OpenStream(context.Background(), "weapon-video-0-missing.mp4", "")
	if !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestOpenStreamFileMissingOnDisk(t *testing.T) {
	svc, db, root := setupService(t)
	weaponID := createWeapon(t, db, "Minigun")
	asset := ingestFixture(t, svc, weaponID, "payload")

	if err := os.Remove(filepath.Join(root, asset.RelativePath)); err != nil {
		t.Fatalf("remove backing file: %v", err)
	}

	_, err := svc.OpenStream(context.Background(), asset.StoredFilename, "")
	if !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestParseRangeBounds(t *testing.T) {
	tests := []struct {
		header    string
		size      int64
		wantStart int64
		wantEnd   int64
	}{
		{"bytes=0-0", 10, 0, 0},
		{"bytes=0-", 10, 0, 9},
		{"bytes=-4", 10, 0, 4},
		{"bytes=3-100", 10, 3, 9},
		{"bytes= 2-5", 10, 2, 5},
	}

	for _, tt := range tests {
		start, end, err := parseRange(tt.header, tt.size)
		if err != nil {
			t.Fatalf("parseRange(%q, %d): %v", tt.header, tt.size, err)
		}
		if start != tt.wantStart || end != tt.wantEnd {
			t.Fatalf("parseRange(%q, %d) = %d-%d, want %d-%d", tt.header, tt.size, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}
