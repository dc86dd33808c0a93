package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/armory_media/internal/auth"
	"github.com/friendsincode/armory_media/internal/integrity"
	"github.com/friendsincode/armory_media/internal/media"
	"github.com/friendsincode/armory_media/internal/migration"
	"github.com/friendsincode/armory_media/internal/models"
)

var testSecret = []byte("test-signing-key")

type testEnv struct {
	router   chi.Router
	db       *gorm.DB
	mediaSvc *media.Service
}

func setupAPI(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Weapon{}, &models.MediaAsset{}); err != nil {
		t.Fatalf("migrate schema: %v", err)
	}

	logger := zerolog.Nop()
	store := media.NewStore(db)
	fs := media.NewFilesystemStorage(t.TempDir(), logger)
	mediaSvc := media.NewService(store, fs, media.DefaultLimits(), logger)
	migrator := migration.NewService(store, fs, logger)
	integritySvc := integrity.NewService(db, store, fs, migrator, logger)

	router := chi.NewRouter()
	router.Use(auth.Middleware(testSecret))
	apiHandler := New(db, mediaSvc, migrator, integritySvc, 1<<20, logger)
	apiHandler.Routes(router)

	return &testEnv{router: router, db: db, mediaSvc: mediaSvc}
}

func (e *testEnv) createWeapon(t *testing.T, name string) uint {
	t.Helper()
	weapon := models.Weapon{Name: name}
	if err := e.db.Create(&weapon).Error; err != nil {
		t.Fatalf("create weapon: %v", err)
	}
	return weapon.ID
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := auth.Issue(testSecret, auth.Claims{UserID: "tester", Admin: true}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// multipartUpload builds a media upload body with an explicit part
// Content-Type, which the handler reads as the declared MIME type.
func multipartUpload(t *testing.T, kind, filename, mimeType, payload string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("kind", kind); err != nil {
		t.Fatalf("write kind field: %v", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", mimeType)
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create file part: %v", err)
	}
	if _, err := io.WriteString(part, payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (e *testEnv) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestUploadMedia(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "FN SCAR")
	token := adminToken(t)

	body, contentType := multipartUpload(t, "image", "front.png", "image/png", "pngbytes")
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	data, ok := decodeBody(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %s", rec.Body.String())
	}
	stored, _ := data["filename"].(string)
	if !strings.HasPrefix(stored, "weapon-") {
		t.Fatalf("unexpected stored filename %q", stored)
	}
	if data["original_name"] != "front.png" {
		t.Fatalf("original filename lost: %v", data["original_name"])
	}
}

func TestUploadMediaRejectsDisallowedType(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "HK416")
	token := adminToken(t)

	body, contentType := multipartUpload(t, "image", "manual.pdf", "application/pdf", "%PDF-")
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid_media_type" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUploadMediaRejectsMissingWeapon(t *testing.T) {
	env := setupAPI(t)
	token := adminToken(t)

	body, contentType := multipartUpload(t, "video", "clip.mp4", "video/mp4", "frames")
	rec := env.do(t, http.MethodPost, "/api/v1/weapons/9999/media", token, body, contentType)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "weapon_not_found" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUploadMediaRejectsOversizeRequestBody(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "M240")
	token := adminToken(t)

	// The router caps request bodies at 1 MiB; push past it.
	body, contentType := multipartUpload(t, "video", "big.mp4", "video/mp4", strings.Repeat("x", 2<<20))
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "file_too_large" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUploadMediaRequiresFilePart(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "MP5")
	token := adminToken(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("kind", "image"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, &buf, w.FormDataContentType())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "file_required" {
		t.Fatalf("unexpected error body: %s", rec.Body.String())
	}
}

func TestUploadMediaRequiresAdmin(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "Glock 17")

	viewer, err := auth.Issue(testSecret, auth.Claims{UserID: "viewer"}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	body, contentType := multipartUpload(t, "image", "side.png", "image/png", "pngbytes")

	tests := []struct {
		name  string
		token string
	}{
		{"anonymous", ""},
		{"non-admin token", viewer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), tt.token, bytes.NewReader(body.Bytes()), contentType)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestListMediaFiltersByKind(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "M249")
	token := adminToken(t)

	for _, up := range []struct{ kind, filename, mime string }{
		{"image", "a.png", "image/png"},
		{"video", "b.mp4", "video/mp4"},
	} {
		body, contentType := multipartUpload(t, up.kind, up.filename, up.mime, "payload")
		rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed upload failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/weapons/%d/media?kind=video", weaponID), "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ := decodeBody(t, rec)["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 video asset, got %d", len(data))
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/weapons/%d/media?kind=bogus", weaponID), "", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bogus kind, got %d", rec.Code)
	}
}

func TestMediaStats(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "M1911")
	token := adminToken(t)

	for _, payload := range []string{"aaaa", "bbbbbbbb"} {
		body, contentType := multipartUpload(t, "image", "x.png", "image/png", payload)
		rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed upload failed: %d", rec.Code)
		}
	}

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/weapons/%d/media/stats", weaponID), "", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data, ok := decodeBody(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("missing data envelope: %s", rec.Body.String())
	}
	if data["total_assets"].(float64) != 2 {
		t.Fatalf("expected 2 assets, got %v", data["total_assets"])
	}
	if data["total_size"].(float64) != 12 {
		t.Fatalf("expected 12 total bytes, got %v", data["total_size"])
	}
	if data["avg_size"].(float64) != 6 {
		t.Fatalf("expected average 6, got %v", data["avg_size"])
	}
}

func TestUpdateAndDeleteMedia(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "AUG")
	token := adminToken(t)

	body, contentType := multipartUpload(t, "image", "x.png", "image/png", "payload")
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed upload failed: %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	id := int(data["id"].(float64))

	rec = env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/media/%d", id), token, strings.NewReader(`{"description":"updated"}`), "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody(t, rec)["data"].(map[string]any)
	if updated["description"] != "updated" {
		t.Fatalf("description not updated: %v", updated["description"])
	}

	rec = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/media/%d", id), token, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/media/%d", id), "", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStreamMedia(t *testing.T) {
	env := setupAPI(t)
	weaponID := env.createWeapon(t, "Barrett M82")
	token := adminToken(t)

	payload := strings.Repeat("v", 1000)
	body, contentType := multipartUpload(t, "video", "shot.mp4", "video/mp4", payload)
	rec := env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/weapons/%d/media", weaponID), token, body, contentType)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed upload failed: %d %s", rec.Code, rec.Body.String())
	}
	stored := decodeBody(t, rec)["data"].(map[string]any)["filename"].(string)

	t.Run("full body", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/"+stored, "", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get("Accept-Ranges") != "bytes" {
			t.Fatal("missing Accept-Ranges header")
		}
		if rec.Header().Get("Content-Length") != "1000" {
			t.Fatalf("unexpected Content-Length %s", rec.Header().Get("Content-Length"))
		}
		if rec.Body.Len() != 1000 {
			t.Fatalf("expected 1000 body bytes, got %d", rec.Body.Len())
		}
	})

	t.Run("byte range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/"+stored, nil)
		req.Header.Set("Range", "bytes=100-199")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusPartialContent {
			t.Fatalf("expected 206, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
			t.Fatalf("unexpected Content-Range %q", got)
		}
		if rec.Header().Get("Content-Length") != "100" {
			t.Fatalf("unexpected Content-Length %s", rec.Header().Get("Content-Length"))
		}
		if rec.Body.Len() != 100 {
			t.Fatalf("expected 100 body bytes, got %d", rec.Body.Len())
		}
	})

	t.Run("unsatisfiable range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/media/"+stored, nil)
		req.Header.Set("Range", "bytes=5000-")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestedRangeNotSatisfiable {
			t.Fatalf("expected 416, got %d", rec.Code)
		}
		if got := rec.Header().Get("Content-Range"); got != "bytes */1000" {
			t.Fatalf("unexpected Content-Range %q", got)
		}
	})

	t.Run("unknown filename", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/media/weapon-video-0-nothere.mp4", "", nil, "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if decodeBody(t, rec)["error"] != "asset_not_found" {
			t.Fatalf("unexpected error body: %s", rec.Body.String())
		}
	})
}

func TestGetMediaInvalidID(t *testing.T) {
	env := setupAPI(t)

	for _, raw := range []string{"0", "abc", "-3"} {
		rec := env.do(t, http.MethodGet, "/api/v1/media/"+raw, "", nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("id %q: expected 400, got %d", raw, rec.Code)
		}
	}
}
