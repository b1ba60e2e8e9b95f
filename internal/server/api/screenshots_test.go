package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/ayusman/distressd/internal/screenshot"
	"github.com/ayusman/distressd/internal/store"
)

// newTestHandler creates a handler over a temporary store and screenshot
// directory.
func newTestHandler(t *testing.T) (*ScreenshotHandler, *store.Store, *screenshot.Recorder) {
	t.Helper()
	dir := t.TempDir()

	s, err := store.New(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rec, err := screenshot.NewRecorder(filepath.Join(dir, "screenshots"), s.Screenshots())
	if err != nil {
		t.Fatalf("failed to create recorder: %v", err)
	}

	return NewScreenshotHandler(s, rec), s, rec
}

// addScreenshot writes a JPEG into the recorder directory and logs it.
func addScreenshot(t *testing.T, s *store.Store, rec *screenshot.Recorder, name, status, ts string) {
	t.Helper()

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 640, 360)), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(rec.Dir(), name), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := s.Screenshots().Create(&store.Screenshot{Filename: name, Status: status, Timestamp: ts}); err != nil {
		t.Fatalf("create: %v", err)
	}
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestScreenshotHandler_List(t *testing.T) {
	h, s, rec := newTestHandler(t)

	t.Run("empty log is an empty array", func(t *testing.T) {
		w := serve(h.List, "GET /get_screenshots", "/get_screenshots")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
			t.Errorf("body = %s, want []", got)
		}
	})

	addScreenshot(t, s, rec, "correct_2026-01-01 10-00-00.jpg", "correct", "2026-01-01 10-00-00")
	addScreenshot(t, s, rec, "incorrect_2026-01-01 10-00-07.jpg", "incorrect", "2026-01-01 10-00-07")

	t.Run("newest first with image paths", func(t *testing.T) {
		w := serve(h.List, "GET /get_screenshots", "/get_screenshots")

		var list []screenshotResponse
		if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("len = %d, want 2", len(list))
		}
		want := screenshotResponse{
			Filename:  "incorrect_2026-01-01 10-00-07.jpg",
			Status:    "incorrect",
			Timestamp: "2026-01-01 10-00-07",
			ImagePath: "/screenshots/incorrect_2026-01-01 10-00-07.jpg",
		}
		if list[0] != want {
			t.Errorf("list[0] = %+v, want %+v", list[0], want)
		}
	})

	t.Run("status filter", func(t *testing.T) {
		w := serve(h.List, "GET /get_screenshots", "/get_screenshots?status=correct")

		var list []screenshotResponse
		json.NewDecoder(w.Body).Decode(&list)
		if len(list) != 1 || list[0].Status != "correct" {
			t.Errorf("list = %+v, want one correct", list)
		}
	})

	t.Run("invalid status filter", func(t *testing.T) {
		w := serve(h.List, "GET /get_screenshots", "/get_screenshots?status=maybe")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestScreenshotHandler_Serve(t *testing.T) {
	h, s, rec := newTestHandler(t)
	addScreenshot(t, s, rec, "correct_a.jpg", "correct", "t")

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"existing file", "/screenshots/correct_a.jpg", http.StatusOK},
		{"missing file", "/screenshots/correct_b.jpg", http.StatusNotFound},
		{"not a jpg", "/screenshots/notes.txt", http.StatusBadRequest},
		{"hidden file", "/screenshots/.hidden.jpg", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(h.Serve, "GET /screenshots/{filename}", tt.target)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && w.Header().Get("Content-Type") != "image/jpeg" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestScreenshotHandler_Thumbnail(t *testing.T) {
	h, s, rec := newTestHandler(t)
	addScreenshot(t, s, rec, "correct_a.jpg", "correct", "t")

	const pattern = "GET /api/screenshots/{filename}/thumbnail"

	t.Run("scales to requested size", func(t *testing.T) {
		w := serve(h.Thumbnail, pattern, "/api/screenshots/correct_a.jpg/thumbnail?size=160")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		cfg, err := jpeg.DecodeConfig(w.Body)
		if err != nil {
			t.Fatalf("thumbnail is not a JPEG: %v", err)
		}
		if cfg.Width != 160 || cfg.Height != 90 {
			t.Errorf("thumbnail = %dx%d, want 160x90", cfg.Width, cfg.Height)
		}
	})

	t.Run("default size", func(t *testing.T) {
		w := serve(h.Thumbnail, pattern, "/api/screenshots/correct_a.jpg/thumbnail")
		cfg, err := jpeg.DecodeConfig(w.Body)
		if err != nil {
			t.Fatalf("thumbnail is not a JPEG: %v", err)
		}
		if cfg.Width != screenshot.DefaultThumbnailSize {
			t.Errorf("width = %d, want %d", cfg.Width, screenshot.DefaultThumbnailSize)
		}
	})

	t.Run("bad size", func(t *testing.T) {
		for _, size := range []string{"0", "-3", "big"} {
			w := serve(h.Thumbnail, pattern, "/api/screenshots/correct_a.jpg/thumbnail?size="+size)
			if w.Code != http.StatusBadRequest {
				t.Errorf("size=%s: status = %d, want 400", size, w.Code)
			}
		}
	})

	t.Run("missing file", func(t *testing.T) {
		w := serve(h.Thumbnail, pattern, "/api/screenshots/nope.jpg/thumbnail")
		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}

func TestScreenshotHandler_Archive(t *testing.T) {
	h, s, rec := newTestHandler(t)
	addScreenshot(t, s, rec, "correct_a.jpg", "correct", "t1")
	addScreenshot(t, s, rec, "incorrect_b.jpg", "incorrect", "t2")

	const pattern = "GET /api/screenshots/archive"

	readZip := func(t *testing.T, w *httptest.ResponseRecorder) []string {
		t.Helper()
		if w.Header().Get("Content-Type") != "application/zip" {
			t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
		}
		zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
		if err != nil {
			t.Fatalf("invalid zip: %v", err)
		}
		var names []string
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		return names
	}

	t.Run("all screenshots", func(t *testing.T) {
		names := readZip(t, serve(h.Archive, pattern, "/api/screenshots/archive"))
		if len(names) != 2 || names[0] != "incorrect/incorrect_b.jpg" || names[1] != "correct/correct_a.jpg" {
			t.Errorf("entries = %v", names)
		}
	})

	t.Run("filtered", func(t *testing.T) {
		names := readZip(t, serve(h.Archive, pattern, "/api/screenshots/archive?status=correct"))
		if len(names) != 1 || names[0] != "correct/correct_a.jpg" {
			t.Errorf("entries = %v", names)
		}
	})

	t.Run("invalid filter", func(t *testing.T) {
		w := serve(h.Archive, pattern, "/api/screenshots/archive?status=all")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}
