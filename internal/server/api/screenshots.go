package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/distressd/internal/alert"
	"github.com/ayusman/distressd/internal/screenshot"
	"github.com/ayusman/distressd/internal/store"
)

// ScreenshotHandler serves the screenshot log, image files, thumbnails
// and zip exports.
type ScreenshotHandler struct {
	store    *store.Store
	recorder *screenshot.Recorder
}

// NewScreenshotHandler creates a new ScreenshotHandler.
func NewScreenshotHandler(s *store.Store, rec *screenshot.Recorder) *ScreenshotHandler {
	return &ScreenshotHandler{store: s, recorder: rec}
}

type screenshotResponse struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	ImagePath string `json:"imagePath"`
}

// List handles GET /get_screenshots, newest first. The optional status
// query parameter limits the list to correct or incorrect screenshots.
func (h *ScreenshotHandler) List(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	records, err := h.store.Screenshots().List(status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list screenshots")
		writeError(w, http.StatusInternalServerError, "Failed to list screenshots")
		return
	}

	response := make([]screenshotResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, screenshotResponse{
			Filename:  rec.Filename,
			Status:    rec.Status,
			Timestamp: rec.Timestamp,
			ImagePath: screenshot.URL(rec.Filename),
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// Serve handles GET /screenshots/{filename}.
func (h *ScreenshotHandler) Serve(w http.ResponseWriter, r *http.Request) {
	path, ok := h.resolve(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, path)
}

// Thumbnail handles GET /api/screenshots/{filename}/thumbnail?size=N.
func (h *ScreenshotHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	size := screenshot.DefaultThumbnailSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "size must be a positive integer")
			return
		}
		size = min(n, screenshot.MaxThumbnailSize)
	}

	path, ok := h.resolve(w, r)
	if !ok {
		return
	}

	data, err := screenshot.Thumbnail(path, size)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to generate thumbnail")
		writeError(w, http.StatusInternalServerError, "Failed to generate thumbnail")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

// Archive handles GET /api/screenshots/archive, streaming a zip of the
// logged screenshots. It honours the same status filter as List.
func (h *ScreenshotHandler) Archive(w http.ResponseWriter, r *http.Request) {
	status, ok := statusFilter(w, r)
	if !ok {
		return
	}

	records, err := h.store.Screenshots().List(status)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list screenshots")
		writeError(w, http.StatusInternalServerError, "Failed to list screenshots")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="distress-screenshots.zip"`)

	n, err := h.recorder.WriteArchive(w, records)
	if err != nil {
		// Headers are already sent; the client sees a truncated zip.
		log.Error().Err(err).Int("written", n).Msg("Failed to write screenshot archive")
		return
	}
	log.Info().Int("files", n).Str("status", status).Msg("Screenshot archive exported")
}

// resolve maps the {filename} path value to an existing file, writing an
// error response when it cannot.
func (h *ScreenshotHandler) resolve(w http.ResponseWriter, r *http.Request) (string, bool) {
	path, err := h.recorder.Path(r.PathValue("filename"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid screenshot filename")
		return "", false
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeError(w, http.StatusNotFound, "Screenshot not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Failed to read screenshot")
		}
		return "", false
	}
	return path, true
}

func statusFilter(w http.ResponseWriter, r *http.Request) (string, bool) {
	status := r.URL.Query().Get("status")
	if status != "" && !alert.Status(status).Valid() {
		writeError(w, http.StatusBadRequest, "status must be correct or incorrect")
		return "", false
	}
	return status, true
}
