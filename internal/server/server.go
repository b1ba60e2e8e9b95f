// Package server provides the HTTP interface: the dashboard, the MJPEG
// feed, alert polling and acknowledgment, and the screenshot log.
package server

import (
	"embed"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/ayusman/distressd/internal/screenshot"
	"github.com/ayusman/distressd/internal/server/api"
	"github.com/ayusman/distressd/internal/store"
)

//go:embed web
var webFS embed.FS

// Config holds the server configuration. Routes whose dependencies are nil
// are not registered.
type Config struct {
	// StaticDir overrides the embedded dashboard when set.
	StaticDir  string
	Store      *store.Store
	Recorder   *screenshot.Recorder
	Alerts     AlertSource
	Frames     FrameSource
	CameraOpen func() bool
}

// Server represents the HTTP server for the distress monitor.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	events  *EventsHandler
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = withRequestLogging(s.mux)
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.config.Frames != nil {
		s.mux.Handle("GET /video_feed", NewStreamHandler(s.config.Frames))
	}

	if s.config.Alerts != nil {
		alerts := api.NewAlertHandler(s.config.Alerts)
		s.mux.HandleFunc("GET /check_gesture", alerts.CheckGesture)
		s.mux.HandleFunc("GET /check_alert", alerts.CheckAlert)
		s.mux.HandleFunc("POST /acknowledge_alert", alerts.Acknowledge)

		s.events = NewEventsHandler(s.config.Alerts)
		s.mux.Handle("GET /api/events", s.events)
	}

	if s.config.Store != nil && s.config.Recorder != nil {
		screenshots := api.NewScreenshotHandler(s.config.Store, s.config.Recorder)
		s.mux.Handle("GET /get_screenshots", gzhttp.GzipHandler(http.HandlerFunc(screenshots.List)))
		s.mux.HandleFunc("GET /screenshots/{filename}", screenshots.Serve)
		s.mux.HandleFunc("GET /api/screenshots/{filename}/thumbnail", screenshots.Thumbnail)
		s.mux.HandleFunc("GET /api/screenshots/archive", screenshots.Archive)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	} else {
		dashboard, err := fs.Sub(webFS, "web")
		if err != nil {
			panic(err)
		}
		s.mux.Handle("/", http.FileServerFS(dashboard))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close detaches the server from the alert state.
func (s *Server) Close() {
	if s.events != nil {
		s.events.Close()
	}
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.CameraOpen != nil {
		response["cameraOpen"] = s.config.CameraOpen()
	}
	if s.config.Alerts != nil {
		response["alertActive"] = s.config.Alerts.Snapshot().Active
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
