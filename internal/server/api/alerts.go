package api

import (
	"net/http"

	"github.com/ayusman/distressd/internal/alert"
)

// AlertController is the alert state the handlers read and acknowledge.
type AlertController interface {
	Snapshot() alert.Snapshot
	Acknowledge() alert.Snapshot
}

// AlertHandler serves the alert polling endpoints and the acknowledge command.
type AlertHandler struct {
	alerts AlertController
}

// NewAlertHandler creates a new AlertHandler.
func NewAlertHandler(a AlertController) *AlertHandler {
	return &AlertHandler{alerts: a}
}

type gestureResponse struct {
	GestureDetected bool    `json:"gestureDetected"`
	ImagePath       *string `json:"imagePath"`
}

type alertResponse struct {
	AlertActive     bool    `json:"alertActive"`
	LastScreenshot  *string `json:"lastScreenshot"`
	GestureDetected bool    `json:"gestureDetected"`
}

type acknowledgeResponse struct {
	Success bool `json:"success"`
}

// CheckGesture handles GET /check_gesture.
func (h *AlertHandler) CheckGesture(w http.ResponseWriter, r *http.Request) {
	snap := h.alerts.Snapshot()
	writeJSON(w, http.StatusOK, gestureResponse{
		GestureDetected: snap.GestureDetected,
		ImagePath:       optional(snap.LastScreenshotPath),
	})
}

// CheckAlert handles GET /check_alert.
func (h *AlertHandler) CheckAlert(w http.ResponseWriter, r *http.Request) {
	snap := h.alerts.Snapshot()
	writeJSON(w, http.StatusOK, alertResponse{
		AlertActive:     snap.Active,
		LastScreenshot:  optional(snap.LastScreenshotPath),
		GestureDetected: snap.GestureDetected,
	})
}

// Acknowledge handles POST /acknowledge_alert. It always succeeds.
func (h *AlertHandler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	h.alerts.Acknowledge()
	writeJSON(w, http.StatusOK, acknowledgeResponse{Success: true})
}

// optional maps an empty path to JSON null.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
