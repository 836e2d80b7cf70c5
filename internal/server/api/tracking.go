package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ayusman/servotrack/internal/app"
	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/distance"
)

// RequestTimeout bounds how long a handler waits for the loop to apply a
// command.
const RequestTimeout = 5 * time.Second

// Controller is the command surface of the tracking loop.
type Controller interface {
	Status() app.Status
	RequestMode(ctx context.Context, mode config.Mode) error
	RequestCalibration(ctx context.Context) (float64, error)
}

// TrackingHandler serves status, mode and calibration requests.
type TrackingHandler struct {
	ctrl Controller
}

// NewTrackingHandler creates a TrackingHandler over ctrl.
func NewTrackingHandler(ctrl Controller) *TrackingHandler {
	return &TrackingHandler{ctrl: ctrl}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Mode  config.Mode   `json:"mode"`
	Modes []config.Mode `json:"modes"`
}

type calibrateResponse struct {
	FocalLengthPx float64 `json:"focal_length_px"`
}

// Status handles GET /api/status.
func (h *TrackingHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.ctrl.Status())
}

// Mode handles GET and PUT /api/mode.
func (h *TrackingHandler) Mode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeResponse{Mode: h.ctrl.Status().Mode, Modes: config.Modes()})
	case http.MethodPut:
		h.setMode(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TrackingHandler) setMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	mode, err := config.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	if err := h.ctrl.RequestMode(ctx, mode); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode, Modes: config.Modes()})
}

// Calibrate handles POST /api/calibrate.
func (h *TrackingHandler) Calibrate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()

	focal, err := h.ctrl.RequestCalibration(ctx)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, calibrateResponse{FocalLengthPx: focal})
}

// statusFor maps loop errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrUnknownMode), errors.Is(err, distance.ErrInvalidWidth):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrNoTarget):
		return http.StatusConflict
	case errors.Is(err, app.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
