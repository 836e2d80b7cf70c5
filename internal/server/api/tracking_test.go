package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayusman/servotrack/internal/app"
	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/distance"
)

// fakeController records requests and returns canned results.
type fakeController struct {
	status   app.Status
	modeErr  error
	focal    float64
	calibErr error
	modes    []config.Mode
}

func (f *fakeController) Status() app.Status { return f.status }

func (f *fakeController) RequestMode(ctx context.Context, mode config.Mode) error {
	if f.modeErr != nil {
		return f.modeErr
	}
	f.modes = append(f.modes, mode)
	f.status.Mode = mode
	return nil
}

func (f *fakeController) RequestCalibration(ctx context.Context) (float64, error) {
	return f.focal, f.calibErr
}

func TestTrackingHandler_Status(t *testing.T) {
	ctrl := &fakeController{status: app.Status{Mode: config.ModeFace, Frames: 42}}
	h := NewTrackingHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got app.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Mode != config.ModeFace || got.Frames != 42 {
		t.Errorf("got %+v", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec = httptest.NewRecorder()
	h.Status(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestTrackingHandler_Mode(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		body     string
		modeErr  error
		wantCode int
		wantMode config.Mode
	}{
		{name: "get", method: http.MethodGet, wantCode: http.StatusOK, wantMode: config.ModeColour},
		{name: "put face", method: http.MethodPut, body: `{"mode":"face"}`, wantCode: http.StatusOK, wantMode: config.ModeFace},
		{name: "put alias", method: http.MethodPut, body: `{"mode":"color"}`, wantCode: http.StatusOK, wantMode: config.ModeColour},
		{name: "put unknown", method: http.MethodPut, body: `{"mode":"thermal"}`, wantCode: http.StatusBadRequest},
		{name: "put bad json", method: http.MethodPut, body: `{`, wantCode: http.StatusBadRequest},
		{name: "loop stopped", method: http.MethodPut, body: `{"mode":"person"}`, modeErr: app.ErrNotRunning, wantCode: http.StatusServiceUnavailable},
		{name: "detector failure", method: http.MethodPut, body: `{"mode":"face"}`, modeErr: fmt.Errorf("create face detector: boom"), wantCode: http.StatusInternalServerError},
		{name: "delete", method: http.MethodDelete, wantCode: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{status: app.Status{Mode: config.ModeColour}, modeErr: tt.modeErr}
			h := NewTrackingHandler(ctrl)

			req := httptest.NewRequest(tt.method, "/api/mode", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			h.Mode(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp modeResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", resp.Mode, tt.wantMode)
			}
			if len(resp.Modes) != len(config.Modes()) {
				t.Errorf("modes = %v", resp.Modes)
			}
		})
	}
}

func TestTrackingHandler_Calibrate(t *testing.T) {
	tests := []struct {
		name     string
		focal    float64
		err      error
		wantCode int
	}{
		{name: "ok", focal: 769.23, wantCode: http.StatusOK},
		{name: "no target", err: app.ErrNoTarget, wantCode: http.StatusConflict},
		{name: "invalid width", err: distance.ErrInvalidWidth, wantCode: http.StatusBadRequest},
		{name: "timeout", err: context.DeadlineExceeded, wantCode: http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTrackingHandler(&fakeController{focal: tt.focal, calibErr: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/calibrate", nil)
			rec := httptest.NewRecorder()
			h.Calibrate(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				var e errorResponse
				json.NewDecoder(rec.Body).Decode(&e)
				if e.Error == "" {
					t.Error("expected error message")
				}
				return
			}

			var resp calibrateResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.FocalLengthPx != tt.focal {
				t.Errorf("focal = %v, want %v", resp.FocalLengthPx, tt.focal)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calibrate", nil)
	rec := httptest.NewRecorder()
	NewTrackingHandler(&fakeController{}).Calibrate(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
