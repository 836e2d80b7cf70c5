package api

import (
	"net/http"
	"strconv"

	"github.com/ayusman/servotrack/internal/store"
)

// DefaultLimit caps list responses when no limit is given.
const DefaultLimit = 50

// HistoryHandler serves stored calibrations and sessions.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler with the given store.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type calibrationsResponse struct {
	Calibrations []*store.Calibration `json:"calibrations"`
}

type sessionsResponse struct {
	Sessions []*store.Session `json:"sessions"`
}

// Calibrations handles GET /api/calibrations.
func (h *HistoryHandler) Calibrations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	list, err := h.store.Calibrations().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calibrations")
		return
	}
	if list == nil {
		list = []*store.Calibration{}
	}
	writeJSON(w, http.StatusOK, calibrationsResponse{Calibrations: list})
}

// Sessions handles GET /api/sessions.
func (h *HistoryHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	list, err := h.store.Sessions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if list == nil {
		list = []*store.Session{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Sessions: list})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return DefaultLimit, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}
