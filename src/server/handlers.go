package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	logger "github.com/sirupsen/logrus"

	"signalengine/src/model"
)

// signalReader is the read-only slice of SignalRepository the API serves.
type signalReader interface {
	FindActive(ctx context.Context, limit int) ([]model.SignalRecord, error)
}

// positionReader is the read-only slice of PositionRepository the API serves.
type positionReader interface {
	FindRecentClosed(ctx context.Context, limit int) ([]model.ClosedPositionRecord, error)
	CountByReason(ctx context.Context) (map[string]int64, error)
}

// positionLister answers the in-memory open set.
type positionLister interface {
	OpenPositions() []model.Position
}

type statusHandler struct {
	manager   positionLister
	signals   signalReader
	positions positionReader
}

// ActiveSignals serves GET /api/signals/active.
func (h *statusHandler) ActiveSignals(w http.ResponseWriter, r *http.Request) {
	records, err := h.signals.FindActive(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load active signals")
		return
	}
	writeJSON(w, map[string]interface{}{"signals": records, "count": len(records)})
}

// OpenPositions serves GET /api/positions/open from the lifecycle manager.
func (h *statusHandler) OpenPositions(w http.ResponseWriter, _ *http.Request) {
	open := h.manager.OpenPositions()
	writeJSON(w, map[string]interface{}{"positions": open, "count": len(open)})
}

// ClosedPositions serves GET /api/positions/closed.
func (h *statusHandler) ClosedPositions(w http.ResponseWriter, r *http.Request) {
	records, err := h.positions.FindRecentClosed(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load closed positions")
		return
	}
	writeJSON(w, map[string]interface{}{"positions": records, "count": len(records)})
}

// CloseReasonStats serves GET /api/stats/close-reasons (admin only).
func (h *statusHandler) CloseReasonStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.positions.CountByReason(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to aggregate close reasons")
		return
	}
	writeJSON(w, map[string]interface{}{"reasons": counts})
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithError(err).Error("failed to encode API response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		logger.WithError(err).Error("failed to encode API error")
	}
}
