package handlers

import (
	"net/http"
	"strconv"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/ops"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// AuditHandler handles audit trail API endpoints
type AuditHandler struct {
	recorder *ops.AuditRecorder
	logger   *logger.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(recorder *ops.AuditRecorder, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		recorder: recorder,
		logger:   log,
	}
}

// ListEvents returns recent audit events, newest first
// GET /api/audit/events?limit=50
func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			respondError(w, http.StatusBadRequest, "Invalid limit (must be 1-500)")
			return
		}
		limit = n
	}

	events, err := h.recorder.ListEvents(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list audit events")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve audit events")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}
