package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// ControlHandler handles kill switch API endpoints
// ⭐ SSOT: Control API 핸들러는 이 구조체에서만
type ControlHandler struct {
	controls *guards.ControlRepository
	audit    execution.Auditor
	logger   *logger.Logger
}

// NewControlHandler creates a new control handler
func NewControlHandler(controls *guards.ControlRepository, audit execution.Auditor, log *logger.Logger) *ControlHandler {
	return &ControlHandler{
		controls: controls,
		audit:    audit,
		logger:   log,
	}
}

// Get returns the current control state.
// 레코드가 없으면 kill_switch=false로 초기화된다.
// GET /api/controls
func (h *ControlHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	control, err := h.controls.GetControl(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get controls")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve controls")
		return
	}

	respondJSON(w, http.StatusOK, control)
}

// SetKillSwitch toggles the global kill switch
// POST /api/controls/kill-switch
func (h *ControlHandler) SetKillSwitch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		On     bool   `json:"on"`
		Reason string `json:"reason"`
		Actor  string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Actor == "" {
		req.Actor = "api"
	}

	if err := h.controls.SetKillSwitch(ctx, req.On, req.Reason); err != nil {
		h.logger.WithError(err).Error("Failed to set kill switch")
		respondError(w, http.StatusInternalServerError, "Failed to set kill switch")
		return
	}

	if h.audit != nil {
		if _, err := h.audit.Record(ctx, "kill_switch_set", req.Actor, "", uuid.Nil, map[string]interface{}{
			"on":     req.On,
			"reason": req.Reason,
		}); err != nil {
			h.logger.WithError(err).Warn("Failed to record kill switch audit event")
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"kill_switch": req.On,
	})
}
