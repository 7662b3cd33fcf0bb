package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// ExecutionHandler handles execution API endpoints
// ⭐ SSOT: Execution API 핸들러는 이 구조체에서만
type ExecutionHandler struct {
	engine *execution.Engine
	logger *logger.Logger
}

// NewExecutionHandler creates a new execution handler
func NewExecutionHandler(engine *execution.Engine, log *logger.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		engine: engine,
		logger: log,
	}
}

// Start begins execution of an approved plan.
// 같은 plan에 대해 재호출하면 기존 execution을 그대로 반환한다 (idempotent).
// POST /api/executions/{plan_id}/start
func (h *ExecutionHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := mux.Vars(r)["plan_id"]
	planID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid plan ID")
		return
	}

	var req struct {
		Policy map[string]interface{} `json:"policy"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	exec, err := h.engine.StartExecution(ctx, planID, req.Policy)
	if err != nil {
		h.logger.WithError(err).Error("Failed to start execution")
		respondDomainError(w, err, "Failed to start execution")
		return
	}

	respondJSON(w, http.StatusOK, exec)
}

// List returns recent executions, newest first
// GET /api/executions?limit=20
func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "Invalid limit (must be 1-100)")
			return
		}
		limit = n
	}

	execs, err := h.engine.ListExecutions(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list executions")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve executions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"executions": execs,
		"count":      len(execs),
	})
}

// Get returns a single execution with its orders
// GET /api/executions/{id}
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	raw := mux.Vars(r)["id"]
	execID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid execution ID")
		return
	}

	exec, found, err := h.engine.GetExecution(ctx, execID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get execution")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve execution")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "Execution not found")
		return
	}

	orders, err := h.engine.ListExecutionOrders(ctx, execID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get execution orders")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve execution orders")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"execution": exec,
		"orders":    orders,
	})
}
