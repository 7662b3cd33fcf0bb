package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// PlanHandler handles rebalance plan API endpoints
// ⭐ SSOT: Plan API 핸들러는 이 구조체에서만
type PlanHandler struct {
	engine *execution.Engine
	logger *logger.Logger
}

// NewPlanHandler creates a new plan handler
func NewPlanHandler(engine *execution.Engine, log *logger.Logger) *PlanHandler {
	return &PlanHandler{
		engine: engine,
		logger: log,
	}
}

// Generate runs the momentum pipeline and proposes a new rebalance plan
// POST /api/plans/generate
func (h *PlanHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Actor string `json:"actor"`
	}
	// Body is optional, actor defaults to "api"
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Actor == "" {
		req.Actor = "api"
	}

	plan, err := h.engine.GeneratePlan(ctx, req.Actor)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate plan")
		respondDomainError(w, err, "Failed to generate plan")
		return
	}

	respondJSON(w, http.StatusCreated, plan)
}

// List returns recent plans, optionally filtered by status
// GET /api/plans?status=PROPOSED&limit=20
func (h *PlanHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var status *contracts.PlanStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := contracts.PlanStatus(raw)
		switch s {
		case contracts.PlanProposed, contracts.PlanApproved, contracts.PlanRejected, contracts.PlanExpired:
			status = &s
		default:
			respondError(w, http.StatusBadRequest, "Invalid status (valid: PROPOSED, APPROVED, REJECTED, EXPIRED)")
			return
		}
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			respondError(w, http.StatusBadRequest, "Invalid limit (must be 1-100)")
			return
		}
		limit = n
	}

	plans, err := h.engine.ListPlans(ctx, status, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list plans")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve plans")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"plans": plans,
		"count": len(plans),
	})
}

// Get returns a single plan with its items
// GET /api/plans/{id}
func (h *PlanHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	plan, err := h.engine.GetPlan(ctx, planID)
	if err != nil {
		respondDomainError(w, err, "Failed to retrieve plan")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// Approve transitions a PROPOSED plan to APPROVED
// POST /api/plans/{id}/approve
func (h *PlanHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	var req struct {
		ApprovedBy string `json:"approved_by"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.ApprovedBy == "" {
		req.ApprovedBy = "api"
	}

	plan, err := h.engine.ApprovePlan(ctx, planID, req.ApprovedBy)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to approve plan")
		respondDomainError(w, err, "Failed to approve plan")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// Reject transitions a PROPOSED plan to REJECTED
// POST /api/plans/{id}/reject
func (h *PlanHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	var req struct {
		RejectedBy string `json:"rejected_by"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.RejectedBy == "" {
		req.RejectedBy = "api"
	}

	plan, err := h.engine.RejectPlan(ctx, planID, req.RejectedBy)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to reject plan")
		respondDomainError(w, err, "Failed to reject plan")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

// Expire transitions a PROPOSED plan to EXPIRED
// POST /api/plans/{id}/expire
func (h *PlanHandler) Expire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	plan, err := h.engine.ExpirePlan(ctx, planID)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to expire plan")
		respondDomainError(w, err, "Failed to expire plan")
		return
	}

	respondJSON(w, http.StatusOK, plan)
}

func parsePlanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := mux.Vars(r)["id"]
	planID, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid plan ID")
		return uuid.Nil, false
	}
	return planID, true
}
