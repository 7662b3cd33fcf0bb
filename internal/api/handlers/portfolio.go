package handlers

import (
	"errors"
	"net/http"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/portfolio"
	"github.com/r8qxq969n9-ship-it/trading-system/pkg/logger"
)

// PortfolioHandler handles portfolio API endpoints
type PortfolioHandler struct {
	repo   *portfolio.Repository
	logger *logger.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(repo *portfolio.Repository, log *logger.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		repo:   repo,
		logger: log,
	}
}

// GetSnapshot returns the most recent portfolio snapshot
// GET /api/portfolio/snapshot
func (h *PortfolioHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.repo.LatestSnapshot(ctx)
	if err != nil {
		if errors.Is(err, portfolio.ErrNoSnapshot) {
			respondError(w, http.StatusNotFound, "No portfolio snapshot found")
			return
		}
		h.logger.WithError(err).Error("Failed to get portfolio snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve portfolio snapshot")
		return
	}

	respondJSON(w, http.StatusOK, snap)
}
