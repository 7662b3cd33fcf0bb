package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/execution"
	"github.com/r8qxq969n9-ship-it/trading-system/internal/guards"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondDomainError maps engine and guard errors onto HTTP status codes.
// Unknown errors fall through to 500 with a generic message.
func respondDomainError(w http.ResponseWriter, err error, fallback string) {
	var ge *guards.GuardError
	if errors.As(err, &ge) {
		switch ge.Code {
		case guards.CodeKillSwitchOn:
			respondError(w, http.StatusConflict, ge.Error())
		case guards.CodeLiveTradingDisabled:
			respondError(w, http.StatusForbidden, ge.Error())
		case guards.CodePlanNotFound:
			respondError(w, http.StatusNotFound, ge.Error())
		case guards.CodePlanNotApproved:
			respondError(w, http.StatusConflict, ge.Error())
		default:
			respondError(w, http.StatusBadRequest, ge.Error())
		}
		return
	}

	if errors.Is(err, execution.ErrInvalidTransition) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondError(w, http.StatusInternalServerError, fallback)
}
