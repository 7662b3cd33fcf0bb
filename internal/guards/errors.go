package guards

import (
	"errors"
	"fmt"
)

// Machine-readable guard error codes
const (
	CodeKillSwitchOn        = "KILL_SWITCH_ON"
	CodeLiveTradingDisabled = "LIVE_TRADING_DISABLED"
	CodePlanNotFound        = "PLAN_NOT_FOUND"
	CodePlanNotApproved     = "PLAN_NOT_APPROVED"
)

// GuardError is a structured precondition failure. Callers branch on
// Code rather than parsing messages.
type GuardError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (e *GuardError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s (reason: %s)", e.Code, e.Message, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCode reports whether err is a GuardError carrying the given code
func IsCode(err error, code string) bool {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// NewKillSwitchOn builds the conflict-class kill switch error
func NewKillSwitchOn(reason string) *GuardError {
	return &GuardError{
		Code:    CodeKillSwitchOn,
		Message: "Kill switch is ON. Trading operations are disabled.",
		Reason:  reason,
	}
}

// NewLiveTradingDisabled builds the live trading gate error
func NewLiveTradingDisabled() *GuardError {
	return &GuardError{
		Code:    CodeLiveTradingDisabled,
		Message: "Live trading is disabled. ENABLE_LIVE_TRADING must be true.",
	}
}

// NewPlanNotFound builds the not-found error for a plan reference
func NewPlanNotFound(planID string) *GuardError {
	return &GuardError{
		Code:    CodePlanNotFound,
		Message: fmt.Sprintf("Plan %s not found", planID),
	}
}

// NewPlanNotApproved builds the approval-gate error
func NewPlanNotApproved(planID, status string) *GuardError {
	return &GuardError{
		Code:    CodePlanNotApproved,
		Message: fmt.Sprintf("Plan %s is not approved. Current status: %s", planID, status),
	}
}
