package contracts

import (
	"testing"
	"time"
)

func TestPlanStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from PlanStatus
		to   PlanStatus
		want bool
	}{
		{PlanProposed, PlanApproved, true},
		{PlanProposed, PlanRejected, true},
		{PlanProposed, PlanExpired, true},
		{PlanProposed, PlanProposed, false},
		{PlanApproved, PlanProposed, false},
		{PlanApproved, PlanRejected, false},
		{PlanApproved, PlanExpired, false},
		{PlanRejected, PlanProposed, false},
		{PlanRejected, PlanApproved, false},
		{PlanExpired, PlanProposed, false},
		{PlanExpired, PlanApproved, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestExecutionStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from ExecutionStatus
		to   ExecutionStatus
		want bool
	}{
		{ExecPending, ExecRunning, true},
		{ExecPending, ExecFailed, true},
		{ExecPending, ExecDone, false},
		{ExecRunning, ExecDone, true},
		{ExecRunning, ExecFailed, true},
		{ExecRunning, ExecCanceled, true},
		{ExecRunning, ExecPending, false},
		{ExecDone, ExecRunning, false},
		{ExecFailed, ExecRunning, false},
		{ExecCanceled, ExecPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestOrderStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderCreated, OrderSent, true},
		{OrderCreated, OrderFilled, true}, // paper fill
		{OrderSent, OrderPartial, true},
		{OrderSent, OrderFilled, true},
		{OrderPartial, OrderFilled, true},
		{OrderFilled, OrderSent, false},
		{OrderSkipped, OrderCreated, false},
		{OrderSkipped, OrderSent, false},
		{OrderCanceled, OrderFilled, false},
		{OrderFailed, OrderSent, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s: got %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusTerminality(t *testing.T) {
	if PlanProposed.IsTerminal() {
		t.Error("PROPOSED must not be terminal")
	}
	for _, s := range []PlanStatus{PlanApproved, PlanRejected, PlanExpired} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}

	for _, s := range []ExecutionStatus{ExecDone, ExecFailed, ExecCanceled} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
	if ExecRunning.IsTerminal() {
		t.Error("RUNNING must not be terminal")
	}

	for _, s := range []OrderStatus{OrderFilled, OrderCanceled, OrderFailed, OrderSkipped} {
		if !s.IsTerminal() {
			t.Errorf("%s must be terminal", s)
		}
	}
}

func TestRebalancePlan_IsExpired(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		status    PlanStatus
		expiresAt *time.Time
		want      bool
	}{
		{"proposed past expiry", PlanProposed, &past, true},
		{"proposed before expiry", PlanProposed, &future, false},
		{"proposed no expiry", PlanProposed, nil, false},
		{"approved past expiry", PlanApproved, &past, false},
		{"rejected past expiry", PlanRejected, &past, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := &RebalancePlan{Status: tt.status, ExpiresAt: tt.expiresAt}
			if got := plan.IsExpired(now); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
