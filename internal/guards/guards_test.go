package guards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r8qxq969n9-ship-it/trading-system/internal/contracts"
)

type fakeControlStore struct {
	control contracts.Control
	err     error
}

func (f *fakeControlStore) GetControl(ctx context.Context) (*contracts.Control, error) {
	if f.err != nil {
		return nil, f.err
	}
	c := f.control
	return &c, nil
}

type fakePlanResolver struct {
	plans map[uuid.UUID]*contracts.RebalancePlan
}

func (f *fakePlanResolver) FindPlan(ctx context.Context, planID uuid.UUID) (*contracts.RebalancePlan, bool, error) {
	plan, ok := f.plans[planID]
	return plan, ok, nil
}

func TestCheckKillSwitch_Off(t *testing.T) {
	g := New(&fakeControlStore{control: contracts.Control{KillSwitch: false}}, nil, false)

	err := g.CheckKillSwitch(context.Background())
	assert.NoError(t, err)
}

func TestCheckKillSwitch_On(t *testing.T) {
	g := New(&fakeControlStore{control: contracts.Control{
		KillSwitch: true,
		Reason:     "market circuit breaker",
		UpdatedAt:  time.Now(),
	}}, nil, false)

	err := g.CheckKillSwitch(context.Background())
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeKillSwitchOn))

	var ge *GuardError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, "market circuit breaker", ge.Reason)
}

func TestCheckKillSwitch_StoreError(t *testing.T) {
	storeErr := errors.New("db down")
	g := New(&fakeControlStore{err: storeErr}, nil, false)

	err := g.CheckKillSwitch(context.Background())
	require.Error(t, err)
	assert.False(t, IsCode(err, CodeKillSwitchOn))
}

func TestCheckLiveTrading(t *testing.T) {
	disabled := New(&fakeControlStore{}, nil, false)
	err := disabled.CheckLiveTrading()
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeLiveTradingDisabled))

	enabled := New(&fakeControlStore{}, nil, true)
	assert.NoError(t, enabled.CheckLiveTrading())
}

func TestCheckPlanApproved(t *testing.T) {
	approvedID := uuid.New()
	proposedID := uuid.New()

	resolver := &fakePlanResolver{plans: map[uuid.UUID]*contracts.RebalancePlan{
		approvedID: {ID: approvedID, Status: contracts.PlanApproved},
		proposedID: {ID: proposedID, Status: contracts.PlanProposed},
	}}
	g := New(&fakeControlStore{}, resolver, false)

	// Approved plan passes and is returned
	plan, err := g.CheckPlanApproved(context.Background(), approvedID)
	require.NoError(t, err)
	assert.Equal(t, approvedID, plan.ID)

	// Proposed plan fails with a distinct "not approved" error
	_, err = g.CheckPlanApproved(context.Background(), proposedID)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodePlanNotApproved))
	assert.Contains(t, err.Error(), "PROPOSED")

	// Unknown plan fails with a distinct "not found" error
	_, err = g.CheckPlanApproved(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, IsCode(err, CodePlanNotFound))
}

func TestGuardError_Codes(t *testing.T) {
	assert.True(t, IsCode(NewKillSwitchOn("x"), CodeKillSwitchOn))
	assert.True(t, IsCode(NewLiveTradingDisabled(), CodeLiveTradingDisabled))
	assert.False(t, IsCode(NewLiveTradingDisabled(), CodeKillSwitchOn))
	assert.False(t, IsCode(errors.New("plain"), CodeKillSwitchOn))
}
