package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Order is a single buy/sell instruction derived from a plan item.
// EstimatedCost is the cash the order is expected to consume (buys only)
// and drives the cash ration ordering.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	PlanID        uuid.UUID   `json:"plan_id"`
	ExecutionID   *uuid.UUID  `json:"execution_id,omitempty"`
	Symbol        string      `json:"symbol"`
	Market        Market      `json:"market"`
	Side          OrderSide   `json:"side"`
	Qty           float64     `json:"qty"`
	OrderType     OrderType   `json:"order_type"`
	LimitPrice    float64     `json:"limit_price,omitempty"`
	EstimatedCost float64     `json:"estimated_cost,omitempty"`
	Status        OrderStatus `json:"status"`
	BrokerOrderID string      `json:"broker_order_id,omitempty"`
	Error         string      `json:"error,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

// IsSkipped reports whether the order lost the cash ration
func (o *Order) IsSkipped() bool {
	return o.Status == OrderSkipped
}

// Fill is one (partial or full) execution of an order. Paper execution
// produces exactly one full fill per non-skipped order.
type Fill struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	FilledQty   float64   `json:"filled_qty"`
	FilledPrice float64   `json:"filled_price"`
	FilledAt    time.Time `json:"filled_at"`
}

// Execution is the one-and-only execution of an approved plan.
// plan_id carries a storage-level UNIQUE constraint; idempotent start
// relies on it.
type Execution struct {
	ID        uuid.UUID              `json:"id"`
	PlanID    uuid.UUID              `json:"plan_id"`
	Status    ExecutionStatus        `json:"status"`
	StartedAt *time.Time             `json:"started_at,omitempty"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Policy    map[string]interface{} `json:"policy,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Run is an audit-correlation record for one engine operation
type Run struct {
	ID        uuid.UUID              `json:"id"`
	Kind      RunKind                `json:"kind"`
	Status    RunStatus              `json:"status"`
	StartedAt time.Time              `json:"started_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Error     string                 `json:"error,omitempty"`
}
