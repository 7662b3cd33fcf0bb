package contracts

// Market identifies which exchange bucket a symbol trades in
type Market string

const (
	MarketKR Market = "KR"
	MarketUS Market = "US"
)

// TradingMode identifies how orders are routed
type TradingMode string

const (
	ModeSimulation TradingMode = "SIMULATION"
	ModePaper      TradingMode = "PAPER"
	ModeLive       TradingMode = "LIVE"
)

// PlanStatus represents the rebalance plan lifecycle
// PROPOSED → APPROVED | REJECTED | EXPIRED (모두 one-way)
type PlanStatus string

const (
	PlanProposed PlanStatus = "PROPOSED"
	PlanApproved PlanStatus = "APPROVED"
	PlanRejected PlanStatus = "REJECTED"
	PlanExpired  PlanStatus = "EXPIRED"
)

// CanTransition reports whether moving to the given status is a legal
// lifecycle transition. Terminal states never reopen.
func (s PlanStatus) CanTransition(to PlanStatus) bool {
	switch s {
	case PlanProposed:
		return to == PlanApproved || to == PlanRejected || to == PlanExpired
	case PlanApproved, PlanRejected, PlanExpired:
		return false
	}
	return false
}

// IsTerminal reports whether the status admits no further transition.
// APPROVED is terminal for the plan itself; execution hangs off it as a
// separate record.
func (s PlanStatus) IsTerminal() bool {
	return s != PlanProposed
}

// ExecutionStatus represents the execution lifecycle
// PENDING → RUNNING → DONE | FAILED | CANCELED
type ExecutionStatus string

const (
	ExecPending  ExecutionStatus = "PENDING"
	ExecRunning  ExecutionStatus = "RUNNING"
	ExecDone     ExecutionStatus = "DONE"
	ExecFailed   ExecutionStatus = "FAILED"
	ExecCanceled ExecutionStatus = "CANCELED"
)

// CanTransition reports whether moving to the given status is legal
func (s ExecutionStatus) CanTransition(to ExecutionStatus) bool {
	switch s {
	case ExecPending:
		return to == ExecRunning || to == ExecFailed || to == ExecCanceled
	case ExecRunning:
		return to == ExecDone || to == ExecFailed || to == ExecCanceled
	case ExecDone, ExecFailed, ExecCanceled:
		return false
	}
	return false
}

// IsTerminal reports whether the execution has finished
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecDone || s == ExecFailed || s == ExecCanceled
}

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType represents market or limit order
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatus represents the order lifecycle.
// SKIPPED is assigned at build time when a buy loses the cash ration;
// a skipped order is persisted terminal and never sent anywhere.
type OrderStatus string

const (
	OrderCreated  OrderStatus = "CREATED"
	OrderSent     OrderStatus = "SENT"
	OrderPartial  OrderStatus = "PARTIAL"
	OrderFilled   OrderStatus = "FILLED"
	OrderCanceled OrderStatus = "CANCELED"
	OrderFailed   OrderStatus = "FAILED"
	OrderSkipped  OrderStatus = "SKIPPED"
)

// CanTransition reports whether moving to the given status is legal.
// Paper execution fills directly from CREATED (no broker round trip).
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	switch s {
	case OrderCreated:
		return to == OrderSent || to == OrderFilled || to == OrderCanceled || to == OrderFailed
	case OrderSent:
		return to == OrderPartial || to == OrderFilled || to == OrderCanceled || to == OrderFailed
	case OrderPartial:
		return to == OrderFilled || to == OrderCanceled || to == OrderFailed
	case OrderFilled, OrderCanceled, OrderFailed, OrderSkipped:
		return false
	}
	return false
}

// IsTerminal reports whether the order has finished
func (s OrderStatus) IsTerminal() bool {
	return s == OrderFilled || s == OrderCanceled || s == OrderFailed || s == OrderSkipped
}

// RunKind classifies audit-correlation runs
type RunKind string

const (
	RunKindPlan    RunKind = "PLAN"
	RunKindExecute RunKind = "EXECUTE"
	RunKindExpire  RunKind = "EXPIRE"
)

// RunStatus represents run state
type RunStatus string

const (
	RunStarted RunStatus = "STARTED"
	RunDone    RunStatus = "DONE"
	RunFailed  RunStatus = "FAILED"
)

// AlertLevel classifies notification severity
type AlertLevel string

const (
	AlertInfo             AlertLevel = "INFO"
	AlertWarn             AlertLevel = "WARN"
	AlertError            AlertLevel = "ERROR"
	AlertDecisionRequired AlertLevel = "DECISION_REQUIRED"
)
