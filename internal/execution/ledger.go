package execution

import (
	"github.com/shopspring/decimal"
)

// ledger tracks running cash and positions during a paper execution.
// Money moves through decimals so repeated fills do not accumulate
// float error.
type ledger struct {
	cash      decimal.Decimal
	positions map[string]decimal.Decimal
}

func newLedger(cash float64, positions map[string]float64) *ledger {
	l := &ledger{
		cash:      decimal.NewFromFloat(cash),
		positions: make(map[string]decimal.Decimal, len(positions)),
	}
	for symbol, qty := range positions {
		l.positions[symbol] = decimal.NewFromFloat(qty)
	}
	return l
}

// applySell credits the proceeds and reduces the position, removing it
// when nothing is left
func (l *ledger) applySell(symbol string, qty, price float64) {
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)

	l.cash = l.cash.Add(q.Mul(p))

	remaining := l.positions[symbol].Sub(q)
	if remaining.IsPositive() {
		l.positions[symbol] = remaining
	} else {
		delete(l.positions, symbol)
	}
}

// applyBuy debits the cost and increases the position
func (l *ledger) applyBuy(symbol string, qty, price float64) {
	q := decimal.NewFromFloat(qty)
	p := decimal.NewFromFloat(price)

	l.cash = l.cash.Sub(q.Mul(p))
	l.positions[symbol] = l.positions[symbol].Add(q)
}

func (l *ledger) Cash() float64 {
	f, _ := l.cash.Float64()
	return f
}

func (l *ledger) Positions() map[string]float64 {
	out := make(map[string]float64, len(l.positions))
	for symbol, qty := range l.positions {
		f, _ := qty.Float64()
		out[symbol] = f
	}
	return out
}
