package paper

import (
	"sync"
	"time"
)

// Trade is one completed round trip executed by the paper broker.
type Trade struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Qty      int       `json:"qty"`
	Entry    float64   `json:"entry"`
	Exit     float64   `json:"exit"`
	Reason   string    `json:"reason"`
	PnL      float64   `json:"pnl"`
	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`
}

// TradeRecorder captures completed paper trades for later inspection.
type TradeRecorder interface {
	Record(Trade)
}

// TradeLog stores completed trades in memory for quick inspection.
type TradeLog struct {
	mu     sync.Mutex
	trades []Trade
}

// NewTradeLog creates an empty log optionally pre-sizing storage.
func NewTradeLog(capacity int) *TradeLog {
	if capacity < 0 {
		capacity = 0
	}
	return &TradeLog{trades: make([]Trade, 0, capacity)}
}

// Record appends a trade to the log.
func (l *TradeLog) Record(trade Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *TradeLog) Snapshot() []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Reset clears all stored trades.
func (l *TradeLog) Reset() {
	l.mu.Lock()
	l.trades = l.trades[:0]
	l.mu.Unlock()
}
