// Package paper provides an in-process broker that honors the live order
// surface while filling and closing positions against prices pushed by the
// caller. It backs dry runs and the end-to-end tests.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/broker"
)

const epsilon = 1e-9

type order struct {
	id       string
	symbol   string
	token    int64
	qty      int
	entry    float64
	stop     float64
	target   float64
	openedAt time.Time
}

// Broker simulates a long-only venue with bracket semantics. Entries fill at
// the last pushed price; a later push at or below the stop closes at the stop,
// at or above the target closes at the target.
type Broker struct {
	mu       sync.Mutex
	log      zerolog.Logger
	recorder TradeRecorder

	cash     float64
	realized float64
	prices   map[int64]float64
	orders   map[string]*order
	bySymbol map[string]*order

	now func() time.Time
}

// NewBroker builds a paper broker with the given starting cash. A nil recorder
// drops completed trades.
func NewBroker(startingCash float64, recorder TradeRecorder, log zerolog.Logger) *Broker {
	return &Broker{
		log:      log,
		recorder: recorder,
		cash:     startingCash,
		prices:   make(map[int64]float64),
		orders:   make(map[string]*order),
		bySymbol: make(map[string]*order),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetPrice pushes a last traded price without evaluating exits, used to seed
// entry prices before placing.
func (b *Broker) SetPrice(token int64, price float64) {
	b.mu.Lock()
	b.prices[token] = price
	b.mu.Unlock()
}

// Tick pushes a price and closes any open position whose stop or target the
// price reaches. The stop is checked first.
func (b *Broker) Tick(token int64, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prices[token] = price
	for _, o := range b.orders {
		if o.token != token {
			continue
		}
		switch {
		case price <= o.stop+epsilon:
			b.closeLocked(o, o.stop, "stop")
		case price >= o.target-epsilon:
			b.closeLocked(o, o.target, "target")
		}
		return
	}
}

// PlaceOrder fills immediately at the last pushed price for the token.
func (b *Broker) PlaceOrder(ctx context.Context, req broker.OrderRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Qty <= 0 {
		return "", errors.New("quantity must be positive")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.prices[req.Token]
	if !ok || price <= 0 {
		return "", fmt.Errorf("no price for token %d", req.Token)
	}
	if _, exists := b.bySymbol[req.Symbol]; exists {
		return "", fmt.Errorf("position already open for %s", req.Symbol)
	}
	notional := float64(req.Qty) * price
	if notional > b.cash+epsilon {
		return "", errors.New("insufficient cash for buy")
	}

	o := &order{
		id:       uuid.NewString(),
		symbol:   req.Symbol,
		token:    req.Token,
		qty:      req.Qty,
		entry:    price,
		stop:     req.Stop,
		target:   req.Target,
		openedAt: b.now(),
	}
	b.cash -= notional
	b.orders[o.id] = o
	b.bySymbol[o.symbol] = o
	b.log.Debug().Str("sym", o.symbol).Str("order", o.id).Float64("entry", o.entry).Msg("paper fill")
	return o.id, nil
}

// ModifyStop replaces the working stop of an open order. Lowering the stop is
// rejected so a trailing caller cannot loosen protection.
func (b *Broker) ModifyStop(ctx context.Context, orderID string, stop float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	o, ok := b.orders[orderID]
	if !ok {
		return fmt.Errorf("unknown order %s", orderID)
	}
	if stop < o.stop-epsilon {
		return fmt.Errorf("stop %.2f below working stop %.2f", stop, o.stop)
	}
	o.stop = stop
	return nil
}

// OpenPositions lists positions not yet closed by a stop or target.
func (b *Broker) OpenPositions(ctx context.Context) ([]broker.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]broker.Position, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, broker.Position{
			Symbol:    o.symbol,
			Qty:       o.qty,
			LastPrice: b.prices[o.token],
		})
	}
	return out, nil
}

// LastPrices returns the last pushed price for each requested token.
func (b *Broker) LastPrices(ctx context.Context, tokens []int64) (map[int64]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[int64]float64, len(tokens))
	for _, t := range tokens {
		if px, ok := b.prices[t]; ok && px > 0 {
			out[t] = px
		}
	}
	return out, nil
}

// Cash reports free cash not tied up in open positions.
func (b *Broker) Cash() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cash
}

// RealizedPnL returns total closed-trade profit and loss.
func (b *Broker) RealizedPnL() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.realized
}

func (b *Broker) closeLocked(o *order, exit float64, reason string) {
	pnl := (exit - o.entry) * float64(o.qty)
	b.realized += pnl
	b.cash += float64(o.qty) * exit
	delete(b.orders, o.id)
	delete(b.bySymbol, o.symbol)

	trade := Trade{
		OrderID:  o.id,
		Symbol:   o.symbol,
		Qty:      o.qty,
		Entry:    o.entry,
		Exit:     exit,
		Reason:   reason,
		PnL:      pnl,
		OpenedAt: o.openedAt,
		ClosedAt: b.now(),
	}
	if b.recorder != nil {
		b.recorder.Record(trade)
	}
	b.log.Info().Str("sym", o.symbol).Str("reason", reason).Float64("pnl", pnl).Msg("paper exit")
}
