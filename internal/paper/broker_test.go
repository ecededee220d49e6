package paper

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/broker"
)

func newTestBroker(t *testing.T, cash float64) (*Broker, *TradeLog) {
	t.Helper()
	log := NewTradeLog(4)
	return NewBroker(cash, log, zerolog.Nop()), log
}

func TestPlaceOrderFillsAtLastPrice(t *testing.T) {
	b, _ := newTestBroker(t, 100_000)
	b.SetPrice(101, 100)

	id, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "RELIANCE", Token: 101, Qty: 10, Stop: 98, Target: 104,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if id == "" {
		t.Fatalf("expected non-empty order id")
	}
	if b.Cash() != 99_000 {
		t.Fatalf("expected cash 99000, got %.0f", b.Cash())
	}

	positions, err := b.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("OpenPositions: %v", err)
	}
	if len(positions) != 1 || positions[0].Symbol != "RELIANCE" || positions[0].Qty != 10 {
		t.Fatalf("unexpected positions %+v", positions)
	}
}

func TestPlaceOrderRejectsWithoutPriceOrCash(t *testing.T) {
	b, _ := newTestBroker(t, 100)
	if _, err := b.PlaceOrder(context.Background(), broker.OrderRequest{Symbol: "X", Token: 1, Qty: 1}); err == nil {
		t.Fatalf("expected error without a seeded price")
	}
	b.SetPrice(1, 500)
	if _, err := b.PlaceOrder(context.Background(), broker.OrderRequest{Symbol: "X", Token: 1, Qty: 1, Stop: 490, Target: 520}); err == nil {
		t.Fatalf("expected error on insufficient cash")
	}
}

func TestTickClosesAtStop(t *testing.T) {
	b, log := newTestBroker(t, 100_000)
	b.SetPrice(101, 100)
	if _, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "RELIANCE", Token: 101, Qty: 10, Stop: 98, Target: 104,
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	b.Tick(101, 97.5)

	positions, _ := b.OpenPositions(context.Background())
	if len(positions) != 0 {
		t.Fatalf("expected no open positions after stop, got %+v", positions)
	}
	trades := log.Snapshot()
	if len(trades) != 1 || trades[0].Reason != "stop" || trades[0].Exit != 98 {
		t.Fatalf("unexpected trades %+v", trades)
	}
	if b.RealizedPnL() != -20 {
		t.Fatalf("expected realized -20, got %.2f", b.RealizedPnL())
	}
}

func TestTickClosesAtTarget(t *testing.T) {
	b, log := newTestBroker(t, 100_000)
	b.SetPrice(101, 100)
	if _, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "RELIANCE", Token: 101, Qty: 10, Stop: 98, Target: 104,
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	b.Tick(101, 105)

	trades := log.Snapshot()
	if len(trades) != 1 || trades[0].Reason != "target" || trades[0].Exit != 104 {
		t.Fatalf("unexpected trades %+v", trades)
	}
	if b.RealizedPnL() != 40 {
		t.Fatalf("expected realized 40, got %.2f", b.RealizedPnL())
	}
}

func TestModifyStopOnlyTightens(t *testing.T) {
	b, log := newTestBroker(t, 100_000)
	b.SetPrice(101, 100)
	id, err := b.PlaceOrder(context.Background(), broker.OrderRequest{
		Symbol: "RELIANCE", Token: 101, Qty: 10, Stop: 98, Target: 110,
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if err := b.ModifyStop(context.Background(), id, 97); err == nil {
		t.Fatalf("expected rejection when loosening the stop")
	}
	if err := b.ModifyStop(context.Background(), id, 101); err != nil {
		t.Fatalf("ModifyStop: %v", err)
	}

	// a price between the old and new stop now exits at the raised level
	b.Tick(101, 100.5)
	trades := log.Snapshot()
	if len(trades) != 1 || trades[0].Exit != 101 {
		t.Fatalf("expected exit at raised stop, got %+v", trades)
	}
}

func TestSecondEntrySameSymbolRejected(t *testing.T) {
	b, _ := newTestBroker(t, 100_000)
	b.SetPrice(101, 100)
	req := broker.OrderRequest{Symbol: "RELIANCE", Token: 101, Qty: 5, Stop: 98, Target: 104}
	if _, err := b.PlaceOrder(context.Background(), req); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := b.PlaceOrder(context.Background(), req); err == nil {
		t.Fatalf("expected rejection on duplicate symbol entry")
	}
}
