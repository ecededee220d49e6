package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

func sizedAt(ts time.Time, entry, stop, target float64, qty int) sig.Sized {
	return sig.Sized{
		Signal: sig.Signal{Symbol: "RELIANCE", Mode: sig.ModeBreakout, Entry: entry, Stop: stop, Target: target, Ts: ts},
		Token:  101,
		Qty:    qty,
	}
}

func bar(hour, min int, o, h, l, c float64) sig.Candle {
	return sig.Candle{
		Ts: time.Date(2025, 11, 3, hour, min, 0, 0, time.UTC),
		Open: o, High: h, Low: l, Close: c, Volume: 1000,
	}
}

func newResolver(costPct float64) *Resolver {
	return NewResolver(sig.MustClock("15:10"), costPct, zerolog.Nop())
}

func TestFillsAtOpenOfNextCandle(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 45, 99.8, 100.2, 99.5, 100),  // confirmation candle, not a fill
		bar(9, 50, 100.2, 100.5, 100, 100.3),
		bar(9, 55, 100.3, 100.6, 100.1, 100.4),
	}
	res := r.Resolve(s, candles)
	if res.Fill != 100.2 {
		t.Fatalf("expected fill at 100.2, got %.2f", res.Fill)
	}
	if !res.FillTime.Equal(candles[1].Ts) {
		t.Fatalf("expected fill at 09:50, got %v", res.FillTime)
	}
}

func TestTrailingProfitExit(t *testing.T) {
	r := newResolver(0.0005)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 50, 100.2, 100.5, 100, 100.3),
		bar(9, 55, 100.4, 104.6, 102.5, 104),  // 2R reached, stop trails to high-R
		bar(10, 0, 104, 104.2, 102.0, 102.1),  // retrace through the trailed stop
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitTrailingProfit {
		t.Fatalf("expected TRAILING_STOP_PROFIT, got %s", res.Reason)
	}
	if math.Abs(res.Exit-102.4) > 1e-9 {
		t.Fatalf("expected exit at 102.4, got %.4f", res.Exit)
	}
	wantPnL := (102.4-100.2)*10 - 0.0005*10*100.2
	if math.Abs(res.PnL-wantPnL) > 1e-9 {
		t.Fatalf("expected pnl %.4f, got %.4f", wantPnL, res.PnL)
	}
}

func TestStopLossBelowFill(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 50, 100, 100.5, 99.8, 100.2),
		bar(9, 55, 100, 100.4, 97.5, 97.8),
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitStopLoss || res.Exit != 98 {
		t.Fatalf("expected STOP_LOSS at 98, got %s at %.2f", res.Reason, res.Exit)
	}
	if res.PnL != -20 {
		t.Fatalf("expected pnl -20, got %.2f", res.PnL)
	}
}

func TestTargetExit(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 101, 10)
	candles := []sig.Candle{
		bar(9, 50, 100, 100.2, 99.9, 100.1),
		bar(9, 55, 100.6, 101.2, 100.5, 101),
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitTarget || res.Exit != 101 {
		t.Fatalf("expected TARGET at 101, got %s at %.2f", res.Reason, res.Exit)
	}
}

func TestIntrabarTieBreakPrefersNearerLevel(t *testing.T) {
	r := newResolver(0)

	// stop 2 below the open, target 1 above: target assumed to trade first
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 101, 10)
	candles := []sig.Candle{
		bar(9, 50, 100, 100.2, 99.9, 100),
		bar(9, 55, 100, 101.5, 97.9, 99),
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitTargetIntrabar || res.Exit != 101 {
		t.Fatalf("expected TARGET_INTRABAR at 101, got %s at %.2f", res.Reason, res.Exit)
	}

	// trailed stop 1 above the open, target 2 above: stop side wins the tie
	s = sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 99, 102, 10)
	candles = []sig.Candle{
		bar(9, 50, 100, 100.2, 99.9, 100),
		bar(9, 55, 100, 102, 99, 100.5),
	}
	res = r.Resolve(s, candles)
	if res.Reason != ExitTrailingIntrabar {
		t.Fatalf("expected TRAILING_STOP_INTRABAR, got %s", res.Reason)
	}
	if math.Abs(res.Exit-101) > 1e-9 {
		t.Fatalf("expected exit at trailed stop 101, got %.4f", res.Exit)
	}
}

func TestSessionCutoffExitsAtClose(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 50, 100, 100.3, 99.9, 100.1),
		bar(15, 10, 100.2, 100.4, 99.8, 100.25),
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitSessionEnd || res.Exit != 100.25 {
		t.Fatalf("expected TIME_EXIT at close, got %s at %.2f", res.Reason, res.Exit)
	}
}

func TestStopHonoredOnCutoffCandle(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 50, 100, 100.3, 99.9, 100.1),
		bar(15, 10, 99, 99.2, 97, 97.2), // trades through the stop on the cutoff bar
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitStopLoss || res.Exit != 98 {
		t.Fatalf("expected STOP_LOSS at 98, got %s at %.2f", res.Reason, res.Exit)
	}
	if res.PnL != -20 {
		t.Fatalf("expected pnl -20, got %.2f", res.PnL)
	}
}

func TestEndOfDataCarriesOpenState(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{
		bar(9, 50, 100.2, 100.5, 100, 100.3),
		bar(9, 55, 100.4, 104.6, 102.5, 104), // 2R, armed, stop trailed to 102.4
	}
	res := r.Resolve(s, candles)
	if res.Reason != ExitEndOfData || !res.Open {
		t.Fatalf("expected open END_OF_DATA result, got %+v", res)
	}
	if math.Abs(res.CurrentStop-102.4) > 1e-9 || res.HighestPrice != 104.6 || !res.TrailingArmed {
		t.Fatalf("unexpected carried state %+v", res)
	}

	carried := CarryState([]Result{res})
	if len(carried) != 1 || carried[0].Symbol != "RELIANCE" || carried[0].CurrentStop != res.CurrentStop {
		t.Fatalf("unexpected carry %+v", carried)
	}
}

func TestNoCandleAfterConfirmationIsNoData(t *testing.T) {
	r := newResolver(0)
	s := sizedAt(time.Date(2025, 11, 3, 9, 45, 0, 0, time.UTC), 100, 98, 120, 10)
	candles := []sig.Candle{bar(9, 40, 99, 100, 98.5, 99.5)}
	res := r.Resolve(s, candles)
	if res.Reason != ExitNoData || res.Fill != 100 || res.Exit != 100 {
		t.Fatalf("expected NO_DATA at entry, got %+v", res)
	}
	if res.PnL != 0 {
		t.Fatalf("expected flat pnl on NO_DATA, got %.2f", res.PnL)
	}
}
