package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

func testParams() Params {
	return Params{
		TickSize:        0.05,
		SessionOpen:     sig.MustClock("09:15"),
		ORBEnd:          sig.MustClock("09:30"),
		EntryStart:      sig.MustClock("09:45"),
		EntryEnd:        sig.MustClock("10:45"),
		MinORBBars:      3,
		VolMultBreakout: 1.8,
		VolMultReclaim:  1.3,
		VolMultDayHigh:  1.5,
		RSMin:           0.6,
		NearHighFrac:    0.004,
		ATRMultiplier:   1.25,
		StopMinPct:      1.0,
		StopMaxPct:      2.5,
		RiskReward:      2.0,
	}
}

func at(d, hour, min int) time.Time {
	return time.Date(2025, 11, d, hour, min, 0, 0, time.UTC)
}

func candle(ts time.Time, o, h, l, c, v float64) sig.Candle {
	return sig.Candle{Ts: ts, Open: o, High: h, Low: l, Close: c, Volume: v}
}

// breakoutDay replays an opening range followed by a high-volume breakout
// candle inside the entry window and returns the signals of the last candle.
func breakoutDay(e *Engine, d int) []sig.Signal {
	e.OnCandle("RELIANCE", candle(at(d, 9, 15), 100, 101, 99, 100, 100), 20000)
	e.OnCandle("RELIANCE", candle(at(d, 9, 20), 100, 101, 99.5, 100.5, 100), 20000)
	e.OnCandle("RELIANCE", candle(at(d, 9, 25), 100.5, 101, 100, 100.8, 100), 20000)
	return e.OnCandle("RELIANCE", candle(at(d, 9, 45), 101, 103, 100.9, 102.5, 10000), 20000)
}

func TestBreakoutConfirmation(t *testing.T) {
	e := New(testParams(), zerolog.Nop())
	signals := breakoutDay(e, 3)

	var breakout *sig.Signal
	for i := range signals {
		if signals[i].Mode == sig.ModeBreakout {
			breakout = &signals[i]
		}
	}
	if breakout == nil {
		t.Fatalf("expected a breakout signal, got %+v", signals)
	}
	if breakout.Entry != 102.5 {
		t.Fatalf("expected entry at confirmation close, got %.2f", breakout.Entry)
	}
	if breakout.Stop >= breakout.Entry {
		t.Fatalf("stop %.2f not below entry %.2f", breakout.Stop, breakout.Entry)
	}
	if breakout.Target <= breakout.Entry {
		t.Fatalf("target %.2f not above entry %.2f", breakout.Target, breakout.Entry)
	}
	// target sits a full risk:reward multiple above entry, tick-rounded
	risk := breakout.Entry - breakout.Stop
	if math.Abs(breakout.Target-RoundUpTick(breakout.Entry+2*risk, 0.05)) > 1e-9 {
		t.Fatalf("target %.2f inconsistent with 2R rule (risk %.2f)", breakout.Target, risk)
	}
	// stop lands on a tick boundary
	if math.Abs(breakout.Stop/0.05-math.Round(breakout.Stop/0.05)) > 1e-6 {
		t.Fatalf("stop %.4f not tick aligned", breakout.Stop)
	}
}

func TestBreakoutDedupWithinDay(t *testing.T) {
	e := New(testParams(), zerolog.Nop())
	breakoutDay(e, 3)

	// another qualifying candle the same day must not re-fire mode A
	signals := e.OnCandle("RELIANCE", candle(at(3, 9, 50), 102.5, 104, 102, 103.5, 10000), 20000)
	for _, s := range signals {
		if s.Mode == sig.ModeBreakout {
			t.Fatalf("mode A fired twice on the same day")
		}
	}
}

func TestDedupResetsOnNewDay(t *testing.T) {
	e := New(testParams(), zerolog.Nop())
	if got := breakoutDay(e, 3); len(got) == 0 {
		t.Fatalf("expected signal on first day")
	}
	if got := breakoutDay(e, 4); len(got) == 0 {
		t.Fatalf("expected mode A to re-fire on the next day")
	}
}

func TestOutsideEntryWindowNoBreakout(t *testing.T) {
	e := New(testParams(), zerolog.Nop())
	e.OnCandle("RELIANCE", candle(at(3, 9, 15), 100, 101, 99, 100, 100), 20000)
	e.OnCandle("RELIANCE", candle(at(3, 9, 20), 100, 101, 99.5, 100.5, 100), 20000)
	e.OnCandle("RELIANCE", candle(at(3, 9, 25), 100.5, 101, 100, 100.8, 100), 20000)

	// same breakout shape but past the 10:45 window close
	signals := e.OnCandle("RELIANCE", candle(at(3, 11, 0), 101, 103, 100.9, 102.5, 10000), 20000)
	for _, s := range signals {
		if s.Mode == sig.ModeBreakout {
			t.Fatalf("mode A fired outside the entry window")
		}
	}
}

func TestVWAPReclaimConfirmation(t *testing.T) {
	e := New(testParams(), zerolog.Nop())

	// late-session candles so the mode A window is already closed
	e.OnCandle("TCS", candle(at(3, 11, 0), 100, 100.5, 99, 99.5, 100), 20000)
	signals := e.OnCandle("TCS", candle(at(3, 11, 5), 99.5, 102, 99.4, 101.8, 10000), 20000)

	if len(signals) != 1 || signals[0].Mode != sig.ModeReclaim {
		t.Fatalf("expected a single reclaim signal, got %+v", signals)
	}
	if signals[0].Entry != 101.8 {
		t.Fatalf("expected entry at reclaim close, got %.2f", signals[0].Entry)
	}
}

func TestReclaimNeedsPriorCandleBelowVWAP(t *testing.T) {
	e := New(testParams(), zerolog.Nop())

	// both candles close above VWAP: no reclaim
	e.OnCandle("TCS", candle(at(3, 11, 0), 100, 101, 99.8, 100.9, 100), 20000)
	signals := e.OnCandle("TCS", candle(at(3, 11, 5), 100.9, 103, 100.8, 102.5, 10000), 20000)
	for _, s := range signals {
		if s.Mode == sig.ModeReclaim {
			t.Fatalf("reclaim fired without a prior close below VWAP")
		}
	}
}

func TestDayHighModeRequiresCloseThroughHigh(t *testing.T) {
	e := New(testParams(), zerolog.Nop())

	e.OnCandle("INFY", candle(at(3, 11, 0), 100, 102, 99.5, 101.9, 100), 20000)
	// close within 0.4% of the running high but not through it
	signals := e.OnCandle("INFY", candle(at(3, 11, 5), 101.9, 102, 101.5, 101.9, 10000), 20000)
	for _, s := range signals {
		if s.Mode == sig.ModeDayHigh {
			t.Fatalf("day-high mode fired without clearing the running high")
		}
	}
}

func TestTickRounding(t *testing.T) {
	if got := RoundUpTick(101.01, 0.05); math.Abs(got-101.05) > 1e-9 {
		t.Fatalf("RoundUpTick: got %.4f", got)
	}
	if got := RoundDownTick(101.04, 0.05); math.Abs(got-101.0) > 1e-9 {
		t.Fatalf("RoundDownTick: got %.4f", got)
	}
	if got := RoundUpTick(101.0, 0.05); math.Abs(got-101.0) > 1e-9 {
		t.Fatalf("RoundUpTick on boundary: got %.4f", got)
	}
}
