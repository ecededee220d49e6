// Package backtest replays confirmed signals against recorded candles and
// resolves how each trade would have exited.
package backtest

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// ExitReason labels how a replayed trade ended.
type ExitReason string

const (
	ExitStopLoss           ExitReason = "STOP_LOSS"
	ExitTrailingProfit     ExitReason = "TRAILING_STOP_PROFIT"
	ExitTrailingIntrabar   ExitReason = "TRAILING_STOP_INTRABAR"
	ExitTarget             ExitReason = "TARGET"
	ExitTargetIntrabar     ExitReason = "TARGET_INTRABAR"
	ExitSessionEnd         ExitReason = "TIME_EXIT"
	ExitEndOfData          ExitReason = "END_OF_DATA"
	ExitNoData             ExitReason = "NO_DATA"
	ExitNone               ExitReason = "NO_EXIT"
)

// Result is the outcome of replaying one sized signal.
type Result struct {
	Sized sig.Sized `json:"signal"`

	FillTime time.Time  `json:"fill_time"`
	Fill     float64    `json:"fill"`
	ExitTime time.Time  `json:"exit_time,omitempty"`
	Exit     float64    `json:"exit"`
	Reason   ExitReason `json:"reason"`
	PnL      float64    `json:"pnl"`
	Cost     float64    `json:"cost"`

	// carried state for positions still open at the end of the data
	Open          bool    `json:"open,omitempty"`
	HighestPrice  float64 `json:"highest_price,omitempty"`
	CurrentStop   float64 `json:"current_stop,omitempty"`
	TrailingArmed bool    `json:"trailing_armed,omitempty"`
}

// Resolver walks candles after a signal's confirmation and applies the same
// trailing-stop ramp the live coordinator uses.
type Resolver struct {
	forceExit sig.Clock // intraday cutoff, earlier than the live one
	costPct   float64   // round-trip cost as a fraction of invested notional
	log       zerolog.Logger
}

// NewResolver builds a resolver with the given cutoff and cost model.
func NewResolver(forceExit sig.Clock, costPct float64, log zerolog.Logger) *Resolver {
	return &Resolver{forceExit: forceExit, costPct: costPct, log: log}
}

// Resolve replays one sized signal against the candles of its session. The
// trade fills at the open of the first candle strictly after confirmation;
// risk and the trailing ramp are measured from that fill, not the signal
// entry. With no fill candle available the trade resolves as NO_DATA at the
// signal entry.
func (r *Resolver) Resolve(s sig.Sized, candles []sig.Candle) Result {
	res := Result{Sized: s, Reason: ExitNone}

	fillIdx := -1
	for i, c := range candles {
		if c.Ts.After(s.Ts) {
			fillIdx = i
			break
		}
	}
	if fillIdx < 0 {
		res.Fill = s.Entry
		res.Exit = s.Entry
		res.Reason = ExitNoData
		return res
	}

	fill := candles[fillIdx].Open
	res.Fill = fill
	res.FillTime = candles[fillIdx].Ts
	res.Cost = r.costPct * float64(s.Qty) * fill

	oneR := fill - s.Stop
	stop := s.Stop
	highest := fill
	armed := false

	for _, c := range candles[fillIdx+1:] {
		if c.High > highest {
			highest = c.High
		}
		if oneR > 0 && highest >= fill+oneR {
			armed = true
		}
		stop = risk.TrailingStop(fill, s.Stop, highest, stop)

		stopHit := c.Low <= stop
		targetHit := c.High >= s.Target

		switch {
		case stopHit && targetHit:
			// both levels inside one bar: assume the nearer one to the open
			// traded first
			distStop := c.Open - stop
			distTarget := s.Target - c.Open
			if distStop <= distTarget {
				return r.close(res, c.Ts, stop, ExitTrailingIntrabar)
			}
			return r.close(res, c.Ts, s.Target, ExitTargetIntrabar)
		case stopHit:
			reason := ExitStopLoss
			if stop > fill {
				reason = ExitTrailingProfit
			}
			return r.close(res, c.Ts, stop, reason)
		case targetHit:
			return r.close(res, c.Ts, s.Target, ExitTarget)
		}

		// cutoff applies only when neither level traded within the candle
		if r.forceExit.Reached(c.Ts) {
			return r.close(res, c.Ts, c.Close, ExitSessionEnd)
		}
	}

	// ran out of candles with the position still on
	res.Open = true
	res.Reason = ExitEndOfData
	res.HighestPrice = highest
	res.CurrentStop = stop
	res.TrailingArmed = armed
	res.Exit = 0
	return res
}

func (r *Resolver) close(res Result, ts time.Time, price float64, reason ExitReason) Result {
	res.ExitTime = ts
	res.Exit = price
	res.Reason = reason
	res.PnL = (price-res.Fill)*float64(res.Sized.Qty) - res.Cost
	r.log.Debug().
		Str("sym", res.Sized.Symbol).
		Str("reason", string(reason)).
		Float64("pnl", res.PnL).
		Msg("trade resolved")
	return res
}
