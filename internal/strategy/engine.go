// Package strategy evaluates each completed candle against three independent
// entry setups and emits at most one confirmed signal per (symbol, mode, day).
package strategy

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/indicator"
	"github.com/Augusten-advantix/Pulse915-US/internal/metrics"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// Params groups the tunable knobs for the entry modes and the stop/target rule.
type Params struct {
	TickSize float64

	SessionOpen sig.Clock
	ORBEnd      sig.Clock
	EntryStart  sig.Clock
	EntryEnd    sig.Clock

	MinORBBars      int     // bars required before the opening range is trusted
	VolMultBreakout float64 // mode A volume multiple
	VolMultReclaim  float64 // mode B volume multiple
	VolMultDayHigh  float64 // mode C volume multiple
	RSMin           float64 // mode A relative-strength floor, percent
	NearHighFrac    float64 // mode C proximity to the day high

	ATRMultiplier float64
	StopMinPct    float64
	StopMaxPct    float64
	RiskReward    float64
}

type symbolState struct {
	ind       *indicator.Series
	prevDay   string
	prevOK    bool // previous candle exists within the same day
	prevClose float64
	prevVWAP  float64
}

// Engine is the per-symbol confirmation state machine. Eligibility is
// recomputed on every candle; confirmation is sticky through the dedup key
// set, which is pruned at the first candle of each new day.
type Engine struct {
	params Params
	log    zerolog.Logger

	mu      sync.Mutex
	symbols map[string]*symbolState
	emitted map[sig.Key]struct{}
	day     string
}

// New builds an engine with the supplied parameters.
func New(params Params, log zerolog.Logger) *Engine {
	return &Engine{
		params:  params,
		log:     log,
		symbols: make(map[string]*symbolState),
		emitted: make(map[sig.Key]struct{}),
	}
}

// OnCandle ingests one completed candle plus the benchmark close for the same
// bar and returns any newly confirmed signals (at most one per mode).
func (e *Engine) OnCandle(symbol string, c sig.Candle, benchClose float64) []sig.Signal {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.symbols[symbol]
	if st == nil {
		st = &symbolState{ind: indicator.NewSeries(0)}
		e.symbols[symbol] = st
	}

	day := c.Day()
	if day != e.day {
		e.pruneEmitted(day)
		e.day = day
	}
	if st.prevDay != day {
		st.prevOK = false
		st.prevDay = day
	}

	snap := st.ind.Append(c, benchClose)
	metrics.CandlesTotal.WithLabelValues(symbol).Inc()

	signals := e.evaluate(symbol, c, snap, st)

	st.prevOK = true
	st.prevClose = c.Close
	st.prevVWAP = snap.VWAP

	return signals
}

func (e *Engine) evaluate(symbol string, c sig.Candle, snap indicator.Snapshot, st *symbolState) []sig.Signal {
	p := e.params
	afterStart := p.EntryStart.Reached(c.Ts)
	// mode A alone also has an upper time bound; B and C stay open past it
	withinWindow := afterStart && !p.EntryEnd.After(c.Ts)

	var out []sig.Signal

	// Mode A: opening-range breakout with volume and relative strength.
	if withinWindow &&
		c.Close > snap.VWAP && snap.VolMult >= p.VolMultBreakout && snap.RS >= p.RSMin {
		trigger := RoundUpTick(e.orbHigh(st), p.TickSize)
		if s, ok := e.confirm(symbol, sig.ModeBreakout, c, snap, trigger, snap.DayLow); ok {
			out = append(out, s)
		}
	}

	// Mode B: VWAP reclaim; previous candle closed at or below VWAP, this one above.
	if afterStart && st.prevOK && st.prevClose <= st.prevVWAP && c.Close > snap.VWAP &&
		snap.VolMult >= p.VolMultReclaim {
		trigger := RoundUpTick(snap.VWAP, p.TickSize)
		if s, ok := e.confirm(symbol, sig.ModeReclaim, c, snap, trigger, snap.VWAP); ok {
			out = append(out, s)
		}
	}

	// Mode C: close within a fraction of the running day high.
	if afterStart && snap.DayHigh > 0 && (snap.DayHigh-c.Close)/snap.DayHigh <= p.NearHighFrac &&
		snap.VolMult >= p.VolMultDayHigh {
		trigger := RoundUpTick(snap.DayHigh, p.TickSize)
		if s, ok := e.confirm(symbol, sig.ModeDayHigh, c, snap, trigger, c.Low); ok {
			out = append(out, s)
		}
	}

	return out
}

// confirm turns an eligible candle into a signal when the close clears the
// trigger and the (symbol, mode, day) key has not fired yet.
func (e *Engine) confirm(symbol string, mode sig.Mode, c sig.Candle, snap indicator.Snapshot, trigger, structLevel float64) (sig.Signal, bool) {
	if trigger <= 0 || c.Close <= trigger {
		return sig.Signal{}, false
	}
	key := sig.Key{Symbol: symbol, Mode: mode, Day: c.Day()}
	if _, dup := e.emitted[key]; dup {
		return sig.Signal{}, false
	}

	entry := c.Close
	stop, target, ok := e.stopTarget(entry, structLevel, snap.ATRPct)
	if !ok {
		e.log.Debug().Str("sym", symbol).Str("mode", string(mode)).Msg("signal rejected: non-positive risk")
		return sig.Signal{}, false
	}

	e.emitted[key] = struct{}{}
	metrics.SignalsTotal.WithLabelValues(symbol, string(mode)).Inc()
	e.log.Info().
		Str("sym", symbol).
		Str("mode", string(mode)).
		Float64("entry", entry).
		Float64("stop", stop).
		Float64("target", target).
		Msg("signal confirmed")

	return sig.Signal{
		Symbol: symbol,
		Mode:   mode,
		Entry:  entry,
		Stop:   stop,
		Target: target,
		Ts:     c.Ts,
	}, true
}

// orbHigh returns the opening-range high once enough opening bars exist,
// falling back to the first bar's high of the day.
func (e *Engine) orbHigh(st *symbolState) float64 {
	today := st.ind.Today()
	if len(today) == 0 {
		return 0
	}
	openMin := e.params.SessionOpen.Minutes()
	endMin := e.params.ORBEnd.Minutes()

	high := 0.0
	count := 0
	for _, c := range today {
		m := sig.MinuteOfDay(c.Ts)
		if m < openMin || m > endMin {
			continue
		}
		if c.High > high {
			high = c.High
		}
		count++
	}
	if count >= e.params.MinORBBars {
		return high
	}
	return today[0].High
}

// pruneEmitted drops dedup keys from any day other than the current one so the
// set stays bounded and modes can re-fire on later sessions.
func (e *Engine) pruneEmitted(day string) {
	for k := range e.emitted {
		if k.Day != day {
			delete(e.emitted, k)
		}
	}
}
