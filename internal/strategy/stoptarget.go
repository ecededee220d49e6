package strategy

import "math"

// stopTarget derives the protective stop and profit target for a confirmed
// entry. The stop is the tighter of an ATR-scaled distance (clamped between
// StopMinPct and StopMaxPct of entry) and a structural level below the setup,
// both offset by a minimum tick buffer; the target is a fixed risk:reward
// multiple above entry. Returns ok=false when the resulting risk is not
// positive, which rejects the signal before sizing.
func (e *Engine) stopTarget(entry, structLevel, atrPct float64) (stop, target float64, ok bool) {
	p := e.params

	delta := math.Max(2*p.TickSize, 0.0005*entry)

	stopPct := clamp(p.ATRMultiplier*atrPct, p.StopMinPct, p.StopMaxPct) / 100
	stopATR := entry - entry*stopPct
	stopStruct := structLevel - delta

	stop = RoundDownTick(math.Max(stopATR, stopStruct), p.TickSize)
	if stop >= entry {
		return 0, 0, false
	}
	target = RoundUpTick(entry+p.RiskReward*(entry-stop), p.TickSize)
	return stop, target, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
