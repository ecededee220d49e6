// Package risk holds position sizing and the trailing-stop engine shared by
// live execution and backtesting.
package risk

import "math"

// costBufferFrac pads the breakeven stop so a tier-1 exit still covers fees.
const costBufferFrac = 0.001

// TrailingStop returns the updated stop for a long position under the 3-tier
// R-multiple ratchet:
//
//	high >= entry + 1.0R  -> at least breakeven plus a cost buffer
//	high >= entry + 1.5R  -> at least entry + 0.5R
//	high >= entry + 2.0R  -> at least high - R
//
// It is a pure function of its arguments. The result is rounded to the paise
// and never drops below currentStop, so successive calls with a non-decreasing
// runningHigh yield a non-decreasing stop.
func TrailingStop(entry, initialStop, runningHigh, currentStop float64) float64 {
	r := entry - initialStop

	stop := currentStop
	if runningHigh >= entry+r {
		stop = math.Max(stop, entry+entry*costBufferFrac)
	}
	if runningHigh >= entry+1.5*r {
		stop = math.Max(stop, entry+0.5*r)
	}
	if runningHigh >= entry+2.0*r {
		stop = math.Max(stop, runningHigh-r)
	}

	stop = math.Round(stop*100) / 100
	if stop < currentStop {
		stop = currentStop
	}
	return stop
}
