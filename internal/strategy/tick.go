package strategy

import "math"

// RoundUpTick rounds a price up to the next tick so upward triggers and
// targets stay executable.
func RoundUpTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Ceil(price/tick) * tick
}

// RoundDownTick rounds a price down to the previous tick, used for stops.
func RoundDownTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Floor(price/tick) * tick
}
