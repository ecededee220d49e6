// Package signal standardizes payloads shared between the candle feed, strategy,
// and execution layers.
package signal

import "time"

// Mode identifies which entry setup produced a signal.
type Mode string

const (
	// ModeBreakout confirms above the opening-range high on strong volume and relative strength.
	ModeBreakout Mode = "A"
	// ModeReclaim confirms when price closes back above VWAP after trading below it.
	ModeReclaim Mode = "B"
	// ModeDayHigh confirms on a push through the running high of the day.
	ModeDayHigh Mode = "C"
)

// Candle is one completed bar for a single instrument. Immutable once produced.
type Candle struct {
	Ts     time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Day returns the calendar day of the candle, used for session grouping and dedup keys.
func (c Candle) Day() string { return c.Ts.Format("2006-01-02") }

// Signal is a confirmed entry emitted by the strategy. Created at most once per
// (symbol, mode, day) and immutable after creation.
type Signal struct {
	Symbol string
	Mode   Mode
	Entry  float64
	Stop   float64
	Target float64
	Ts     time.Time // confirmation candle close time
}

// Key returns the dedup identity guaranteeing at-most-once emission and placement.
func (s Signal) Key() Key {
	return Key{Symbol: s.Symbol, Mode: s.Mode, Day: s.Ts.Format("2006-01-02")}
}

// Key is the composite (symbol, mode, date) identity used by both dedup layers.
type Key struct {
	Symbol string
	Mode   Mode
	Day    string
}

// Sized is a signal augmented by the producer with the instrument token and the
// share quantity the sizer allocated to it.
type Sized struct {
	Signal
	Token int64
	Qty   int
}
