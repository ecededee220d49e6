// Package feed supplies intraday candles to the strategy loop, either from a
// deterministic stub, a websocket stream, or any other Source implementation.
package feed

import (
	"context"
	"time"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

const (
	// ProviderStub emits deterministic synthetic candles (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderStream serves candles cached from a websocket market data stream.
	ProviderStream = "stream"
)

// Source answers historical and just-closed candle queries per instrument
// token. Implementations must return candles in ascending timestamp order.
type Source interface {
	Candles(ctx context.Context, token int64, from, to time.Time) ([]sig.Candle, error)
}

// latestClosed returns the last candle that closed at or before the cutoff.
func latestClosed(candles []sig.Candle, cutoff time.Time) (sig.Candle, bool) {
	for i := len(candles) - 1; i >= 0; i-- {
		if !candles[i].Ts.After(cutoff) {
			return candles[i], true
		}
	}
	return sig.Candle{}, false
}
