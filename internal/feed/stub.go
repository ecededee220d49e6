package feed

import (
	"context"
	"math"
	"time"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// StubSource synthesizes a deterministic drifting price series per token so
// the full pipeline can run offline. The walk is seeded by the token, so
// different instruments produce different but repeatable paths.
type StubSource struct {
	Interval time.Duration
	Base     float64
}

// NewStubSource returns a stub emitting candles on the given interval.
func NewStubSource(interval time.Duration) *StubSource {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StubSource{Interval: interval, Base: 100}
}

// Candles generates one candle per interval boundary in [from, to].
func (s *StubSource) Candles(_ context.Context, token int64, from, to time.Time) ([]sig.Candle, error) {
	start := from.Truncate(s.Interval)
	if start.Before(from) {
		start = start.Add(s.Interval)
	}

	var out []sig.Candle
	for ts := start; !ts.After(to); ts = ts.Add(s.Interval) {
		step := ts.Unix() / int64(s.Interval/time.Second)
		px := s.price(token, step)
		next := s.price(token, step+1)
		c := sig.Candle{
			Ts:     ts,
			Open:   px,
			Close:  next,
			Volume: 1000 + 500*math.Abs(math.Sin(float64(step+token))),
		}
		c.High = math.Max(c.Open, c.Close) * 1.001
		c.Low = math.Min(c.Open, c.Close) * 0.999
		out = append(out, c)
	}
	return out, nil
}

func (s *StubSource) price(token, step int64) float64 {
	base := s.Base + float64(token%97)
	return base * (1 + 0.002*math.Sin(float64(step)/7+float64(token)))
}
