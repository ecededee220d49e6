package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/indicator"
	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
	"github.com/Augusten-advantix/Pulse915-US/internal/strategy"
)

// PollerOptions configures the candle polling loop.
type PollerOptions struct {
	Symbols        []string
	Tokens         map[string]int64
	Benchmark      string
	BenchmarkToken int64

	Interval     time.Duration // bar size, normally 5 minutes
	Offset       time.Duration // settle time after the bar closes
	RequestDelay time.Duration // pause between per-symbol fetches

	BackfillDays           int
	EnqueueBackfillSignals bool

	EstimatedTrades int // divisor for the live per-signal weight
}

// Poller drives the strategy engine: once per closed bar it fetches the
// benchmark candle, then each symbol's candle, feeds the engine, sizes any
// confirmed signals, and pushes them onto the execution queue. The benchmark
// comes first; a cycle without it is skipped entirely so relative strength is
// never computed against a stale reference.
type Poller struct {
	log    zerolog.Logger
	src    Source
	engine *strategy.Engine
	sizer  risk.Sizer
	cal    Calendar
	out    chan<- sig.Sized
	opts   PollerOptions

	now func() time.Time

	benchClose map[int64]float64 // bar open unix -> benchmark close
	lastBench  float64
	lastSeen   map[string]time.Time
}

// NewPoller wires the loop. The output channel is owned by the caller.
func NewPoller(src Source, engine *strategy.Engine, sizer risk.Sizer, cal Calendar, out chan<- sig.Sized, opts PollerOptions, log zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.EstimatedTrades <= 0 {
		opts.EstimatedTrades = 5
	}
	return &Poller{
		log:        log,
		src:        src,
		engine:     engine,
		sizer:      sizer,
		cal:        cal,
		out:        out,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		benchClose: make(map[int64]float64),
		lastSeen:   make(map[string]time.Time),
	}
}

// Run backfills recent history and then polls until the context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	if p.opts.BackfillDays > 0 {
		if err := p.Backfill(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn().Err(err).Msg("backfill failed, starting cold")
		}
	}
	for {
		if err := p.waitNextBar(ctx); err != nil {
			return err
		}
		p.cycle(ctx)
	}
}

// Backfill replays recent history through the engine so indicators that need
// prior sessions, volume baselines in particular, are warm before live bars
// arrive. Signals confirmed during the replay are stale and only enqueued
// when explicitly enabled.
func (p *Poller) Backfill(ctx context.Context) error {
	to := p.now()
	from := to.AddDate(0, 0, -p.opts.BackfillDays)

	bench, err := p.src.Candles(ctx, p.opts.BenchmarkToken, from, to)
	if err != nil {
		return fmt.Errorf("backfill benchmark %s: %w", p.opts.Benchmark, err)
	}
	for _, c := range bench {
		p.benchClose[c.Ts.Unix()] = c.Close
	}

	for _, symbol := range p.opts.Symbols {
		if err := p.delay(ctx); err != nil {
			return err
		}
		token, ok := p.opts.Tokens[symbol]
		if !ok {
			p.log.Warn().Str("sym", symbol).Msg("no instrument token, skipping")
			continue
		}
		candles, err := p.src.Candles(ctx, token, from, to)
		if err != nil {
			p.log.Warn().Err(err).Str("sym", symbol).Msg("backfill fetch failed")
			continue
		}

		stale := 0
		j := 0
		lastKnown := 0.0
		for _, c := range candles {
			for j < len(bench) && !bench[j].Ts.After(c.Ts) {
				lastKnown = bench[j].Close
				j++
			}
			if lastKnown <= 0 {
				continue
			}
			signals := p.engine.OnCandle(symbol, c, lastKnown)
			if p.opts.EnqueueBackfillSignals {
				if err := p.enqueue(ctx, signals, token); err != nil {
					return err
				}
			} else {
				stale += len(signals)
			}
		}
		if len(candles) > 0 {
			p.lastSeen[symbol] = candles[len(candles)-1].Ts
		}
		if stale > 0 {
			p.log.Info().Str("sym", symbol).Int("signals", stale).Msg("dropped stale backfill signals")
		}
	}
	if len(bench) > 0 {
		p.lastBench = bench[len(bench)-1].Close
	}
	p.log.Info().Int("days", p.opts.BackfillDays).Msg("backfill complete")
	return nil
}

// waitNextBar sleeps until just after the next bar boundary.
func (p *Poller) waitNextBar(ctx context.Context) error {
	now := p.now()
	next := now.Truncate(p.opts.Interval).Add(p.opts.Interval + p.opts.Offset)
	if !next.After(now) {
		next = next.Add(p.opts.Interval)
	}
	select {
	case <-time.After(next.Sub(now)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) cycle(ctx context.Context) {
	now := p.now()
	if !p.cal.IsTradingDay(now) || !p.cal.InSession(now) {
		return
	}
	from := now.Add(-2 * p.opts.Interval)

	bench, err := p.src.Candles(ctx, p.opts.BenchmarkToken, from, now)
	if err != nil || len(bench) == 0 {
		p.log.Warn().Err(err).Str("sym", p.opts.Benchmark).Msg("benchmark unavailable, skipping cycle")
		return
	}
	for _, c := range bench {
		p.benchClose[c.Ts.Unix()] = c.Close
	}
	p.lastBench = bench[len(bench)-1].Close
	p.pruneBench(now)

	for _, symbol := range p.opts.Symbols {
		if p.delay(ctx) != nil {
			return
		}
		token, ok := p.opts.Tokens[symbol]
		if !ok {
			continue
		}
		candles, err := p.src.Candles(ctx, token, from, now)
		if err != nil {
			p.log.Warn().Err(err).Str("sym", symbol).Msg("candle fetch failed")
			continue
		}
		c, ok := latestClosed(candles, now)
		if !ok || !c.Ts.After(p.lastSeen[symbol]) {
			continue
		}
		p.lastSeen[symbol] = c.Ts

		signals := p.engine.OnCandle(symbol, c, p.benchCloseAt(c.Ts))
		if err := p.enqueue(ctx, signals, token); err != nil {
			return
		}
	}
}

// pruneBench drops benchmark closes that have aged out of the candle buffer
// window so the map stays bounded across long sessions.
func (p *Poller) pruneBench(now time.Time) {
	cutoff := now.Add(-time.Duration(indicator.MaxBars) * p.opts.Interval).Unix()
	for ts := range p.benchClose {
		if ts < cutoff {
			delete(p.benchClose, ts)
		}
	}
}

func (p *Poller) benchCloseAt(ts time.Time) float64 {
	if px, ok := p.benchClose[ts.Unix()]; ok {
		return px
	}
	return p.lastBench
}

// enqueue sizes confirmed signals and pushes them to the execution queue.
func (p *Poller) enqueue(ctx context.Context, signals []sig.Signal, token int64) error {
	weight := risk.LiveWeight(p.opts.EstimatedTrades)
	for _, s := range signals {
		qty := p.sizer.Quantity(s.Entry, s.Stop, weight)
		if qty <= 0 {
			p.log.Debug().Str("sym", s.Symbol).Msg("signal sized to zero, dropping")
			continue
		}
		select {
		case p.out <- sig.Sized{Signal: s, Token: token, Qty: qty}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Poller) delay(ctx context.Context) error {
	if p.opts.RequestDelay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(p.opts.RequestDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
