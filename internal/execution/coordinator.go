// Package execution owns the order lifecycle after confirmation: placement
// with dedup, trailing-stop maintenance, broker-side exit detection, and the
// end-of-session force flatten.
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/broker"
	"github.com/Augusten-advantix/Pulse915-US/internal/metrics"
	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

const stopEpsilon = 1e-9

// TradeState tracks one working position from placement to exit.
type TradeState struct {
	Sized       sig.Sized
	OrderID     string
	InitialStop float64
	CurrentStop float64
	Highest     float64
}

// Options configures the coordinator loop.
type Options struct {
	// ForceExit is the wall-clock time after which all working positions are
	// flattened by raising their stop to the last traded price.
	ForceExit sig.Clock
	// Idle bounds how long the loop blocks on the queue before running a
	// maintenance cycle anyway.
	Idle time.Duration
	// Now is injectable for tests; defaults to time.Now in UTC.
	Now func() time.Time
}

// Coordinator drains sized signals from the queue and manages each resulting
// position until the venue or the session clock closes it. Broker failures are
// logged and skipped; the next cycle retries nothing and simply carries on
// with fresh state.
type Coordinator struct {
	log    zerolog.Logger
	client broker.Client
	queue  <-chan sig.Sized
	opts   Options

	mu     sync.Mutex
	seen   map[sig.Key]struct{}
	day    string
	active map[string]*TradeState
	forced bool
}

// NewCoordinator wires the loop against a broker client and a signal queue.
func NewCoordinator(client broker.Client, queue <-chan sig.Sized, opts Options, log zerolog.Logger) *Coordinator {
	if opts.Idle <= 0 {
		opts.Idle = time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		log:    log,
		client: client,
		queue:  queue,
		opts:   opts,
		seen:   make(map[sig.Key]struct{}),
		active: make(map[string]*TradeState),
	}
}

// Run blocks until the context is canceled, alternating between queue reads
// and position maintenance.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		idle := time.NewTimer(c.opts.Idle)
		select {
		case <-ctx.Done():
			idle.Stop()
			return ctx.Err()
		case s, ok := <-c.queue:
			idle.Stop()
			if !ok {
				return nil
			}
			c.place(ctx, s)
		case <-idle.C:
		}
		c.Cycle(ctx)
	}
}

// Cycle runs one maintenance pass: refresh trailing stops, drop positions the
// venue closed, and force-flatten once the session cutoff passes.
func (c *Coordinator) Cycle(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.active) == 0 {
		return
	}
	prices, err := c.client.LastPrices(ctx, c.activeTokens())
	if err != nil {
		c.log.Warn().Err(err).Msg("ltp fetch failed, skipping cycle")
		return
	}
	c.refreshStops(ctx, prices)
	c.detectExits(ctx)
	c.forceExitIfDue(ctx, prices)
}

// place runs both dedup layers and submits the entry order.
func (c *Coordinator) place(ctx context.Context, s sig.Sized) {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := s.Ts.UTC().Format("2006-01-02")
	if day != c.day {
		c.pruneSeen(day)
		c.day = day
		c.forced = false
	}

	key := s.Key()
	if _, dup := c.seen[key]; dup {
		metrics.DuplicatesTotal.WithLabelValues("coordinator").Inc()
		return
	}
	if _, open := c.active[s.Symbol]; open {
		metrics.DuplicatesTotal.WithLabelValues("active_symbol").Inc()
		c.log.Debug().Str("sym", s.Symbol).Msg("symbol already has a working position")
		return
	}
	c.seen[key] = struct{}{}

	if s.Qty <= 0 {
		c.log.Debug().Str("sym", s.Symbol).Msg("zero quantity after sizing, dropping signal")
		return
	}

	orderID, err := c.client.PlaceOrder(ctx, broker.OrderRequest{
		Symbol: s.Symbol,
		Token:  s.Token,
		Qty:    s.Qty,
		Stop:   s.Stop,
		Target: s.Target,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("sym", s.Symbol).Msg("order placement failed, skipping signal")
		return
	}

	metrics.OrdersTotal.WithLabelValues(s.Symbol).Inc()
	c.active[s.Symbol] = &TradeState{
		Sized:       s,
		OrderID:     orderID,
		InitialStop: s.Stop,
		CurrentStop: s.Stop,
		Highest:     s.Entry,
	}
	c.log.Info().
		Str("sym", s.Symbol).
		Str("mode", string(s.Mode)).
		Str("order", orderID).
		Int("qty", s.Qty).
		Float64("entry", s.Entry).
		Float64("stop", s.Stop).
		Float64("target", s.Target).
		Msg("order placed")
}

// refreshStops recomputes the trailing stop per position and pushes only
// strict increases to the venue.
func (c *Coordinator) refreshStops(ctx context.Context, prices map[int64]float64) {
	for _, t := range c.active {
		ltp, ok := prices[t.Sized.Token]
		if !ok || ltp <= 0 {
			continue
		}
		if ltp > t.Highest {
			t.Highest = ltp
		}
		next := risk.TrailingStop(t.Sized.Entry, t.InitialStop, t.Highest, t.CurrentStop)
		if next <= t.CurrentStop+stopEpsilon {
			continue
		}
		if err := c.client.ModifyStop(ctx, t.OrderID, next); err != nil {
			c.log.Warn().Err(err).Str("sym", t.Sized.Symbol).Msg("stop modify failed, keeping previous stop")
			continue
		}
		t.CurrentStop = next
		metrics.TrailUpdatesTotal.WithLabelValues(t.Sized.Symbol).Inc()
		c.log.Info().Str("sym", t.Sized.Symbol).Float64("stop", next).Msg("stop raised")
	}
}

// detectExits reconciles against the venue: any tracked symbol absent from the
// open-position list has been closed broker-side.
func (c *Coordinator) detectExits(ctx context.Context) {
	positions, err := c.client.OpenPositions(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("portfolio fetch failed, skipping exit detection")
		return
	}
	open := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		open[p.Symbol] = struct{}{}
	}
	for symbol, t := range c.active {
		if _, still := open[symbol]; still {
			continue
		}
		delete(c.active, symbol)
		metrics.ExitsTotal.WithLabelValues(symbol, "broker").Inc()
		c.log.Info().Str("sym", symbol).Str("order", t.OrderID).Msg("position closed at venue")
	}
}

// forceExitIfDue flattens every remaining position once the cutoff passes by
// raising the stop to the last traded price.
func (c *Coordinator) forceExitIfDue(ctx context.Context, prices map[int64]float64) {
	if c.forced || !c.opts.ForceExit.Reached(c.opts.Now()) {
		return
	}
	for symbol, t := range c.active {
		ltp, ok := prices[t.Sized.Token]
		if !ok || ltp <= 0 {
			c.log.Warn().Str("sym", symbol).Msg("no price for force exit, leaving position")
			continue
		}
		if err := c.client.ModifyStop(ctx, t.OrderID, ltp); err != nil {
			c.log.Warn().Err(err).Str("sym", symbol).Msg("force exit modify failed")
			continue
		}
		delete(c.active, symbol)
		metrics.ExitsTotal.WithLabelValues(symbol, "force").Inc()
		c.log.Info().Str("sym", symbol).Float64("stop", ltp).Msg("force exit, stop set to last price")
	}
	c.forced = true
}

// Active returns a copy of the working positions, keyed by symbol.
func (c *Coordinator) Active() map[string]TradeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]TradeState, len(c.active))
	for symbol, t := range c.active {
		out[symbol] = *t
	}
	return out
}

func (c *Coordinator) activeTokens() []int64 {
	tokens := make([]int64, 0, len(c.active))
	for _, t := range c.active {
		tokens = append(tokens, t.Sized.Token)
	}
	return tokens
}

func (c *Coordinator) pruneSeen(day string) {
	for k := range c.seen {
		if k.Day != day {
			delete(c.seen, k)
		}
	}
}
