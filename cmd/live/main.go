// Command live runs the intraday pipeline end to end: candle polling,
// signal confirmation, sizing, and order management against either the
// configured REST broker or the in-process paper broker.
package main

import (
	"context"
	"flag"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/Augusten-advantix/Pulse915-US/internal/broker"
	"github.com/Augusten-advantix/Pulse915-US/internal/config"
	"github.com/Augusten-advantix/Pulse915-US/internal/execution"
	"github.com/Augusten-advantix/Pulse915-US/internal/feed"
	"github.com/Augusten-advantix/Pulse915-US/internal/metrics"
	"github.com/Augusten-advantix/Pulse915-US/internal/paper"
	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
	"github.com/Augusten-advantix/Pulse915-US/internal/strategy"
	"github.com/Augusten-advantix/Pulse915-US/internal/util"
)

const paperTradeLog = "data/paper_trades.jsonl"

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine := strategy.New(strategyParams(cfg, log), util.Component(log, "strategy"))
	sizer := risk.Sizer{
		DailyCapital:       cfg.Risk.DailyCapital,
		DailyLossPct:       cfg.Risk.DailyLossPct,
		CapitalPerTradePct: cfg.Risk.CapitalPerTradePct,
	}

	interval := time.Duration(cfg.Feed.IntervalMinutes) * time.Minute
	var src feed.Source
	switch cfg.Feed.Provider {
	case feed.ProviderStream:
		stream := feed.NewStreamSource(cfg.Feed.StreamURL, util.Component(log, "stream"))
		go func() {
			if err := stream.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("candle stream stopped")
				cancel()
			}
		}()
		src = stream
	default:
		log.Info().Msg("using stub candle source")
		src = feed.NewStubSource(interval)
	}

	client, paperBroker := buildBroker(cfg, log)
	queue := make(chan sig.Sized, cfg.Feed.QueueSize)

	cal := feed.SessionCalendar{
		Open:  mustClock(log, cfg.Session.Open),
		Close: mustClock(log, cfg.Session.Close),
	}
	poller := feed.NewPoller(src, engine, sizer, cal, queue, feed.PollerOptions{
		Symbols:                cfg.Universe.Symbols,
		Tokens:                 cfg.Universe.Tokens,
		Benchmark:              cfg.Universe.Benchmark,
		BenchmarkToken:         cfg.Universe.BenchmarkToken,
		Interval:               interval,
		Offset:                 time.Duration(cfg.Feed.PollOffsetSecs) * time.Second,
		RequestDelay:           time.Duration(cfg.Feed.RequestDelayMs) * time.Millisecond,
		BackfillDays:           cfg.Feed.BackfillDays,
		EnqueueBackfillSignals: cfg.Feed.EnqueueBackfillSignals,
		EstimatedTrades:        cfg.Risk.EstimatedTradesPerDay,
	}, util.Component(log, "poller"))

	coord := execution.NewCoordinator(client, queue, execution.Options{
		ForceExit: mustClock(log, cfg.Session.ForceExitLive),
	}, util.Component(log, "executor"))

	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("poller stopped")
			cancel()
		}
	}()
	if paperBroker != nil {
		go markPaperPrices(ctx, src, paperBroker, cfg, interval)
	}

	log.Info().Str("env", cfg.App.Env).Msg("live engine started")
	if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("coordinator stopped")
	}
	log.Info().Msg("shutting down")
}

// buildBroker picks the venue: a REST order-management service when a base
// URL is configured, the in-process paper broker otherwise.
func buildBroker(cfg *config.Config, log zerolog.Logger) (broker.Client, *paper.Broker) {
	if cfg.Broker.BaseURL != "" {
		timeout := time.Duration(cfg.Broker.TimeoutMs) * time.Millisecond
		return broker.NewRESTClient(cfg.Broker.BaseURL, timeout, util.Component(log, "broker")), nil
	}

	recorder, err := paper.NewJSONLRecorder(paperTradeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("open paper trade log")
	}
	log.Info().Str("trades", paperTradeLog).Msg("no broker configured, running paper")
	pb := paper.NewBroker(cfg.Risk.DailyCapital, recorder, util.Component(log, "paper"))
	return pb, pb
}

// markPaperPrices keeps the paper broker marked to the latest closes so its
// bracket exits fire without a real venue behind it.
func markPaperPrices(ctx context.Context, src feed.Source, pb *paper.Broker, cfg *config.Config, interval time.Duration) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	tokens := make([]int64, 0, len(cfg.Universe.Tokens))
	for _, token := range cfg.Universe.Tokens {
		tokens = append(tokens, token)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, token := range tokens {
				candles, err := src.Candles(ctx, token, now.Add(-2*interval), now)
				if err != nil || len(candles) == 0 {
					continue
				}
				pb.Tick(token, candles[len(candles)-1].Close)
			}
		}
	}
}

func strategyParams(cfg *config.Config, log zerolog.Logger) strategy.Params {
	return strategy.Params{
		TickSize:        cfg.Strategy.TickSize,
		SessionOpen:     mustClock(log, cfg.Session.Open),
		ORBEnd:          mustClock(log, cfg.Session.ORBEnd),
		EntryStart:      mustClock(log, cfg.Session.EntryStart),
		EntryEnd:        mustClock(log, cfg.Session.EntryEnd),
		MinORBBars:      cfg.Strategy.MinORBBars,
		VolMultBreakout: cfg.Strategy.VolMultBreakout,
		VolMultReclaim:  cfg.Strategy.VolMultReclaim,
		VolMultDayHigh:  cfg.Strategy.VolMultDayHigh,
		RSMin:           cfg.Strategy.RSMin,
		NearHighFrac:    cfg.Strategy.NearHighFrac,
		ATRMultiplier:   cfg.Strategy.ATRMultiplier,
		StopMinPct:      cfg.Strategy.StopMinPct,
		StopMaxPct:      cfg.Strategy.StopMaxPct,
		RiskReward:      cfg.Strategy.RiskReward,
	}
}

func mustClock(log zerolog.Logger, value string) sig.Clock {
	clock, err := sig.ParseClock(value)
	if err != nil {
		log.Fatal().Err(err).Str("value", value).Msg("bad session clock")
	}
	return clock
}
