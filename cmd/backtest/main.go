// Command backtest replays recorded signals against historical candles,
// resolves each trade's exit, and reports per-session results.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/Augusten-advantix/Pulse915-US/internal/backtest"
	"github.com/Augusten-advantix/Pulse915-US/internal/config"
	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
	"github.com/Augusten-advantix/Pulse915-US/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "internal/config/config.yaml", "path to config file")
	signalsPath := flag.String("signals", "", "recorded signals JSON file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot := util.NewLogger("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	if *signalsPath == "" {
		log.Fatal().Msg("missing -signals")
	}
	rows, err := backtest.LoadSignals(*signalsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load signals")
	}
	log.Info().Int("signals", len(rows)).Msg("signals loaded")

	forceExit, err := sig.ParseClock(cfg.Session.ForceExitBacktest)
	if err != nil {
		log.Fatal().Err(err).Msg("bad backtest cutoff")
	}

	allocator := backtest.Allocator{
		Sizer: risk.Sizer{
			DailyCapital:       cfg.Risk.DailyCapital,
			DailyLossPct:       cfg.Risk.DailyLossPct,
			CapitalPerTradePct: cfg.Risk.CapitalPerTradePct,
		},
		MinEdgePct: cfg.Backtest.MinEdgePct,
	}
	resolver := backtest.NewResolver(forceExit, cfg.Backtest.CostPct, util.Component(log, "resolver"))
	loader := backtest.HistoryLoader{Root: cfg.Backtest.DataDir}

	var results []backtest.Result
	for _, day := range backtest.GroupByDay(rows) {
		for _, sized := range allocator.SizeDay(day) {
			candles, err := loader.Candles(sized.Symbol, sized.Ts.UTC().Format("2006-01-02"))
			if err != nil && !errors.Is(err, backtest.ErrNoData) {
				log.Warn().Err(err).Str("sym", sized.Symbol).Msg("candle load failed, treating as missing")
			}
			results = append(results, resolver.Resolve(sized, candles))
		}
	}

	if err := writeFills(cfg.Backtest.FillsPath, results); err != nil {
		log.Error().Err(err).Msg("write fills")
	}
	carried := backtest.CarryState(results)
	if err := backtest.SaveState(cfg.Backtest.StateFile, carried); err != nil {
		log.Error().Err(err).Msg("save open-position state")
	}

	var totalPnL, totalCosts float64
	for _, day := range backtest.Summarize(results) {
		totalPnL += day.PnL
		totalCosts += day.Costs
		log.Info().
			Str("day", day.Day).
			Int("trades", day.Trades).
			Int("wins", day.Wins).
			Int("open", day.Open).
			Float64("pnl", day.PnL).
			Float64("costs", day.Costs).
			Msg("session")
	}
	log.Info().
		Int("trades", len(results)).
		Int("carried", len(carried)).
		Float64("pnl", totalPnL).
		Float64("costs", totalCosts).
		Msg("backtest complete")
}

func writeFills(path string, results []backtest.Result) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
