// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Session describes the trading day boundaries every time-gated rule keys off.
type Session struct {
	Open              string `yaml:"open"`                // first candle of the day
	ORBEnd            string `yaml:"orb_end"`             // opening-range window close
	EntryStart        string `yaml:"entry_start"`         // earliest confirmation
	EntryEnd          string `yaml:"entry_end"`           // latest breakout confirmation
	Close             string `yaml:"close"`               // session close, gates polling
	ForceExitLive     string `yaml:"force_exit_live"`     // live coordinator safety net
	ForceExitBacktest string `yaml:"force_exit_backtest"` // backtest resolver cutoff
}

// Universe lists the tradable symbols, their broker instrument tokens, and the benchmark index.
type Universe struct {
	Symbols        []string         `yaml:"symbols"`
	Tokens         map[string]int64 `yaml:"tokens"`
	Benchmark      string           `yaml:"benchmark"`
	BenchmarkToken int64            `yaml:"benchmark_token"`
}

// Strategy groups the entry-mode thresholds and the stop/target rule knobs.
type Strategy struct {
	TickSize        float64 `yaml:"tick_size"`
	VolMultBreakout float64 `yaml:"volmult_breakout"`
	VolMultReclaim  float64 `yaml:"volmult_reclaim"`
	VolMultDayHigh  float64 `yaml:"volmult_day_high"`
	RSMin           float64 `yaml:"rs_min"`
	NearHighFrac    float64 `yaml:"near_high_frac"`
	MinORBBars      int     `yaml:"min_orb_bars"`
	ATRMultiplier   float64 `yaml:"atr_multiplier"`
	StopMinPct      float64 `yaml:"stop_min_pct"`
	StopMaxPct      float64 `yaml:"stop_max_pct"`
	RiskReward      float64 `yaml:"risk_reward"`
}

// Risk encodes the daily capital budget and loss guard-rails the sizer enforces.
type Risk struct {
	DailyCapital          float64 `yaml:"daily_capital"`
	DailyLossPct          float64 `yaml:"daily_loss_pct"`
	CapitalPerTradePct    float64 `yaml:"capital_per_trade_pct"`
	EstimatedTradesPerDay int     `yaml:"estimated_trades_per_day"`
}

// Broker points at the paper-trading REST API.
type Broker struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Feed tunes the candle polling loop and the backfill warm-up.
type Feed struct {
	Provider               string `yaml:"provider"` // "stream", "stub"
	StreamURL              string `yaml:"stream_url"`
	IntervalMinutes        int    `yaml:"interval_minutes"`
	PollOffsetSecs         int    `yaml:"poll_offset_secs"`
	RequestDelayMs         int    `yaml:"request_delay_ms"`
	BackfillDays           int    `yaml:"backfill_days"`
	EnqueueBackfillSignals bool   `yaml:"enqueue_backfill_signals"`
	QueueSize              int    `yaml:"queue_size"`
}

// Backtest locates historical 1-minute data and the unresolved-trade state file.
type Backtest struct {
	DataDir    string  `yaml:"data_dir"`
	StateFile  string  `yaml:"state_file"`
	FillsPath  string  `yaml:"fills_path"`
	MinEdgePct float64 `yaml:"min_edge_pct"`
	CostPct    float64 `yaml:"cost_pct"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Session  Session  `yaml:"session"`
	Universe Universe `yaml:"universe"`
	Strategy Strategy `yaml:"strategy"`
	Risk     Risk     `yaml:"risk"`
	Broker   Broker   `yaml:"broker"`
	Feed     Feed     `yaml:"feed"`
	Backtest Backtest `yaml:"backtest"`
}

// Load reads a YAML file from disk and hydrates a Config struct, filling
// unset knobs with the historical defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9109"
	}
	if c.Session.Open == "" {
		c.Session.Open = "09:15"
	}
	if c.Session.ORBEnd == "" {
		c.Session.ORBEnd = "09:30"
	}
	if c.Session.EntryStart == "" {
		c.Session.EntryStart = "09:45"
	}
	if c.Session.EntryEnd == "" {
		c.Session.EntryEnd = "10:45"
	}
	if c.Session.Close == "" {
		c.Session.Close = "15:30"
	}
	if c.Session.ForceExitLive == "" {
		c.Session.ForceExitLive = "15:25"
	}
	if c.Session.ForceExitBacktest == "" {
		c.Session.ForceExitBacktest = "15:10"
	}
	if c.Strategy.TickSize <= 0 {
		c.Strategy.TickSize = 0.05
	}
	if c.Strategy.VolMultBreakout <= 0 {
		c.Strategy.VolMultBreakout = 1.8
	}
	if c.Strategy.VolMultReclaim <= 0 {
		c.Strategy.VolMultReclaim = 1.3
	}
	if c.Strategy.VolMultDayHigh <= 0 {
		c.Strategy.VolMultDayHigh = 1.5
	}
	if c.Strategy.RSMin <= 0 {
		c.Strategy.RSMin = 0.6
	}
	if c.Strategy.NearHighFrac <= 0 {
		c.Strategy.NearHighFrac = 0.004
	}
	if c.Strategy.MinORBBars <= 0 {
		c.Strategy.MinORBBars = 3
	}
	if c.Strategy.ATRMultiplier <= 0 {
		c.Strategy.ATRMultiplier = 1.25
	}
	if c.Strategy.StopMinPct <= 0 {
		c.Strategy.StopMinPct = 1.0
	}
	if c.Strategy.StopMaxPct <= 0 {
		c.Strategy.StopMaxPct = 2.5
	}
	if c.Strategy.RiskReward <= 0 {
		c.Strategy.RiskReward = 2.0
	}
	if c.Risk.DailyCapital <= 0 {
		c.Risk.DailyCapital = 1_000_000
	}
	if c.Risk.DailyLossPct <= 0 {
		c.Risk.DailyLossPct = 0.02
	}
	if c.Risk.CapitalPerTradePct <= 0 {
		c.Risk.CapitalPerTradePct = 0.50
	}
	if c.Risk.EstimatedTradesPerDay <= 0 {
		c.Risk.EstimatedTradesPerDay = 5
	}
	if c.Broker.TimeoutMs <= 0 {
		c.Broker.TimeoutMs = 3000
	}
	if c.Feed.IntervalMinutes <= 0 {
		c.Feed.IntervalMinutes = 5
	}
	if c.Feed.PollOffsetSecs <= 0 {
		c.Feed.PollOffsetSecs = 3
	}
	if c.Feed.RequestDelayMs <= 0 {
		c.Feed.RequestDelayMs = 500
	}
	if c.Feed.BackfillDays <= 0 {
		c.Feed.BackfillDays = 7
	}
	if c.Feed.QueueSize <= 0 {
		c.Feed.QueueSize = 64
	}
	if c.Backtest.MinEdgePct <= 0 {
		c.Backtest.MinEdgePct = 0.0025
	}
	if c.Backtest.CostPct <= 0 {
		c.Backtest.CostPct = 0.0005
	}
}
