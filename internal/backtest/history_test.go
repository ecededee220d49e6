package backtest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestHistoryLoaderReadsSessionFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "RELIANCE")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	csvData := "ts,open,high,low,close,volume\n" +
		"2025-11-03T09:15:00Z,100,101,99,100.5,1200\n" +
		"2025-11-03T09:20:00Z,100.5,101.5,100,101,900\n"
	if err := os.WriteFile(filepath.Join(dir, "2025-11-03.csv"), []byte(csvData), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loader := HistoryLoader{Root: root}
	candles, err := loader.Candles("RELIANCE", "2025-11-03")
	if err != nil {
		t.Fatalf("Candles: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(candles))
	}
	if candles[0].Open != 100 || candles[1].Close != 101 {
		t.Fatalf("unexpected candles %+v", candles)
	}
	if candles[0].Ts.Hour() != 9 || candles[0].Ts.Minute() != 15 {
		t.Fatalf("unexpected timestamp %v", candles[0].Ts)
	}
}

func TestHistoryLoaderMissingFileIsNoData(t *testing.T) {
	loader := HistoryLoader{Root: t.TempDir()}
	_, err := loader.Candles("RELIANCE", "2025-11-03")
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "open.json")
	in := []OpenPosition{{
		Symbol: "RELIANCE", Day: "2025-11-03", Qty: 10,
		Fill: 100.2, Target: 120, CurrentStop: 102.4, HighestPrice: 104.6, TrailingArmed: true,
	}}
	if err := SaveState(path, in); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	out, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(out) != 1 || out[0] != in[0] {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestLoadStateMissingFileIsEmpty(t *testing.T) {
	out, err := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil || out != nil {
		t.Fatalf("expected empty state, got %+v err %v", out, err)
	}
}
