package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLRecorderAppendsTrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trades.jsonl")
	rec, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder: %v", err)
	}

	opened := time.Date(2025, 11, 3, 9, 48, 0, 0, time.UTC)
	rec.Record(Trade{OrderID: "a", Symbol: "RELIANCE", Qty: 10, Entry: 100, Exit: 104, Reason: "target", PnL: 40, OpenedAt: opened})
	rec.Record(Trade{OrderID: "b", Symbol: "TCS", Qty: 5, Entry: 200, Exit: 196, Reason: "stop", PnL: -20, OpenedAt: opened})
	if err := rec.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var trades []Trade
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tr Trade
		if err := json.Unmarshal(sc.Bytes(), &tr); err != nil {
			t.Fatalf("unmarshal line: %v", err)
		}
		trades = append(trades, tr)
	}
	if len(trades) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(trades))
	}
	if trades[1].Symbol != "TCS" || trades[1].Reason != "stop" {
		t.Fatalf("unexpected second trade %+v", trades[1])
	}
}

func TestTradeLogSnapshotIsCopy(t *testing.T) {
	log := NewTradeLog(2)
	log.Record(Trade{OrderID: "a"})
	snap := log.Snapshot()
	snap[0].OrderID = "mutated"
	if log.Snapshot()[0].OrderID != "a" {
		t.Fatalf("snapshot mutation leaked into the log")
	}
	log.Reset()
	if len(log.Snapshot()) != 0 {
		t.Fatalf("expected empty log after reset")
	}
}
