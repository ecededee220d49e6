package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Augusten-advantix/Pulse915-US/internal/risk"
	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// SignalRow is one confirmed signal from a recorded session, scored for
// batch allocation.
type SignalRow struct {
	Symbol string    `json:"symbol"`
	Token  int64     `json:"token"`
	Mode   sig.Mode  `json:"mode"`
	Ts     time.Time `json:"ts"`
	Entry  float64   `json:"entry"`
	Stop   float64   `json:"stop"`
	Target float64   `json:"target"`
	Score  float64   `json:"score"`
}

// Day returns the session date of the row.
func (r SignalRow) Day() string { return r.Ts.UTC().Format("2006-01-02") }

// LoadSignals reads recorded signals from a JSON array file.
func LoadSignals(path string) ([]SignalRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signals: %w", err)
	}
	var rows []SignalRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode signals: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ts.Before(rows[j].Ts) })
	return rows, nil
}

// Allocator sizes a whole session of signals at once: thin-edge setups are
// dropped, capital is split by score, and the day is scaled down if the
// summed notional would exceed the daily budget.
type Allocator struct {
	Sizer      risk.Sizer
	MinEdgePct float64 // minimum (target-entry)/entry to be worth the costs
}

// SizeDay converts one session's rows into sized signals. Rows sized to zero
// are dropped.
func (a Allocator) SizeDay(rows []SignalRow) []sig.Sized {
	kept := rows[:0:0]
	for _, r := range rows {
		if r.Entry <= 0 || (r.Target-r.Entry)/r.Entry < a.MinEdgePct {
			continue
		}
		kept = append(kept, r)
	}
	if len(kept) == 0 {
		return nil
	}

	scores := make([]float64, len(kept))
	for i, r := range kept {
		scores[i] = r.Score
	}
	weights := risk.ScoreWeights(scores)

	allocs := make([]risk.Allocation, len(kept))
	for i, r := range kept {
		allocs[i] = risk.Allocation{
			Entry: r.Entry,
			Qty:   a.Sizer.Quantity(r.Entry, r.Stop, weights[i]),
		}
	}
	allocs = a.Sizer.ScaleDay(allocs)

	out := make([]sig.Sized, 0, len(kept))
	for i, r := range kept {
		if allocs[i].Qty <= 0 {
			continue
		}
		out = append(out, sig.Sized{
			Signal: sig.Signal{
				Symbol: r.Symbol,
				Mode:   r.Mode,
				Entry:  r.Entry,
				Stop:   r.Stop,
				Target: r.Target,
				Ts:     r.Ts,
			},
			Token: r.Token,
			Qty:   allocs[i].Qty,
		})
	}
	return out
}

// GroupByDay splits rows into per-session batches, ascending by day.
func GroupByDay(rows []SignalRow) [][]SignalRow {
	byDay := make(map[string][]SignalRow)
	for _, r := range rows {
		day := r.Day()
		byDay[day] = append(byDay[day], r)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	out := make([][]SignalRow, 0, len(days))
	for _, day := range days {
		out = append(out, byDay[day])
	}
	return out
}
