package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// OpenPosition is the carried state of a trade still open when its session's
// data ran out, so a later run can resume the trail where it left off.
type OpenPosition struct {
	Symbol        string  `json:"symbol"`
	Day           string  `json:"day"`
	Qty           int     `json:"qty"`
	Fill          float64 `json:"fill"`
	Target        float64 `json:"target"`
	CurrentStop   float64 `json:"current_stop"`
	HighestPrice  float64 `json:"highest_price"`
	TrailingArmed bool    `json:"trailing_armed"`
}

// SaveState writes open positions as JSON, replacing any previous state file.
func SaveState(path string, positions []OpenPosition) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := json.MarshalIndent(positions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// LoadState reads open positions back; a missing file is an empty state.
func LoadState(path string) ([]OpenPosition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state: %w", err)
	}
	var positions []OpenPosition
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return positions, nil
}

// CarryState extracts open positions from resolved results.
func CarryState(results []Result) []OpenPosition {
	var out []OpenPosition
	for _, r := range results {
		if !r.Open {
			continue
		}
		out = append(out, OpenPosition{
			Symbol:        r.Sized.Symbol,
			Day:           r.Sized.Ts.UTC().Format("2006-01-02"),
			Qty:           r.Sized.Qty,
			Fill:          r.Fill,
			Target:        r.Sized.Target,
			CurrentStop:   r.CurrentStop,
			HighestPrice:  r.HighestPrice,
			TrailingArmed: r.TrailingArmed,
		})
	}
	return out
}
