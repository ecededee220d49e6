package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// ErrNoData marks a symbol/session with no recorded candle file.
var ErrNoData = errors.New("no candle data")

// HistoryLoader reads per-session candle files laid out as
// root/SYMBOL/YYYY-MM-DD.csv with columns ts,open,high,low,close,volume.
type HistoryLoader struct {
	Root string
}

// Candles loads the session candles for one symbol and day, ascending by
// timestamp. A missing file returns ErrNoData.
func (l HistoryLoader) Candles(symbol, day string) ([]sig.Candle, error) {
	path := filepath.Join(l.Root, symbol, day+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s %s: %w", symbol, day, ErrNoData)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 6

	var out []sig.Candle
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		line++
		if line == 1 && record[0] == "ts" {
			continue // header row
		}
		c, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCandle(record []string) (sig.Candle, error) {
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return sig.Candle{}, fmt.Errorf("parse timestamp %q: %w", record[0], err)
	}
	vals := make([]float64, 5)
	for i, raw := range record[1:] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return sig.Candle{}, fmt.Errorf("parse field %q: %w", raw, err)
		}
		vals[i] = v
	}
	return sig.Candle{
		Ts:     ts.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
