// Package indicator derives rolling per-candle metrics from a bounded candle buffer.
//
// All metrics degrade to neutral values when history is insufficient; callers
// that need trustworthy values must check Snapshot.Bars themselves.
package indicator

import (
	"math"

	"github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

const (
	// ATRLength is the Wilder smoothing length (alpha = 1/ATRLength).
	ATRLength = 14
	// RSLookback is the relative-strength return window in bars.
	RSLookback = 6
	// SlotSessions is how many prior sessions feed the expected-volume slot average.
	SlotSessions = 5
	// MaxBars bounds the candle buffer while retaining enough history for VolMult.
	MaxBars = 500
)

// Snapshot holds the derived metrics for the most recent candle of one symbol.
type Snapshot struct {
	VWAP    float64 // cumulative within the day, typical-price weighted
	ATRPct  float64 // Wilder-smoothed true range as a percent of close
	RS      float64 // stock return minus benchmark return over RSLookback bars, in percent
	VolMult float64 // day volume so far over expected day volume so far
	DayHigh float64
	DayLow  float64
	Bars    int // candle number within the day, 1-based
}

// Series accumulates candles for one symbol and recomputes the snapshot on
// every append. Not safe for concurrent use; the producer owns it.
type Series struct {
	maxBars int

	candles []signal.Candle
	bench   []float64 // benchmark closes aligned with candles

	day      string
	dayStart int // index of the first candle of the current day
	bars     int
	cumTPV   float64
	cumVol   float64
	dayHigh  float64
	dayLow   float64

	prevClose float64
	atr       float64

	expectedCum float64
	slotHist    map[int][]float64 // slot -> per-session volume, newest last
	daySlotVols []float64

	volSum   float64 // all-time, backward-only fallback for expected volume
	volCount int

	last Snapshot
}

// NewSeries builds an empty series bounded to maxBars candles (MaxBars if <= 0).
func NewSeries(maxBars int) *Series {
	if maxBars <= 0 {
		maxBars = MaxBars
	}
	return &Series{
		maxBars:  maxBars,
		slotHist: make(map[int][]float64),
	}
}

// Append ingests one completed candle together with the benchmark close for the
// same bar and returns the fresh snapshot.
func (s *Series) Append(c signal.Candle, benchClose float64) Snapshot {
	if day := c.Day(); day != s.day {
		s.rollDay(day)
	}
	s.bars++

	// VWAP, cumulative within the day.
	tp := (c.High + c.Low + c.Close) / 3
	s.cumTPV += tp * c.Volume
	s.cumVol += c.Volume
	vwap := 0.0
	if s.cumVol > 0 {
		vwap = s.cumTPV / s.cumVol
	}

	// True range and Wilder ATR, seeded from the first bar of the day.
	tr := c.High - c.Low
	if s.bars > 1 {
		tr = math.Max(tr, math.Max(math.Abs(c.High-s.prevClose), math.Abs(c.Low-s.prevClose)))
	}
	if s.bars == 1 {
		s.atr = tr
	} else {
		s.atr += (tr - s.atr) / ATRLength
	}
	atrPct := 0.0
	if c.Close > 0 {
		atrPct = s.atr / c.Close * 100
	}
	s.prevClose = c.Close

	// Expected volume for this slot: trailing mean of the same slot across prior
	// sessions, else the backward-only expanding mean across all candles.
	s.volSum += c.Volume
	s.volCount++
	expected := s.volSum / float64(s.volCount)
	if hist := s.slotHist[s.bars]; len(hist) > 0 {
		sum := 0.0
		for _, v := range hist {
			sum += v
		}
		expected = sum / float64(len(hist))
	}
	s.expectedCum += expected
	volMult := 1.0
	if s.expectedCum > 0 {
		volMult = s.cumVol / s.expectedCum
		if math.IsInf(volMult, 0) || math.IsNaN(volMult) {
			volMult = 1.0
		}
	}
	s.daySlotVols = append(s.daySlotVols, c.Volume)

	if s.bars == 1 {
		s.dayHigh = c.High
		s.dayLow = c.Low
	} else {
		s.dayHigh = math.Max(s.dayHigh, c.High)
		s.dayLow = math.Min(s.dayLow, c.Low)
	}

	s.candles = append(s.candles, c)
	s.bench = append(s.bench, benchClose)
	if over := len(s.candles) - s.maxBars; over > 0 {
		s.candles = s.candles[over:]
		s.bench = s.bench[over:]
		s.dayStart -= over
		if s.dayStart < 0 {
			s.dayStart = 0
		}
	}

	s.last = Snapshot{
		VWAP:    vwap,
		ATRPct:  atrPct,
		RS:      s.relativeStrength(),
		VolMult: volMult,
		DayHigh: s.dayHigh,
		DayLow:  s.dayLow,
		Bars:    s.bars,
	}
	return s.last
}

// Last returns the snapshot from the most recent append.
func (s *Series) Last() Snapshot { return s.last }

// Today returns the current day's candles. The slice aliases internal storage
// and must not be mutated.
func (s *Series) Today() []signal.Candle {
	return s.candles[s.dayStart:]
}

func (s *Series) rollDay(day string) {
	for slot, vol := range s.daySlotVols {
		hist := append(s.slotHist[slot+1], vol)
		if len(hist) > SlotSessions {
			hist = hist[len(hist)-SlotSessions:]
		}
		s.slotHist[slot+1] = hist
	}
	s.daySlotVols = s.daySlotVols[:0]

	s.day = day
	s.dayStart = len(s.candles)
	s.bars = 0
	s.cumTPV = 0
	s.cumVol = 0
	s.expectedCum = 0
	s.atr = 0
	s.prevClose = 0
	s.dayHigh = 0
	s.dayLow = 0
}

// relativeStrength compares the instrument's return over RSLookback bars with
// the benchmark's, in percent. The window crosses day boundaries on purpose:
// the buffer retains prior sessions. With fewer bars it falls back to the
// earliest available one; with no history it is neutral zero.
func (s *Series) relativeStrength() float64 {
	i := len(s.candles) - 1
	if i < 1 {
		return 0
	}
	j := i - RSLookback
	if j < 0 {
		j = 0
	}
	baseStock := s.candles[j].Close
	baseBench := s.bench[j]
	if baseStock <= 0 || baseBench <= 0 {
		return 0
	}
	stockRet := (s.candles[i].Close/baseStock - 1) * 100
	benchRet := (s.bench[i]/baseBench - 1) * 100
	return stockRet - benchRet
}
