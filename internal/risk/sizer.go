package risk

import "math"

// Sizer converts a signal's entry/stop levels into an integer share quantity
// under the daily loss budget and the per-trade capital cap.
type Sizer struct {
	DailyCapital       float64 // deployable capital per day
	DailyLossPct       float64 // fraction of capital risked per day
	CapitalPerTradePct float64 // max fraction of capital in one trade
}

// LiveWeight splits the daily risk budget evenly across an estimated trade
// count, since the real count is unknown while the session is running.
func LiveWeight(estimatedTradesPerDay int) float64 {
	if estimatedTradesPerDay <= 0 {
		estimatedTradesPerDay = 1
	}
	return 1.0 / float64(estimatedTradesPerDay)
}

// ScoreWeights splits the budget proportionally to score-above-50 within a
// day's realized signal set (batch mode, once all signals are known).
// Scores at or below 50 contribute nothing; an all-zero day yields zero weights.
func ScoreWeights(scores []float64) []float64 {
	weights := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		w := s - 50
		if w < 0 {
			w = 0
		}
		weights[i] = w
		sum += w
	}
	if sum <= 0 {
		return make([]float64, len(scores))
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// Quantity returns the share count for a trade, or 0 when the trade should be
// dropped. Risk must be positive; invalid levels size to zero.
func (s Sizer) Quantity(entry, stop, weight float64) int {
	if entry <= 0 || stop <= 0 {
		return 0
	}
	risk := entry - stop
	if risk <= 0 {
		return 0
	}

	lossBudget := s.DailyCapital * s.DailyLossPct * weight
	qtyRisk := math.Floor(lossBudget / risk)
	qtyCap := math.Floor(s.DailyCapital * s.CapitalPerTradePct / entry)

	qty := math.Min(qtyRisk, qtyCap)
	if qty < 1 {
		return 0
	}
	return int(qty)
}

// Allocation pairs a quantity with the entry price it was sized at, for the
// portfolio-level scale-down pass.
type Allocation struct {
	Entry float64
	Qty   int
}

// ScaleDay uniformly shrinks a day's quantities whenever the total deployed
// capital would exceed the daily budget, flooring each result. Quantities that
// scale to zero stay zero; callers drop them.
func (s Sizer) ScaleDay(allocs []Allocation) []Allocation {
	var deployed float64
	for _, a := range allocs {
		deployed += float64(a.Qty) * a.Entry
	}
	if deployed <= s.DailyCapital {
		return allocs
	}
	alpha := s.DailyCapital / deployed
	out := make([]Allocation, len(allocs))
	for i, a := range allocs {
		out[i] = Allocation{Entry: a.Entry, Qty: int(math.Floor(float64(a.Qty) * alpha))}
	}
	return out
}
