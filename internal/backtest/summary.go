package backtest

import "sort"

// DaySummary aggregates resolved trades for one session.
type DaySummary struct {
	Day     string
	Trades  int
	Wins    int
	Open    int
	PnL     float64
	Costs   float64
	ByExit  map[ExitReason]int
}

// Summarize groups results by session date, ascending.
func Summarize(results []Result) []DaySummary {
	byDay := make(map[string]*DaySummary)
	for _, r := range results {
		day := r.Sized.Ts.UTC().Format("2006-01-02")
		s := byDay[day]
		if s == nil {
			s = &DaySummary{Day: day, ByExit: make(map[ExitReason]int)}
			byDay[day] = s
		}
		s.Trades++
		s.ByExit[r.Reason]++
		s.Costs += r.Cost
		if r.Open {
			s.Open++
			continue
		}
		s.PnL += r.PnL
		if r.PnL > 0 {
			s.Wins++
		}
	}

	out := make([]DaySummary, 0, len(byDay))
	for _, s := range byDay {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
