package feed

import (
	"time"

	sig "github.com/Augusten-advantix/Pulse915-US/internal/signal"
)

// Calendar decides when the polling loop should bother fetching candles.
type Calendar interface {
	IsTradingDay(t time.Time) bool
	InSession(t time.Time) bool
}

// SessionCalendar is a weekday calendar with fixed session clocks. Exchange
// holidays are not modeled; a cycle on a holiday just finds no fresh candles.
type SessionCalendar struct {
	Open  sig.Clock
	Close sig.Clock
}

// IsTradingDay reports whether t falls on a weekday.
func (c SessionCalendar) IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// InSession reports whether t is inside [Open, Close).
func (c SessionCalendar) InSession(t time.Time) bool {
	return c.Open.Reached(t) && !c.Close.Reached(t)
}
