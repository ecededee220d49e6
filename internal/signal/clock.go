package signal

import (
	"fmt"
	"time"
)

// Clock is a time-of-day boundary ("15:10") compared against candle timestamps.
// Session windows and the force-exit cutoff are all expressed as Clocks.
type Clock struct {
	Hour int
	Min  int
}

// ParseClock reads an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	var c Clock
	if _, err := fmt.Sscanf(s, "%d:%d", &c.Hour, &c.Min); err != nil {
		return Clock{}, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if c.Hour < 0 || c.Hour > 23 || c.Min < 0 || c.Min > 59 {
		return Clock{}, fmt.Errorf("parse clock %q: out of range", s)
	}
	return c, nil
}

// MustClock is ParseClock for literals in defaults and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes returns the clock as minutes since midnight.
func (c Clock) Minutes() int { return c.Hour*60 + c.Min }

// Reached reports whether t's time of day is at or past the boundary.
func (c Clock) Reached(t time.Time) bool { return MinuteOfDay(t) >= c.Minutes() }

// After reports whether t's time of day is strictly past the boundary.
func (c Clock) After(t time.Time) bool { return MinuteOfDay(t) > c.Minutes() }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Min) }

// MinuteOfDay returns t's minutes since midnight, ignoring seconds.
func MinuteOfDay(t time.Time) int { return t.Hour()*60 + t.Minute() }

// SecondOfDay returns t's seconds since midnight, used where sub-minute
// ordering matters (entry fills on 1-minute data).
func SecondOfDay(t time.Time) int { return t.Hour()*3600 + t.Minute()*60 + t.Second() }
