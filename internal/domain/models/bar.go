package models

import (
	"math"
	"time"
)

// Session labels a minute by trading session.
type Session string

const (
	SessionRTH Session = "RTH"
	SessionAH  Session = "AH"
)

// MinuteBar is one joined asset/benchmark minute. Bars are immutable once loaded.
type MinuteBar struct {
	Timestamp       time.Time // UTC
	LocalDate       time.Time // exchange-local calendar date at midnight UTC
	LocalTime       Clock
	Session         Session
	AssetClose      float64
	AssetVolume     float64
	BenchmarkClose  float64
	BenchmarkVolume float64
}

// Ratio returns benchmark/asset. ok is false when the asset price is zero or either side is not finite.
func (b MinuteBar) Ratio() (float64, bool) {
	if b.AssetClose == 0 || !finite(b.AssetClose) || !finite(b.BenchmarkClose) {
		return math.NaN(), false
	}
	r := b.BenchmarkClose / b.AssetClose
	return r, finite(r)
}

// DollarVolume is asset price times asset volume.
func (b MinuteBar) DollarVolume() float64 {
	return b.AssetClose * b.AssetVolume
}

// Tradable reports whether the bar carries a usable asset price.
func (b MinuteBar) Tradable() bool {
	return finite(b.AssetClose) && b.AssetClose > 0
}

// DateKey returns the bar's local date as YYYY-MM-DD.
func (b MinuteBar) DateKey() string {
	return b.LocalDate.Format(DateLayout)
}

// DateLayout is the canonical day format used for keys and payloads.
const DateLayout = "2006-01-02"

// Clock is a time of day with second resolution.
type Clock struct {
	Hour, Minute, Second int
}

// NewClock builds a Clock from a wall time.
func NewClock(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// ParseClock parses HH:MM:SS or HH:MM.
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewClock(t), nil
		}
	}
	return Clock{}, &ConfigError{Param: "clock", Reason: "invalid time of day " + s}
}

// Seconds returns seconds since midnight.
func (c Clock) Seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

// Before reports c < o.
func (c Clock) Before(o Clock) bool { return c.Seconds() < o.Seconds() }

// After reports c > o.
func (c Clock) After(o Clock) bool { return c.Seconds() > o.Seconds() }

func (c Clock) String() string {
	return time.Date(0, 1, 1, c.Hour, c.Minute, c.Second, 0, time.UTC).Format("15:04:05")
}

// DayBars groups one trading day's bars in timestamp order.
type DayBars struct {
	Date time.Time
	Bars []MinuteBar
}

// GroupByDay splits an ordered bar slice into consecutive local-date groups.
func GroupByDay(bars []MinuteBar) []DayBars {
	var out []DayBars
	for i := 0; i < len(bars); {
		j := i
		for j < len(bars) && bars[j].LocalDate.Equal(bars[i].LocalDate) {
			j++
		}
		out = append(out, DayBars{Date: bars[i].LocalDate, Bars: bars[i:j]})
		i = j
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
