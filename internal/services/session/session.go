// Package session labels minutes by trading session and selects intraday windows.
package session

import (
	"strings"
	"time"
	_ "time/tzdata"

	"RatioLab/internal/domain/models"
)

// ExchangeTimezone is the zone regular trading hours are defined in.
const ExchangeTimezone = "America/New_York"

var (
	RTHOpen  = models.Clock{Hour: 9, Minute: 30}
	RTHClose = models.Clock{Hour: 16}
)

var exchangeLoc = mustLoad(ExchangeTimezone)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Location returns the exchange time zone.
func Location() *time.Location { return exchangeLoc }

// ClassifyClock labels a local time of day. Both RTH bounds are inclusive.
func ClassifyClock(c models.Clock) models.Session {
	if !c.Before(RTHOpen) && !c.After(RTHClose) {
		return models.SessionRTH
	}
	return models.SessionAH
}

// ClassifySession labels an instant by its exchange-local time of day.
func ClassifySession(t time.Time) models.Session {
	return ClassifyClock(models.NewClock(t.In(exchangeLoc)))
}

// Localize fills the derived local fields of a bar from its UTC timestamp.
func Localize(b models.MinuteBar) models.MinuteBar {
	lt := b.Timestamp.In(exchangeLoc)
	b.Timestamp = b.Timestamp.UTC()
	b.LocalDate = time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, time.UTC)
	b.LocalTime = models.NewClock(lt)
	b.Session = ClassifyClock(b.LocalTime)
	return b
}

// WindowKind selects which minutes of a day participate.
type WindowKind string

const (
	WindowRTH    WindowKind = "RTH"
	WindowAH     WindowKind = "AH"
	WindowAll    WindowKind = "ALL"
	WindowCustom WindowKind = "CUSTOM"
)

// Window is an intraday selection. Start and End apply to CUSTOM only and are inclusive.
type Window struct {
	Kind  WindowKind
	Start models.Clock
	End   models.Clock
}

// ParseWindow accepts RTH, AH, ALL or "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	s = strings.TrimSpace(s)
	switch WindowKind(strings.ToUpper(s)) {
	case WindowRTH, "":
		return Window{Kind: WindowRTH}, nil
	case WindowAH:
		return Window{Kind: WindowAH}, nil
	case WindowAll:
		return Window{Kind: WindowAll}, nil
	}
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, models.NewConfigError("window", "expected RTH, AH, ALL or HH:MM-HH:MM, got %q", s)
	}
	a, err := models.ParseClock(strings.TrimSpace(start))
	if err != nil {
		return Window{}, models.NewConfigError("window", "bad start %q", start)
	}
	b, err := models.ParseClock(strings.TrimSpace(end))
	if err != nil {
		return Window{}, models.NewConfigError("window", "bad end %q", end)
	}
	if b.Before(a) {
		return Window{}, models.NewConfigError("window", "end %s before start %s", b, a)
	}
	return Window{Kind: WindowCustom, Start: a, End: b}, nil
}

func (w Window) String() string {
	if w.Kind == WindowCustom {
		return w.Start.String() + "-" + w.End.String()
	}
	return string(w.Kind)
}

// Contains reports whether a bar falls inside the window.
func (w Window) Contains(b models.MinuteBar) bool {
	switch w.Kind {
	case WindowAll:
		return true
	case WindowAH:
		return b.Session == models.SessionAH
	case WindowCustom:
		return !b.LocalTime.Before(w.Start) && !b.LocalTime.After(w.End)
	default:
		return b.Session == models.SessionRTH
	}
}

// Filter returns the bars inside the window, preserving order.
func (w Window) Filter(bars []models.MinuteBar) []models.MinuteBar {
	if w.Kind == WindowAll {
		return bars
	}
	out := make([]models.MinuteBar, 0, len(bars))
	for _, b := range bars {
		if w.Contains(b) {
			out = append(out, b)
		}
	}
	return out
}

// Liquidity drops bars below a minimum share volume or dollar volume. Zero disables a limit.
type Liquidity struct {
	MinShares float64
	MinDollar float64
}

// Enabled reports whether any limit is set.
func (l Liquidity) Enabled() bool { return l.MinShares > 0 || l.MinDollar > 0 }

// Allows reports whether a bar passes both limits.
func (l Liquidity) Allows(b models.MinuteBar) bool {
	if l.MinShares > 0 && !(b.AssetVolume >= l.MinShares) {
		return false
	}
	if l.MinDollar > 0 && !(b.DollarVolume() >= l.MinDollar) {
		return false
	}
	return true
}

// Filter returns the bars that pass.
func (l Liquidity) Filter(bars []models.MinuteBar) []models.MinuteBar {
	if !l.Enabled() {
		return bars
	}
	out := make([]models.MinuteBar, 0, len(bars))
	for _, b := range bars {
		if l.Allows(b) {
			out = append(out, b)
		}
	}
	return out
}

// DayBounds converts inclusive local dates to the UTC instants [start of from, end of to].
func DayBounds(from, to time.Time) (time.Time, time.Time) {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, exchangeLoc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, exchangeLoc).AddDate(0, 0, 1)
	return start.UTC(), end.Add(-time.Nanosecond).UTC()
}
