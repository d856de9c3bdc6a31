package session

import (
	"errors"
	"testing"
	"time"

	"RatioLab/internal/domain/models"
)

func TestClassifyClockBoundaries(t *testing.T) {
	cases := []struct {
		clock string
		want  models.Session
	}{
		{"09:29:59", models.SessionAH},
		{"09:30:00", models.SessionRTH},
		{"12:00:00", models.SessionRTH},
		{"16:00:00", models.SessionRTH},
		{"16:00:01", models.SessionAH},
		{"04:00:00", models.SessionAH},
	}
	for _, tc := range cases {
		c, err := models.ParseClock(tc.clock)
		if err != nil {
			t.Fatalf("parse %s: %v", tc.clock, err)
		}
		if got := ClassifyClock(c); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.clock, got, tc.want)
		}
	}
}

func TestLocalizeUsesExchangeZone(t *testing.T) {
	// 14:30 UTC in March after DST switch is 10:30 New York.
	b := Localize(models.MinuteBar{Timestamp: time.Date(2024, 3, 12, 14, 30, 0, 0, time.UTC)})
	if b.Session != models.SessionRTH || b.LocalTime.String() != "10:30:00" {
		t.Fatalf("unexpected localization %+v", b)
	}
	// 01:00 UTC belongs to the previous New York date.
	b = Localize(models.MinuteBar{Timestamp: time.Date(2024, 3, 13, 1, 0, 0, 0, time.UTC)})
	if b.DateKey() != "2024-03-12" || b.Session != models.SessionAH {
		t.Fatalf("unexpected localization %+v", b)
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("10:00-11:30")
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if w.Kind != WindowCustom || w.String() != "10:00:00-11:30:00" {
		t.Fatalf("unexpected window %+v", w)
	}
	if w, _ := ParseWindow("all"); w.Kind != WindowAll {
		t.Fatalf("expected ALL")
	}
	_, err = ParseWindow("11:00-10:00")
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWindowFilter(t *testing.T) {
	mk := func(h, m int) models.MinuteBar {
		c := models.Clock{Hour: h, Minute: m}
		return models.MinuteBar{LocalTime: c, Session: ClassifyClock(c)}
	}
	bars := []models.MinuteBar{mk(8, 0), mk(9, 30), mk(10, 15), mk(16, 0), mk(17, 0)}
	if n := len(Window{Kind: WindowRTH}.Filter(bars)); n != 3 {
		t.Fatalf("RTH expected 3 got %d", n)
	}
	if n := len(Window{Kind: WindowAH}.Filter(bars)); n != 2 {
		t.Fatalf("AH expected 2 got %d", n)
	}
	custom, _ := ParseWindow("10:15-17:00")
	if n := len(custom.Filter(bars)); n != 3 {
		t.Fatalf("custom expected 3 got %d", n)
	}
}

func TestLiquidityFilter(t *testing.T) {
	bars := []models.MinuteBar{
		{AssetClose: 10, AssetVolume: 5},
		{AssetClose: 10, AssetVolume: 50},
		{AssetClose: 1, AssetVolume: 500},
	}
	l := Liquidity{MinShares: 10, MinDollar: 400}
	got := l.Filter(bars)
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if (Liquidity{}).Enabled() {
		t.Fatalf("zero value should be disabled")
	}
}

func TestDayBoundsCoverLocalDates(t *testing.T) {
	d := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	start, end := DayBounds(d, d)
	// EDT is UTC-4.
	if !start.Equal(time.Date(2024, 7, 1, 4, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start %v", start)
	}
	if !end.Equal(time.Date(2024, 7, 2, 4, 0, 0, 0, time.UTC).Add(-time.Nanosecond)) {
		t.Fatalf("unexpected end %v", end)
	}
}
