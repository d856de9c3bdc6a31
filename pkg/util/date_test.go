package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseDateRange(t *testing.T) {
	f, to, err := ParseDateRange("2024-03-01", "2024-03-05")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if to.Sub(f) != 4*24*time.Hour || f.Location() != time.UTC {
		t.Fatalf("unexpected range %v %v", f, to)
	}
	if _, _, err := ParseDateRange("2024-03-05", "2024-03-01"); err == nil {
		t.Fatalf("expected reversed range error")
	}
	if _, err := ParseDate("03/05/2024"); err == nil {
		t.Fatalf("expected layout error")
	}
}

func TestEndOfDay(t *testing.T) {
	d := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)
	e := EndOfDay(d)
	if e.Day() != 1 || e.Add(time.Nanosecond).Day() != 2 {
		t.Fatalf("unexpected end of day %v", e)
	}
}
