package clickhouse

import (
	"strings"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	cfg := ClientConfig{
		Host:        "ch",
		Port:        9000,
		Database:    "ratiolab",
		User:        "u",
		Password:    "p",
		DialTimeout: 5 * time.Second,
		AsyncInsert: true,
	}
	dsn := BuildDSN(cfg)
	if !strings.HasPrefix(dsn, "clickhouse://u:p@ch:9000/ratiolab?") {
		t.Fatalf("unexpected dsn prefix %q", dsn)
	}
	if !strings.Contains(dsn, "dial_timeout=5s") || !strings.Contains(dsn, "&async_insert=1") {
		t.Fatalf("missing params in %q", dsn)
	}
	if strings.Contains(dsn, "wait_for_async_insert") {
		t.Fatalf("wait flag must be opt-in: %q", dsn)
	}
}

func TestBuildDSNWithoutParams(t *testing.T) {
	dsn := BuildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", User: "u", UseHTTP: true})
	if dsn != "http://u:@h:8123/d" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(); err == nil {
		t.Fatalf("expected error without host")
	}
}
