package clickhouse

import (
	"context"
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(ClientConfig{
		Host:         "ch.local",
		Port:         9000,
		Database:     "coinpulse",
		User:         "writer",
		Password:     "p@ss",
		DialTimeout:  5 * time.Second,
		MaxExecTime:  30 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})

	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn %q: %v", dsn, err)
	}
	if u.Scheme != "clickhouse" || u.Host != "ch.local:9000" || u.Path != "/coinpulse" {
		t.Fatalf("unexpected dsn %q", dsn)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" || u.User.Username() != "writer" {
		t.Fatalf("credentials not round-tripped: %q", dsn)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "5s" || q.Get("max_execution_time") != "30" {
		t.Fatalf("unexpected params %v", q)
	}
	if q.Get("async_insert") != "1" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("async params missing: %v", q)
	}
	if q.Has("read_timeout") {
		t.Fatalf("zero read timeout should be omitted")
	}
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(ClientConfig{Host: "h", Port: 8123, Database: "d", User: "u", UseHTTP: true})
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme != "http" {
		t.Fatalf("dsn %q err=%v", dsn, err)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background()); err == nil {
		t.Fatalf("expected error without host")
	}
}
