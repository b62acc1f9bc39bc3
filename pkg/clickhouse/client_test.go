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
		Port:         9440,
		Database:     "signals",
		User:         "writer",
		Password:     "p@ss",
		DialTimeout:  2 * time.Second,
		AsyncInsert:  true,
		WaitForAsync: true,
	})
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse %q: %v", dsn, err)
	}
	if u.Host != "ch.local:9440" || u.Path != "/signals" {
		t.Fatalf("host/path: %s", dsn)
	}
	if pw, _ := u.User.Password(); pw != "p@ss" || u.User.Username() != "writer" {
		t.Fatalf("credentials lost: %s", dsn)
	}
	q := u.Query()
	if q.Get("dial_timeout") != "2s" || q.Get("async_insert") != "1" || q.Get("wait_for_async_insert") != "1" {
		t.Fatalf("query: %s", u.RawQuery)
	}
	if q.Has("read_timeout") {
		t.Fatalf("zero read timeout should be omitted: %s", u.RawQuery)
	}
}

func TestNewClientRequiresHost(t *testing.T) {
	if _, err := NewClient(context.Background(), WithDatabase("signals")); err == nil {
		t.Fatalf("expected error without host")
	}
}
