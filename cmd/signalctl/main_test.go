package main

import (
	"bytes"
	"testing"
)

func TestParseArgs(t *testing.T) {
	got, err := parseArgs([]string{"symbol=BTC", "limit=20", "ratio=1.5", "fresh=true", "symbols=BTC,ETH"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got["symbol"] != "BTC" || got["limit"] != float64(20) || got["ratio"] != 1.5 || got["fresh"] != true || got["symbols"] != "BTC,ETH" {
		t.Fatalf("unexpected args %#v", got)
	}
	if _, err := parseArgs([]string{"novalue"}); err == nil {
		t.Fatalf("pair without '=' accepted")
	}
	if _, err := parseArgs([]string{"=x"}); err == nil {
		t.Fatalf("empty key accepted")
	}
}

func TestPrintNamespacesSorted(t *testing.T) {
	var buf bytes.Buffer
	printNamespaces(&buf, map[string][]string{
		"signals": {"signals.batch", "signals.get"},
		"binance": {"binance.price"},
	})
	want := "binance\n  binance.price\nsignals\n  signals.batch\n  signals.get\n"
	if buf.String() != want {
		t.Fatalf("got %q", buf.String())
	}
}
