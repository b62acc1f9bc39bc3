package util

import "testing"

func TestBaseAsset(t *testing.T) {
	cases := map[string]string{
		"btc":      "BTC",
		"BTCUSDT":  "BTC",
		"eth-usdt": "ETH",
		"SOL/USDC": "SOL",
		" doge ":   "DOGE",
		"USDT":     "USDT",
		"1000PEPE": "1000PEPE",
	}
	for in, want := range cases {
		if got := BaseAsset(in); got != want {
			t.Errorf("BaseAsset(%q)=%q want %q", in, got, want)
		}
	}
	if got := PerpSymbol("eth"); got != "ETHUSDT" {
		t.Fatalf("PerpSymbol=%q", got)
	}
	if got := PerpSymbol(""); got != "" {
		t.Fatalf("PerpSymbol empty=%q", got)
	}
}
