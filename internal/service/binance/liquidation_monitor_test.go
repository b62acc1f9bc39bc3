package binance

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestLiquidationMonitorWindow(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := NewLiquidationMonitor(time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := m.Liquidations(ctx, "BTC"); err == nil {
		t.Fatalf("expected error while disconnected")
	}
	m.SetConnected(true)

	m.Add(LiquidationEvent{Symbol: "BTCUSDT", Side: SideBuy, AmountUSD: 300, Timestamp: now.Add(-10 * time.Minute)})
	m.Add(LiquidationEvent{Symbol: "BTCUSDT", Side: SideSell, AmountUSD: 100, Timestamp: now.Add(-5 * time.Minute)})
	m.Add(LiquidationEvent{Symbol: "BTCUSDT", Side: SideSell, AmountUSD: 999, Timestamp: now.Add(-2 * time.Hour)})
	m.Add(LiquidationEvent{Symbol: "ETHUSDT", Side: SideSell, AmountUSD: 50, Timestamp: now})

	got, err := m.Liquidations(ctx, "btc")
	if err != nil {
		t.Fatalf("liquidations: %v", err)
	}
	if got.ShortLiqUSD != 300 || got.LongLiqUSD != 100 || got.TotalUSD != 400 {
		t.Fatalf("unexpected summary %+v", got)
	}
	if math.Abs(got.Imbalance-0.5) > 1e-12 {
		t.Fatalf("imbalance=%v", got.Imbalance)
	}

	empty, err := m.Liquidations(ctx, "DOGE")
	if err != nil || empty.TotalUSD != 0 || empty.Imbalance != 0 {
		t.Fatalf("empty summary %+v %v", empty, err)
	}
}

func TestParseForceOrder(t *testing.T) {
	raw := []byte(`{"e":"forceOrder","E":1700000000100,"o":{"s":"BTCUSDT","S":"SELL","o":"LIMIT","q":"0.5","p":"60000","ap":"60100","z":"0.5","T":1700000000000}}`)
	ev, ok := parseForceOrder(raw)
	if !ok {
		t.Fatalf("expected event")
	}
	if ev.Side != SideSell || ev.AmountUSD != 30050 || ev.Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if _, ok := parseForceOrder([]byte(`{"result":null,"id":1}`)); ok {
		t.Fatalf("non force-order frame accepted")
	}
}
