package di

import (
	"context"
	"strconv"
	"testing"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/service/binance"
	"CryptoSatX/internal/usecase"
	"CryptoSatX/pkg/config"
)

func TestSignalTimeoutsDerivedFromDeadline(t *testing.T) {
	cfg := &config.Config{}
	cfg.Signal.BatchConcurrency = 4

	single, batch := signalTimeouts(cfg, 10*time.Second)
	if single != 11*time.Second {
		t.Fatalf("single=%v", single)
	}
	if batch != 51*time.Second {
		t.Fatalf("batch=%v", batch)
	}
}

func TestSignalTimeoutsLeaveConfiguredOverrides(t *testing.T) {
	cfg := &config.Config{}
	cfg.Signal.BatchConcurrency = 4
	cfg.Dispatcher.TimeoutOverrides = map[string]float64{usecase.OpSignalsBatch: 300}

	single, batch := signalTimeouts(cfg, 10*time.Second)
	if single != 11*time.Second || batch != 0 {
		t.Fatalf("single=%v batch=%v", single, batch)
	}
}

func TestLiquidationSourceSelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Liquidations.Source = "coinglass"
	if ProvideLiquidationMonitor(cfg) != nil {
		t.Fatalf("monitor created for coinglass source")
	}
	cfg.Liquidations.Source = "stream"
	cfg.Liquidations.Window = time.Hour
	m := ProvideLiquidationMonitor(cfg)
	if m == nil {
		t.Fatalf("monitor missing for stream source")
	}
	if ProvideLiquidationStream(cfg, nil, nil) != nil {
		t.Fatalf("stream without monitor")
	}
}

func TestRateLimitPrunerEvictsIdleClients(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.RateLimit.Capacity = 2
	cfg.Server.RateLimit.RefillPerSec = 1
	rl := ProvideRateLimiter(cfg)
	for i := 0; i < 50; i++ {
		rl.Allow("10.0.0." + strconv.Itoa(i))
	}
	if rl.Len() != 50 {
		t.Fatalf("buckets=%d", rl.Len())
	}

	pruner := rateLimitPruner(rl, 20*time.Millisecond)
	if err := pruner.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for rl.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("idle buckets retained: %d", rl.Len())
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pruner.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestStreamSourceReplacesCoinglass(t *testing.T) {
	cfg := &config.Config{}
	cfg.Signal.BatchConcurrency = 4
	sc := &usecase.ScoringConfig{Deadline: 5 * time.Second}

	cases := []struct {
		monitor      *binance.LiquidationMonitor
		want, absent string
	}{
		{nil, usecase.OpCoinglassLiq, usecase.OpBinanceLiquidations},
		{binance.NewLiquidationMonitor(time.Hour), usecase.OpBinanceLiquidations, usecase.OpCoinglassLiq},
	}
	for _, tc := range cases {
		d := dispatcher.New(dispatcher.Config{DefaultTimeout: time.Second})
		ops, err := ProvideOperations(d, cfg, binance.New("", "", false), tc.monitor, sc, nil)
		if err != nil {
			t.Fatalf("operations: %v", err)
		}
		seen := map[string]bool{}
		for _, op := range ops {
			seen[op] = true
		}
		if !seen[tc.want] || seen[tc.absent] {
			t.Fatalf("want %s without %s, got %v", tc.want, tc.absent, ops)
		}
	}
}
