package usecase

import (
	"context"
	"fmt"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/repository"
	"CryptoSatX/internal/domain/service"
)

// MarketDefaults are the provider parameters used when a call omits them.
type MarketDefaults struct {
	StatsPeriod   repository.Period
	OIPoints      int
	DepthLevels   int
	RangeInterval string
	RangeCandles  int
}

// OperationDeps are the collaborators behind the operation catalog.
// Nil sources leave their operations unregistered.
type OperationDeps struct {
	Market         service.DerivativesData
	Coinglass      service.LiquidationSource
	LiquidStream   service.LiquidationSource
	Sentiment      service.SentimentSource
	Signals        *SignalService
	Defaults       MarketDefaults
	SignalTimeout  time.Duration
	BatchTimeout   time.Duration
	MaxBatchSymbol int
}

// RegisterOperations fills d with the full catalog. It must run before the
// first Dispatch.
func RegisterOperations(d *dispatcher.Dispatcher, deps OperationDeps) error {
	type entry struct {
		name string
		desc string
		h    dispatcher.Handler
		opts []dispatcher.RegisterOption
	}
	var entries []entry
	add := func(name, desc string, h dispatcher.Handler, opts ...dispatcher.RegisterOption) {
		entries = append(entries, entry{name: name, desc: desc, h: h, opts: opts})
	}

	if m := deps.Market; m != nil {
		def := deps.Defaults
		add(OpBinancePrice, "24h ticker for a USDT perpetual", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			return m.Price(ctx, sym)
		})
		add(OpBinanceFunding, "last funding rate and mark price", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			return m.Funding(ctx, sym)
		})
		add(OpBinanceOpenInterest, "open interest change over a window (args: period, points)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			period, err := periodArg(a, def.StatsPeriod)
			if err != nil {
				return nil, err
			}
			points, err := a.IntRange("points", def.OIPoints, 2, 500)
			if err != nil {
				return nil, err
			}
			return m.OpenInterest(ctx, sym, period, points)
		})
		add(OpBinanceLongShort, "global long/short account ratio (args: period)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			period, err := periodArg(a, def.StatsPeriod)
			if err != nil {
				return nil, err
			}
			return m.LongShortRatio(ctx, sym, period)
		})
		add(OpBinanceOrderbook, "bid/ask notional imbalance (args: levels)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			levels, err := a.IntRange("levels", def.DepthLevels, 5, 1000)
			if err != nil {
				return nil, err
			}
			return m.Orderbook(ctx, sym, levels)
		})
		add(OpBinanceRangePosition, "close within the recent high/low range (args: interval, candles)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			candles, err := a.IntRange("candles", def.RangeCandles, 2, 1500)
			if err != nil {
				return nil, err
			}
			return m.RangePosition(ctx, sym, a.StringDefault("interval", def.RangeInterval), candles)
		})
	}

	if src := deps.Coinglass; src != nil {
		add(OpCoinglassLiq, "aggregated liquidations from Coinglass", liquidationHandler(src))
	}
	if src := deps.LiquidStream; src != nil {
		add(OpBinanceLiquidations, "liquidations from the Binance force order stream", liquidationHandler(src))
	}
	if src := deps.Sentiment; src != nil {
		add(OpSentimentFearGreed, "crypto fear & greed index", func(ctx context.Context, _ dispatcher.Args) (any, error) {
			return src.FearGreed(ctx)
		})
	}

	if svc := deps.Signals; svc != nil {
		maxBatch := deps.MaxBatchSymbol
		if maxBatch <= 0 {
			maxBatch = 20
		}
		add(OpSignalsGet, "composite signal for one symbol", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			return svc.Get(ctx, sym)
		}, timeoutOpt(deps.SignalTimeout)...)
		add(OpSignalsBatch, "composite signals for several symbols (args: symbols)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			syms, err := a.Strings("symbols")
			if err != nil {
				return nil, err
			}
			if len(syms) == 0 || len(syms) > maxBatch {
				return nil, &dispatcher.ArgumentError{Arg: "symbols", Reason: fmt.Sprintf("must list 1 to %d symbols", maxBatch)}
			}
			return map[string]any{"results": svc.Batch(ctx, syms)}, nil
		}, timeoutOpt(deps.BatchTimeout)...)
		add(OpSignalsHistory, "recent persisted signals (args: symbol, limit)", func(ctx context.Context, a dispatcher.Args) (any, error) {
			sym, err := a.RequireString("symbol")
			if err != nil {
				return nil, err
			}
			limit, err := a.IntRange("limit", 50, 1, svc.cfg.HistoryLimit)
			if err != nil {
				return nil, err
			}
			rows, err := svc.History(ctx, sym, limit)
			if err != nil {
				return nil, err
			}
			return map[string]any{"symbol": sym, "signals": rows}, nil
		})
	}

	add(OpSystemOperations, "registered operations grouped by namespace", func(context.Context, dispatcher.Args) (any, error) {
		return map[string]any{
			"operations": d.Describe(),
			"namespaces": d.Namespaces(),
		}, nil
	})
	add(OpSystemHealth, "component health", func(ctx context.Context, _ dispatcher.Args) (any, error) {
		status := map[string]string{"dispatcher": "ok"}
		if deps.Signals != nil {
			for k, v := range deps.Signals.Health(ctx) {
				status[k] = v
			}
		}
		if sc, ok := deps.LiquidStream.(streamStatus); ok {
			status["liquidation_stream"] = "disconnected"
			if sc.Connected() {
				status["liquidation_stream"] = "connected"
			}
		}
		return map[string]any{"status": status, "operations": len(d.ListOperations())}, nil
	})

	for _, e := range entries {
		opts := append([]dispatcher.RegisterOption{dispatcher.WithDescription(e.desc)}, e.opts...)
		if err := d.Register(e.name, e.h, opts...); err != nil {
			return fmt.Errorf("register %s: %w", e.name, err)
		}
	}
	return nil
}

// streamStatus is implemented by push-fed sources that hold a live connection.
type streamStatus interface {
	Connected() bool
}

func liquidationHandler(src service.LiquidationSource) dispatcher.Handler {
	return func(ctx context.Context, a dispatcher.Args) (any, error) {
		sym, err := a.RequireString("symbol")
		if err != nil {
			return nil, err
		}
		return src.Liquidations(ctx, sym)
	}
}

func periodArg(a dispatcher.Args, def repository.Period) (repository.Period, error) {
	raw, ok := a.String("period")
	if !ok {
		return def, nil
	}
	p := repository.Period(raw)
	if !repository.IsValidPeriod(p) {
		return "", &dispatcher.ArgumentError{Arg: "period", Reason: "must be one of 5m, 15m, 30m, 1h, 4h, 1d"}
	}
	return p, nil
}

func timeoutOpt(d time.Duration) []dispatcher.RegisterOption {
	if d <= 0 {
		return nil
	}
	return []dispatcher.RegisterOption{dispatcher.WithTimeout(d)}
}
