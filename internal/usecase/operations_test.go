package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/repository"
	pkgkafka "CryptoSatX/pkg/kafka"
)

type fakeMarket struct {
	lastPeriod repository.Period
	lastPoints int
}

func (f *fakeMarket) Price(_ context.Context, symbol string) (*models.PriceSnapshot, error) {
	return &models.PriceSnapshot{Symbol: symbol, Price: 1}, nil
}

func (f *fakeMarket) Funding(_ context.Context, symbol string) (*models.FundingSnapshot, error) {
	return &models.FundingSnapshot{Symbol: symbol}, nil
}

func (f *fakeMarket) OpenInterest(_ context.Context, symbol string, period repository.Period, points int) (*models.OpenInterestTrend, error) {
	f.lastPeriod, f.lastPoints = period, points
	return &models.OpenInterestTrend{Symbol: symbol, Period: string(period)}, nil
}

func (f *fakeMarket) LongShortRatio(_ context.Context, symbol string, period repository.Period) (*models.LongShortSnapshot, error) {
	return &models.LongShortSnapshot{Symbol: symbol, Ratio: 1}, nil
}

func (f *fakeMarket) Orderbook(_ context.Context, symbol string, levels int) (*models.OrderbookImbalance, error) {
	return &models.OrderbookImbalance{Symbol: symbol, Levels: levels}, nil
}

func (f *fakeMarket) RangePosition(_ context.Context, symbol, interval string, candles int) (*models.RangePosition, error) {
	return &models.RangePosition{Symbol: symbol, Interval: interval, Candles: candles, Position: 0.5}, nil
}

type fakeLiq struct{}

func (fakeLiq) Liquidations(_ context.Context, symbol string) (*models.LiquidationSummary, error) {
	return &models.LiquidationSummary{Symbol: symbol}, nil
}

type fakeSentiment struct{}

func (fakeSentiment) FearGreed(context.Context) (*models.FearGreed, error) {
	return &models.FearGreed{Value: 50}, nil
}

func newCatalog(t *testing.T, m *fakeMarket) *dispatcher.Dispatcher {
	t.Helper()
	d := dispatcher.New(dispatcher.Config{DefaultTimeout: time.Second})
	svc := NewSignalService(&fakeBuilder{}, nil, nil, nil, nil, SignalServiceConfig{}, nil)
	err := RegisterOperations(d, OperationDeps{
		Market:    m,
		Coinglass: fakeLiq{},
		Sentiment: fakeSentiment{},
		Signals:   svc,
		Defaults: MarketDefaults{
			StatsPeriod: repository.Period1h, OIPoints: 24, DepthLevels: 20, RangeInterval: "1h", RangeCandles: 24,
		},
		SignalTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return d
}

func TestCatalogNamespaces(t *testing.T) {
	d := newCatalog(t, &fakeMarket{})
	ns := d.Namespaces()
	if len(ns["binance"]) != 6 || len(ns["coinglass"]) != 1 || len(ns["sentiment"]) != 1 || len(ns["signals"]) != 3 || len(ns["system"]) != 2 {
		t.Fatalf("unexpected namespaces %v", ns)
	}
	if _, ok := ns["binance"]; !ok {
		t.Fatalf("missing binance namespace")
	}
	if d.TimeoutFor(OpSignalsGet) != 3*time.Second {
		t.Fatalf("signals.get timeout=%v", d.TimeoutFor(OpSignalsGet))
	}

	resp := d.Dispatch(context.Background(), OpSystemOperations, nil)
	if !resp.OK {
		t.Fatalf("system.operations failed: %s", resp.ErrorMessage())
	}
	data := resp.Data.(map[string]any)
	if infos := data["operations"].([]dispatcher.OperationInfo); len(infos) != 13 {
		t.Fatalf("expected 13 operations, got %d", len(infos))
	}
}

func TestCatalogArgumentHandling(t *testing.T) {
	m := &fakeMarket{}
	d := newCatalog(t, m)
	ctx := context.Background()

	resp := d.Dispatch(ctx, OpBinanceOpenInterest, dispatcher.Args{"symbol": "BTC", "period": "4h", "points": float64(12)})
	if !resp.OK || m.lastPeriod != repository.Period4h || m.lastPoints != 12 {
		t.Fatalf("open interest args not forwarded: %+v %+v", resp, m)
	}

	resp = d.Dispatch(ctx, OpBinanceOpenInterest, dispatcher.Args{"symbol": "BTC", "period": "7m"})
	if resp.OK || resp.Meta.ErrorType != dispatcher.KindBadRequest {
		t.Fatalf("bad period accepted: %+v", resp)
	}

	resp = d.Dispatch(ctx, OpBinancePrice, dispatcher.Args{})
	if resp.OK || resp.Meta.ErrorType != dispatcher.KindBadRequest || !strings.Contains(resp.ErrorMessage(), "symbol") {
		t.Fatalf("missing symbol accepted: %+v", resp)
	}

	resp = d.Dispatch(ctx, OpSignalsBatch, dispatcher.Args{"symbols": "BTC, ETH"})
	if !resp.OK {
		t.Fatalf("batch failed: %s", resp.ErrorMessage())
	}
	items := resp.Data.(map[string]any)["results"].([]models.BatchSignalItem)
	if len(items) != 2 || items[1].Symbol != "ETH" {
		t.Fatalf("unexpected batch %+v", items)
	}

	resp = d.Dispatch(ctx, OpSignalsHistory, dispatcher.Args{"symbol": "BTC"})
	if resp.OK || resp.Meta.ErrorType != dispatcher.KindHandlerError {
		t.Fatalf("history without store should fail: %+v", resp)
	}
}

type capturePublisher struct {
	topic   string
	key     []byte
	value   interface{}
	headers map[string]string
}

func (c *capturePublisher) PublishWithHeaders(_ context.Context, topic string, key []byte, value interface{}, headers map[string]string) error {
	c.topic, c.key, c.value, c.headers = topic, key, value, headers
	return nil
}

func TestKafkaDispatchHandler(t *testing.T) {
	d := newCatalog(t, &fakeMarket{})
	pub := &capturePublisher{}
	h := NewKafkaDispatchHandler("dispatch.requests", "dispatch.responses", d, pub, nil)

	err := h.Handle(context.Background(), []byte(`{"operation":"binance.price","args":{"symbol":"btc"},"request_id":"req-1"}`))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	resp := pub.value.(*models.DispatchResponse)
	if pub.topic != "dispatch.responses" || string(pub.key) != "req-1" || !resp.OK || resp.Meta.RequestID != "req-1" {
		t.Fatalf("unexpected publish topic=%s key=%s resp=%+v", pub.topic, pub.key, resp)
	}
	if pub.headers[pkgkafka.HeaderTraceID] != "req-1" {
		t.Fatalf("trace header missing: %v", pub.headers)
	}

	if err := h.Handle(context.Background(), []byte(`{"args":{}}`)); err != nil {
		t.Fatalf("invalid request should be answered, got %v", err)
	}
	resp = pub.value.(*models.DispatchResponse)
	if resp.OK || resp.Meta.ErrorType != dispatcher.KindBadRequest {
		t.Fatalf("expected bad request envelope, got %+v", resp)
	}
	if resp.Meta.TimeoutLimitS != 1 || resp.Meta.ExecutionTimeMs < 0 || resp.Meta.RequestID == "" {
		t.Fatalf("bad request envelope lacks dispatcher meta: %+v", resp.Meta)
	}

	if err := h.Handle(context.Background(), []byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

type fakeStream struct {
	fakeLiq
	connected bool
}

func (f fakeStream) Connected() bool { return f.connected }

func TestHealthReportsLiquidationStream(t *testing.T) {
	for _, connected := range []bool{true, false} {
		d := dispatcher.New(dispatcher.Config{DefaultTimeout: time.Second})
		if err := RegisterOperations(d, OperationDeps{LiquidStream: fakeStream{connected: connected}}); err != nil {
			t.Fatalf("register: %v", err)
		}
		resp := d.Dispatch(context.Background(), OpSystemHealth, nil)
		if !resp.OK {
			t.Fatalf("health failed: %s", resp.ErrorMessage())
		}
		status := resp.Data.(map[string]any)["status"].(map[string]string)
		want := "disconnected"
		if connected {
			want = "connected"
		}
		if status["liquidation_stream"] != want {
			t.Fatalf("connected=%v status=%v", connected, status)
		}
	}
}
