package binance

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"CryptoSatX/internal/domain/repository"
	"CryptoSatX/internal/service/upstream"
)

type fakeAPI struct {
	tickers  []tickerRow
	premium  []premiumRow
	oi       []oiRow
	ratios   []ratioRow
	bids     []levelRow
	asks     []levelRow
	candles  []candleRow
	err      error
	lastSym  string
	lastArgs []any
}

func (f *fakeAPI) Ticker(_ context.Context, symbol string) ([]tickerRow, error) {
	f.lastSym = symbol
	return f.tickers, f.err
}

func (f *fakeAPI) PremiumIndex(_ context.Context, symbol string) ([]premiumRow, error) {
	f.lastSym = symbol
	return f.premium, f.err
}

func (f *fakeAPI) OpenInterestHist(_ context.Context, symbol, period string, limit int) ([]oiRow, error) {
	f.lastSym = symbol
	f.lastArgs = []any{period, limit}
	return f.oi, f.err
}

func (f *fakeAPI) GlobalLongShort(_ context.Context, symbol, period string, limit int) ([]ratioRow, error) {
	f.lastSym = symbol
	f.lastArgs = []any{period, limit}
	return f.ratios, f.err
}

func (f *fakeAPI) Depth(_ context.Context, symbol string, limit int) ([]levelRow, []levelRow, error) {
	f.lastSym = symbol
	f.lastArgs = []any{limit}
	return f.bids, f.asks, f.err
}

func (f *fakeAPI) Klines(_ context.Context, symbol, interval string, limit int) ([]candleRow, error) {
	f.lastSym = symbol
	f.lastArgs = []any{interval, limit}
	return f.candles, f.err
}

func newTestClient(api *fakeAPI) *Client {
	return &Client{api: api, now: func() time.Time { return time.Unix(1700000000, 0) }}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestPriceNormalizesSymbol(t *testing.T) {
	api := &fakeAPI{tickers: []tickerRow{{LastPrice: "65000.5", ChangePct: "2.5", High: "66000", Low: "63000", QuoteVolume: "1e9"}}}
	c := newTestClient(api)

	got, err := c.Price(context.Background(), "btc")
	if err != nil {
		t.Fatalf("price: %v", err)
	}
	if api.lastSym != "BTCUSDT" {
		t.Fatalf("symbol sent %q", api.lastSym)
	}
	if !near(got.Price, 65000.5) || !near(got.ChangePct, 2.5) || !near(got.Volume, 1e9) {
		t.Fatalf("unexpected snapshot %+v", got)
	}
}

func TestPriceParseFailureIsUpstreamError(t *testing.T) {
	c := newTestClient(&fakeAPI{tickers: []tickerRow{{LastPrice: "n/a", ChangePct: "1", High: "1", Low: "1", QuoteVolume: "1"}}})
	_, err := c.Price(context.Background(), "BTC")
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestOpenInterestChange(t *testing.T) {
	api := &fakeAPI{oi: []oiRow{{SumOpenInterest: "100"}, {SumOpenInterest: "105"}, {SumOpenInterest: "110"}}}
	c := newTestClient(api)
	got, err := c.OpenInterest(context.Background(), "ETH", repository.Period1h, 3)
	if err != nil {
		t.Fatalf("oi: %v", err)
	}
	if !near(got.ChangePct, 10) || got.Period != "1h" {
		t.Fatalf("unexpected trend %+v", got)
	}
	if api.lastArgs[1].(int) != 3 {
		t.Fatalf("limit=%v", api.lastArgs[1])
	}

	api.oi = api.oi[:1]
	if _, err := c.OpenInterest(context.Background(), "ETH", repository.Period1h, 3); err == nil {
		t.Fatalf("expected error with a single point")
	}
}

func TestOpenInterestNonPositiveBaseIsReported(t *testing.T) {
	api := &fakeAPI{oi: []oiRow{{SumOpenInterest: "-5"}, {SumOpenInterest: "10"}}}
	got, err := newTestClient(api).OpenInterest(context.Background(), "ETH", repository.Period1h, 2)
	if err != nil {
		t.Fatalf("a bad reading must not look like a provider failure: %v", err)
	}
	if got.Previous != -5 || got.Current != 10 || got.ChangePct != 0 {
		t.Fatalf("unexpected trend %+v", got)
	}
}

func TestOrderbookImbalance(t *testing.T) {
	api := &fakeAPI{
		bids: []levelRow{{Price: "10", Quantity: "3"}},
		asks: []levelRow{{Price: "10", Quantity: "1"}},
	}
	got, err := newTestClient(api).Orderbook(context.Background(), "SOL", 20)
	if err != nil {
		t.Fatalf("orderbook: %v", err)
	}
	if !near(got.Imbalance, 0.5) {
		t.Fatalf("imbalance=%v", got.Imbalance)
	}

	api.bids, api.asks = nil, nil
	if _, err := newTestClient(api).Orderbook(context.Background(), "SOL", 20); err == nil {
		t.Fatalf("expected error for empty book")
	}
}

func TestRangePosition(t *testing.T) {
	api := &fakeAPI{candles: []candleRow{
		{High: "110", Low: "100", Close: "105"},
		{High: "120", Low: "95", Close: "115"},
		{High: "118", Low: "100", Close: "115"},
	}}
	got, err := newTestClient(api).RangePosition(context.Background(), "BTC", "1h", 3)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if !near(got.High, 120) || !near(got.Low, 95) || !near(got.Position, 0.8) {
		t.Fatalf("unexpected range %+v", got)
	}

	api.candles = []candleRow{{High: "100", Low: "100", Close: "100"}}
	got, err = newTestClient(api).RangePosition(context.Background(), "BTC", "1h", 1)
	if err != nil || !near(got.Position, 0.5) {
		t.Fatalf("flat range: %+v %v", got, err)
	}
}

func TestFundingAndRatio(t *testing.T) {
	api := &fakeAPI{
		premium: []premiumRow{{MarkPrice: "3000", FundingRate: "0.0001", NextFundingTime: 1700003600000}},
		ratios:  []ratioRow{{Ratio: "1.8", LongAccount: "0.64", ShortAccount: "0.36"}},
	}
	c := newTestClient(api)
	f, err := c.Funding(context.Background(), "ETHUSDT")
	if err != nil || !near(f.FundingRate, 0.0001) || f.NextFundingTime.Unix() != 1700003600 {
		t.Fatalf("funding %+v %v", f, err)
	}
	r, err := c.LongShortRatio(context.Background(), "ETH", repository.Period4h)
	if err != nil || !near(r.Ratio, 1.8) || r.Period != "4h" {
		t.Fatalf("ratio %+v %v", r, err)
	}
}
