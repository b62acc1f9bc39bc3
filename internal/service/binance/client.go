package binance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/repository"
	"CryptoSatX/internal/domain/service"
	pmetrics "CryptoSatX/internal/service/metrics"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/pkg/util"

	"github.com/shopspring/decimal"
)

const (
	providerName = "binance"
	source       = "binance_futures"
)

var errNoData = errors.New("empty response")

// Client serves futures market metrics from Binance.
type Client struct {
	api futuresAPI
	now func() time.Time
}

var _ service.DerivativesData = (*Client)(nil)

// New builds a Client on the go-binance futures SDK.
func New(apiKey, secretKey string, testnet bool) *Client {
	return &Client{api: newSDKFutures(apiKey, secretKey, testnet), now: time.Now}
}

func (c *Client) Price(ctx context.Context, symbol string) (*models.PriceSnapshot, error) {
	sym := util.PerpSymbol(symbol)
	var out *models.PriceSnapshot
	err := c.call("ticker_24hr", func() error {
		rows, err := c.api.Ticker(ctx, sym)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errNoData
		}
		r := rows[0]
		p := &parser{}
		out = &models.PriceSnapshot{
			Symbol:    sym,
			Price:     p.float("lastPrice", r.LastPrice),
			ChangePct: p.float("priceChangePercent", r.ChangePct),
			High:      p.float("highPrice", r.High),
			Low:       p.float("lowPrice", r.Low),
			Volume:    p.float("quoteVolume", r.QuoteVolume),
			Source:    source,
			Timestamp: c.now().UTC(),
		}
		return p.err
	})
	return out, err
}

func (c *Client) Funding(ctx context.Context, symbol string) (*models.FundingSnapshot, error) {
	sym := util.PerpSymbol(symbol)
	var out *models.FundingSnapshot
	err := c.call("premium_index", func() error {
		rows, err := c.api.PremiumIndex(ctx, sym)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errNoData
		}
		r := rows[0]
		p := &parser{}
		out = &models.FundingSnapshot{
			Symbol:          sym,
			FundingRate:     p.float("lastFundingRate", r.FundingRate),
			MarkPrice:       p.float("markPrice", r.MarkPrice),
			NextFundingTime: util.FromUnixAuto(r.NextFundingTime),
			Source:          source,
		}
		return p.err
	})
	return out, err
}

// OpenInterest compares the oldest and newest point of the last `points`
// statistics buckets.
func (c *Client) OpenInterest(ctx context.Context, symbol string, period repository.Period, points int) (*models.OpenInterestTrend, error) {
	sym := util.PerpSymbol(symbol)
	if points < 2 {
		points = 2
	}
	var out *models.OpenInterestTrend
	err := c.call("open_interest_hist", func() error {
		rows, err := c.api.OpenInterestHist(ctx, sym, string(period), points)
		if err != nil {
			return err
		}
		if len(rows) < 2 {
			return fmt.Errorf("need at least 2 open interest points, got %d", len(rows))
		}
		p := &parser{}
		first := p.decimal("sumOpenInterest", rows[0].SumOpenInterest)
		last := p.decimal("sumOpenInterest", rows[len(rows)-1].SumOpenInterest)
		if p.err != nil {
			return p.err
		}
		// a non-positive base is reported as-is; the scoring side rejects it
		change := decimal.Zero
		if first.IsPositive() {
			change = last.Sub(first).Div(first).Mul(decimal.NewFromInt(100))
		}
		out = &models.OpenInterestTrend{
			Symbol:    sym,
			Period:    string(period),
			Current:   last.InexactFloat64(),
			Previous:  first.InexactFloat64(),
			ChangePct: change.InexactFloat64(),
			Source:    source,
		}
		return nil
	})
	return out, err
}

func (c *Client) LongShortRatio(ctx context.Context, symbol string, period repository.Period) (*models.LongShortSnapshot, error) {
	sym := util.PerpSymbol(symbol)
	var out *models.LongShortSnapshot
	err := c.call("global_long_short", func() error {
		rows, err := c.api.GlobalLongShort(ctx, sym, string(period), 1)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errNoData
		}
		r := rows[len(rows)-1]
		p := &parser{}
		out = &models.LongShortSnapshot{
			Symbol:       sym,
			Period:       string(period),
			Ratio:        p.float("longShortRatio", r.Ratio),
			LongAccount:  p.float("longAccount", r.LongAccount),
			ShortAccount: p.float("shortAccount", r.ShortAccount),
			Source:       source,
		}
		return p.err
	})
	return out, err
}

// Orderbook sums quote notional on each side of the top `levels` levels.
func (c *Client) Orderbook(ctx context.Context, symbol string, levels int) (*models.OrderbookImbalance, error) {
	sym := util.PerpSymbol(symbol)
	var out *models.OrderbookImbalance
	err := c.call("depth", func() error {
		bids, asks, err := c.api.Depth(ctx, sym, levels)
		if err != nil {
			return err
		}
		p := &parser{}
		bidVol := p.notional(bids)
		askVol := p.notional(asks)
		if p.err != nil {
			return p.err
		}
		total := bidVol.Add(askVol)
		if !total.IsPositive() {
			return errors.New("empty order book")
		}
		out = &models.OrderbookImbalance{
			Symbol:    sym,
			Levels:    levels,
			BidVolume: bidVol.InexactFloat64(),
			AskVolume: askVol.InexactFloat64(),
			Imbalance: bidVol.Sub(askVol).Div(total).InexactFloat64(),
			Source:    source,
		}
		return nil
	})
	return out, err
}

// RangePosition places the last close within the high/low of the last
// `candles` klines. A flat range yields 0.5.
func (c *Client) RangePosition(ctx context.Context, symbol, interval string, candles int) (*models.RangePosition, error) {
	sym := util.PerpSymbol(symbol)
	var out *models.RangePosition
	err := c.call("klines", func() error {
		rows, err := c.api.Klines(ctx, sym, interval, candles)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return errNoData
		}
		p := &parser{}
		high := p.decimal("high", rows[0].High)
		low := p.decimal("low", rows[0].Low)
		for _, r := range rows[1:] {
			if h := p.decimal("high", r.High); h.GreaterThan(high) {
				high = h
			}
			if l := p.decimal("low", r.Low); l.LessThan(low) {
				low = l
			}
		}
		last := p.decimal("close", rows[len(rows)-1].Close)
		if p.err != nil {
			return p.err
		}
		pos := decimal.NewFromFloat(0.5)
		if span := high.Sub(low); span.IsPositive() {
			pos = last.Sub(low).Div(span)
		}
		out = &models.RangePosition{
			Symbol:   sym,
			Interval: interval,
			Candles:  len(rows),
			High:     high.InexactFloat64(),
			Low:      low.InexactFloat64(),
			Close:    last.InexactFloat64(),
			Position: pos.InexactFloat64(),
			Source:   source,
		}
		return nil
	})
	return out, err
}

func (c *Client) call(endpoint string, fn func() error) error {
	start := time.Now()
	err := fn()
	pmetrics.ObserveCall(providerName, endpoint, time.Since(start).Seconds(), err)
	return upstream.Wrap(providerName, endpoint, err)
}

// parser collects the first decimal parse failure.
type parser struct {
	err error
}

func (p *parser) decimal(field, s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("parse %s %q: %w", field, s, err)
	}
	return d
}

func (p *parser) float(field, s string) float64 {
	return p.decimal(field, s).InexactFloat64()
}

func (p *parser) notional(levels []levelRow) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range levels {
		sum = sum.Add(p.decimal("price", l.Price).Mul(p.decimal("quantity", l.Quantity)))
	}
	return sum
}
