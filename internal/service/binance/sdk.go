package binance

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

// Raw rows keep the SDK types out of the adapter logic.
type tickerRow struct {
	LastPrice, ChangePct, High, Low, QuoteVolume string
}

type premiumRow struct {
	MarkPrice, FundingRate string
	NextFundingTime        int64
}

type oiRow struct {
	SumOpenInterest string
}

type ratioRow struct {
	Ratio, LongAccount, ShortAccount string
}

type levelRow struct {
	Price, Quantity string
}

type candleRow struct {
	High, Low, Close string
}

// futuresAPI is the subset of Binance USD-M futures endpoints in use.
type futuresAPI interface {
	Ticker(ctx context.Context, symbol string) ([]tickerRow, error)
	PremiumIndex(ctx context.Context, symbol string) ([]premiumRow, error)
	OpenInterestHist(ctx context.Context, symbol, period string, limit int) ([]oiRow, error)
	GlobalLongShort(ctx context.Context, symbol, period string, limit int) ([]ratioRow, error)
	Depth(ctx context.Context, symbol string, limit int) (bids, asks []levelRow, err error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]candleRow, error)
}

type sdkFutures struct {
	client *futures.Client
}

func newSDKFutures(apiKey, secretKey string, testnet bool) *sdkFutures {
	if testnet {
		futures.UseTestnet = true
	}
	return &sdkFutures{client: binance.NewFuturesClient(apiKey, secretKey)}
}

func (s *sdkFutures) Ticker(ctx context.Context, symbol string) ([]tickerRow, error) {
	res, err := s.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]tickerRow, 0, len(res))
	for _, r := range res {
		out = append(out, tickerRow{
			LastPrice:   r.LastPrice,
			ChangePct:   r.PriceChangePercent,
			High:        r.HighPrice,
			Low:         r.LowPrice,
			QuoteVolume: r.QuoteVolume,
		})
	}
	return out, nil
}

func (s *sdkFutures) PremiumIndex(ctx context.Context, symbol string) ([]premiumRow, error) {
	res, err := s.client.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]premiumRow, 0, len(res))
	for _, r := range res {
		out = append(out, premiumRow{MarkPrice: r.MarkPrice, FundingRate: r.LastFundingRate, NextFundingTime: r.NextFundingTime})
	}
	return out, nil
}

func (s *sdkFutures) OpenInterestHist(ctx context.Context, symbol, period string, limit int) ([]oiRow, error) {
	res, err := s.client.NewOpenInterestStatisticsService().Symbol(symbol).Period(period).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]oiRow, 0, len(res))
	for _, r := range res {
		out = append(out, oiRow{SumOpenInterest: r.SumOpenInterest})
	}
	return out, nil
}

func (s *sdkFutures) GlobalLongShort(ctx context.Context, symbol, period string, limit int) ([]ratioRow, error) {
	res, err := s.client.NewLongShortRatioService().Symbol(symbol).Period(period).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ratioRow, 0, len(res))
	for _, r := range res {
		out = append(out, ratioRow{Ratio: r.LongShortRatio, LongAccount: r.LongAccount, ShortAccount: r.ShortAccount})
	}
	return out, nil
}

func (s *sdkFutures) Depth(ctx context.Context, symbol string, limit int) ([]levelRow, []levelRow, error) {
	res, err := s.client.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return nil, nil, err
	}
	bids := make([]levelRow, 0, len(res.Bids))
	for _, b := range res.Bids {
		bids = append(bids, levelRow{Price: b.Price, Quantity: b.Quantity})
	}
	asks := make([]levelRow, 0, len(res.Asks))
	for _, a := range res.Asks {
		asks = append(asks, levelRow{Price: a.Price, Quantity: a.Quantity})
	}
	return bids, asks, nil
}

func (s *sdkFutures) Klines(ctx context.Context, symbol, interval string, limit int) ([]candleRow, error) {
	res, err := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]candleRow, 0, len(res))
	for _, k := range res {
		out = append(out, candleRow{High: k.High, Low: k.Low, Close: k.Close})
	}
	return out, nil
}
