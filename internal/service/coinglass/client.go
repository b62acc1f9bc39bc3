package coinglass

import (
	"context"
	"fmt"
	"time"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/service"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/pkg/util"
)

const liquidationPath = "/api/futures/liquidation/aggregated-history"

// Client reads aggregated liquidation history from Coinglass.
type Client struct {
	base     *upstream.Base
	interval string
}

var _ service.LiquidationSource = (*Client)(nil)

func New(baseURL, apiKey, interval string, timeout time.Duration, retries int) *Client {
	if interval == "" {
		interval = "1h"
	}
	return &Client{
		base: upstream.NewBase("coinglass", baseURL, timeout,
			upstream.WithHeader("CG-API-KEY", apiKey),
			upstream.WithRetries(retries, 200*time.Millisecond),
		),
		interval: interval,
	}
}

type liquidationRow struct {
	Time     int64   `json:"time"`
	LongUSD  float64 `json:"aggregated_long_liquidation_usd"`
	ShortUSD float64 `json:"aggregated_short_liquidation_usd"`
}

type liquidationResponse struct {
	Code string           `json:"code"`
	Msg  string           `json:"msg"`
	Data []liquidationRow `json:"data"`
}

// Liquidations returns the most recent closed interval for symbol.
func (c *Client) Liquidations(ctx context.Context, symbol string) (*models.LiquidationSummary, error) {
	base := util.BaseAsset(symbol)
	var resp liquidationResponse
	err := c.base.GetJSON(ctx, liquidationPath, map[string][]string{
		"symbol":        {base},
		"exchange_list": {"Binance,OKX,Bybit"},
		"interval":      {c.interval},
		"limit":         {"1"},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, upstream.Wrap("coinglass", liquidationPath, fmt.Errorf("api code %s: %s", resp.Code, resp.Msg))
	}
	if len(resp.Data) == 0 {
		return nil, upstream.Wrap("coinglass", liquidationPath, fmt.Errorf("no liquidation data for %s", base))
	}

	row := resp.Data[len(resp.Data)-1]
	total := row.LongUSD + row.ShortUSD
	var imbalance float64
	if total > 0 {
		imbalance = (row.ShortUSD - row.LongUSD) / total
	}
	return &models.LiquidationSummary{
		Symbol:      base,
		Window:      c.interval,
		LongLiqUSD:  row.LongUSD,
		ShortLiqUSD: row.ShortUSD,
		TotalUSD:    total,
		Imbalance:   imbalance,
		Source:      "coinglass",
	}, nil
}
