package models

import "time"

// PriceSnapshot is the 24h ticker view for a futures symbol.
type PriceSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct_24h"`
	High      float64   `json:"high_24h"`
	Low       float64   `json:"low_24h"`
	Volume    float64   `json:"quote_volume_24h"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// FundingSnapshot is the current premium index for a perpetual.
type FundingSnapshot struct {
	Symbol          string    `json:"symbol"`
	FundingRate     float64   `json:"funding_rate"`
	MarkPrice       float64   `json:"mark_price"`
	NextFundingTime time.Time `json:"next_funding_time"`
	Source          string    `json:"source"`
}

// OpenInterestTrend compares the oldest and newest open interest in a window.
type OpenInterestTrend struct {
	Symbol    string  `json:"symbol"`
	Period    string  `json:"period"`
	Current   float64 `json:"current"`
	Previous  float64 `json:"previous"`
	ChangePct float64 `json:"change_pct"`
	Source    string  `json:"source"`
}

// LongShortSnapshot is the global account long/short ratio.
type LongShortSnapshot struct {
	Symbol       string  `json:"symbol"`
	Period       string  `json:"period"`
	Ratio        float64 `json:"ratio"`
	LongAccount  float64 `json:"long_account"`
	ShortAccount float64 `json:"short_account"`
	Source       string  `json:"source"`
}

// OrderbookImbalance summarizes resting depth near the touch.
type OrderbookImbalance struct {
	Symbol    string  `json:"symbol"`
	Levels    int     `json:"levels"`
	BidVolume float64 `json:"bid_volume"`
	AskVolume float64 `json:"ask_volume"`
	Imbalance float64 `json:"imbalance"`
	Source    string  `json:"source"`
}

// RangePosition places the last close inside a recent high/low range.
type RangePosition struct {
	Symbol   string  `json:"symbol"`
	Interval string  `json:"interval"`
	Candles  int     `json:"candles"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Position float64 `json:"position"`
	Source   string  `json:"source"`
}

// LiquidationSummary aggregates forced closes over a window.
// Short liquidations are forced buys and lean bullish.
type LiquidationSummary struct {
	Symbol      string  `json:"symbol"`
	Window      string  `json:"window"`
	LongLiqUSD  float64 `json:"long_liquidations_usd"`
	ShortLiqUSD float64 `json:"short_liquidations_usd"`
	TotalUSD    float64 `json:"total_usd"`
	Imbalance   float64 `json:"imbalance"`
	Source      string  `json:"source"`
}

// FearGreed is a market-wide sentiment index in [0,100].
type FearGreed struct {
	Value          float64   `json:"value"`
	Classification string    `json:"classification"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
}
