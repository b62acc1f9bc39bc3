package usecase

import (
	"encoding/json"
	"fmt"
	"math"

	"CryptoSatX/internal/domain/models"
)

// Factor names.
const (
	FactorPriceMomentum      = "price_momentum"
	FactorFundingRate        = "funding_rate"
	FactorOpenInterestTrend  = "open_interest_trend"
	FactorLongShortRatio     = "long_short_ratio"
	FactorLiquidationBalance = "liquidation_balance"
	FactorSocialSentiment    = "social_sentiment"
	FactorOrderbookImbalance = "orderbook_imbalance"
	FactorRangePosition      = "range_position"
)

// Operation names served by the catalog.
const (
	OpBinancePrice         = "binance.price"
	OpBinanceFunding       = "binance.funding_rate"
	OpBinanceOpenInterest  = "binance.open_interest"
	OpBinanceLongShort     = "binance.long_short_ratio"
	OpBinanceOrderbook     = "binance.orderbook"
	OpBinanceRangePosition = "binance.range_position"
	OpBinanceLiquidations  = "binance.liquidations"
	OpCoinglassLiq         = "coinglass.liquidations"
	OpSentimentFearGreed   = "sentiment.fear_greed"
	OpSignalsGet           = "signals.get"
	OpSignalsBatch         = "signals.batch"
	OpSignalsHistory       = "signals.history"
	OpSystemOperations     = "system.operations"
	OpSystemHealth         = "system.health"
)

// reading is the raw factor value plus the spot price when the payload has one.
type reading struct {
	value float64
	price float64
}

// FactorSpec describes how one factor is fetched, validated and scored.
type FactorSpec struct {
	Name      string
	Operation string
	Weight    float64
	label     string
	format    func(v float64) string
	read      func(data any) (reading, error)
	normalize func(v float64) float64
}

// Score maps a validated raw value to [0,100].
func (f FactorSpec) Score(v float64) float64 {
	return clamp100(f.normalize(v))
}

func (f FactorSpec) describe(v, score float64) string {
	lean := "bullish"
	if score < 50 {
		lean = "bearish"
	}
	return fmt.Sprintf("%s %s leans %s (score %.1f)", f.label, f.format(v), lean, score)
}

// catalog lists every known factor in canonical order.
var catalog = []FactorSpec{
	{
		Name:      FactorPriceMomentum,
		Operation: OpBinancePrice,
		label:     "24h price change",
		format:    pct,
		read: func(data any) (reading, error) {
			p, err := decodePayload[models.PriceSnapshot](data)
			if err != nil {
				return reading{}, err
			}
			if err := domainCheck(FactorPriceMomentum, p.Price, p.Price > 0, "price must be positive"); err != nil {
				return reading{}, err
			}
			if err := domainCheck(FactorPriceMomentum, p.ChangePct, p.ChangePct > -100, "change must exceed -100%"); err != nil {
				return reading{}, err
			}
			return reading{value: p.ChangePct, price: p.Price}, nil
		},
		// trend following
		normalize: func(v float64) float64 { return 50 + 50*math.Tanh(v/5) },
	},
	{
		Name:      FactorFundingRate,
		Operation: OpBinanceFunding,
		label:     "funding rate",
		format:    func(v float64) string { return fmt.Sprintf("%.4f%%", v*100) },
		read: func(data any) (reading, error) {
			f, err := decodePayload[models.FundingSnapshot](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: f.FundingRate}, domainCheck(FactorFundingRate, f.FundingRate, math.Abs(f.FundingRate) <= 0.05, "|rate| must be <= 0.05")
		},
		// contrarian: longs paying shorts lean short
		normalize: func(v float64) float64 { return 50 - 50*math.Tanh(v/0.0005) },
	},
	{
		Name:      FactorOpenInterestTrend,
		Operation: OpBinanceOpenInterest,
		label:     "open interest change",
		format:    pct,
		read: func(data any) (reading, error) {
			o, err := decodePayload[models.OpenInterestTrend](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: o.ChangePct}, domainCheck(FactorOpenInterestTrend, o.ChangePct, o.ChangePct > -100 && o.Current >= 0 && o.Previous > 0, "open interest must be positive")
		},
		normalize: func(v float64) float64 { return 50 + 50*math.Tanh(v/10) },
	},
	{
		Name:      FactorLongShortRatio,
		Operation: OpBinanceLongShort,
		label:     "long/short ratio",
		format:    func(v float64) string { return fmt.Sprintf("%.2f", v) },
		read: func(data any) (reading, error) {
			l, err := decodePayload[models.LongShortSnapshot](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: l.Ratio}, domainCheck(FactorLongShortRatio, l.Ratio, l.Ratio > 0, "ratio must be positive")
		},
		// contrarian crowding: a 2:1 skew moves the score by tanh(1)
		normalize: func(v float64) float64 { return 50 - 50*math.Tanh(math.Log(v)/math.Ln2) },
	},
	{
		Name:      FactorLiquidationBalance,
		Operation: OpCoinglassLiq,
		label:     "liquidation imbalance",
		format:    signed,
		read: func(data any) (reading, error) {
			l, err := decodePayload[models.LiquidationSummary](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: l.Imbalance}, domainCheck(FactorLiquidationBalance, l.Imbalance, inUnit(l.Imbalance), "imbalance must be in [-1,1]")
		},
		normalize: func(v float64) float64 { return 50 + 50*v },
	},
	{
		Name:      FactorSocialSentiment,
		Operation: OpSentimentFearGreed,
		label:     "fear & greed index",
		format:    func(v float64) string { return fmt.Sprintf("%.0f", v) },
		read: func(data any) (reading, error) {
			fg, err := decodePayload[models.FearGreed](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: fg.Value}, domainCheck(FactorSocialSentiment, fg.Value, fg.Value >= 0 && fg.Value <= 100, "index must be in [0,100]")
		},
		// contrarian: extreme fear leans long
		normalize: func(v float64) float64 { return 100 - v },
	},
	{
		Name:      FactorOrderbookImbalance,
		Operation: OpBinanceOrderbook,
		label:     "order book imbalance",
		format:    signed,
		read: func(data any) (reading, error) {
			o, err := decodePayload[models.OrderbookImbalance](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: o.Imbalance}, domainCheck(FactorOrderbookImbalance, o.Imbalance, inUnit(o.Imbalance), "imbalance must be in [-1,1]")
		},
		normalize: func(v float64) float64 { return 50 + 50*v },
	},
	{
		Name:      FactorRangePosition,
		Operation: OpBinanceRangePosition,
		label:     "range position",
		format:    func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
		read: func(data any) (reading, error) {
			r, err := decodePayload[models.RangePosition](data)
			if err != nil {
				return reading{}, err
			}
			return reading{value: r.Position}, domainCheck(FactorRangePosition, r.Position, r.Position >= 0 && r.Position <= 1, "position must be in [0,1]")
		},
		normalize: func(v float64) float64 { return 100 * v },
	},
}

// Catalog returns a copy of the known factors in canonical order with zero weights.
func Catalog() []FactorSpec {
	out := make([]FactorSpec, len(catalog))
	copy(out, catalog)
	return out
}

func lookupFactor(name string) (FactorSpec, bool) {
	for _, f := range catalog {
		if f.Name == name {
			return f, true
		}
	}
	return FactorSpec{}, false
}

// decodePayload accepts the typed provider result or, for payloads that
// crossed a wire, any JSON-compatible value.
func decodePayload[T any](data any) (*T, error) {
	switch v := data.(type) {
	case *T:
		if v == nil {
			return nil, fmt.Errorf("nil %T payload", v)
		}
		return v, nil
	case T:
		return &v, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode payload %T: %w", data, err)
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, fmt.Errorf("decode payload into %T: %w", out, err)
	}
	return out, nil
}

func domainCheck(factor string, v float64, ok bool, reason string) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Factor: factor, Value: v, Reason: "value must be finite"}
	}
	if !ok {
		return &ValidationError{Factor: factor, Value: v, Reason: reason}
	}
	return nil
}

func inUnit(v float64) bool { return v >= -1 && v <= 1 }

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func pct(v float64) string { return fmt.Sprintf("%+.2f%%", v) }

func signed(v float64) string { return fmt.Sprintf("%+.2f", v) }
