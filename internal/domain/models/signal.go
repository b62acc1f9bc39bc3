package models

import "time"

// Direction is the directional call of a composite signal.
type Direction string

const (
	DirectionLong    Direction = "LONG"
	DirectionShort   Direction = "SHORT"
	DirectionNeutral Direction = "NEUTRAL"
)

// Confidence buckets factor agreement.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// MarketFactor is one fetched metric contributing to the composite score.
type MarketFactor struct {
	Name      string   `json:"name"`
	Operation string   `json:"operation"`
	Value     *float64 `json:"value,omitempty"`
	Weight    float64  `json:"weight"`
	// EffectiveWeight is the weight after renormalization over available factors.
	EffectiveWeight float64 `json:"effective_weight"`
	Score           float64 `json:"score"`
	Available       bool    `json:"available"`
	ErrorType       string  `json:"error_type,omitempty"`
	Error           string  `json:"error,omitempty"`
}

// DataQuality reports fetch coverage for a signal.
type DataQuality struct {
	SuccessRate   float64  `json:"success_rate"`
	FailedFactors []string `json:"failed_factors"`
}

// SignalResult is the scored output for one symbol.
type SignalResult struct {
	Symbol      string         `json:"symbol"`
	Signal      Direction      `json:"signal"`
	Score       float64        `json:"score"`
	Confidence  Confidence     `json:"confidence"`
	Price       float64        `json:"price"`
	Reasons     []string       `json:"reasons"`
	Factors     []MarketFactor `json:"factors"`
	DataQuality DataQuality    `json:"data_quality"`
	Dispersion  float64        `json:"dispersion"`
	Timestamp   time.Time      `json:"timestamp"`
}

// SignalEvent is published after a signal is generated.
type SignalEvent struct {
	Type   string        `json:"type"`
	Signal *SignalResult `json:"signal"`
}

// BatchSignalItem holds one symbol outcome of a batch build.
type BatchSignalItem struct {
	Symbol    string        `json:"symbol"`
	OK        bool          `json:"ok"`
	Signal    *SignalResult `json:"signal,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorType string        `json:"error_type,omitempty"`
}
