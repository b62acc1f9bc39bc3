package usecase

import (
	"fmt"
	"math"
	"sort"
	"time"

	"CryptoSatX/pkg/config"
)

// ScoringConfig is the immutable scoring setup built once at startup.
type ScoringConfig struct {
	Factors          []FactorSpec
	MinCoverage      float64
	WarnCoverage     float64
	LongThreshold    float64
	ShortThreshold   float64
	HighDispersion   float64
	MediumDispersion float64
	ReasonMargin     float64
	Deadline         time.Duration
	// Operations remaps a factor to a different fetch operation.
	Operations map[string]string
}

// NewScoringConfig selects the factors named in cfg.Scoring.FactorWeights
// (zero weights excluded) in canonical order.
func NewScoringConfig(cfg *config.Config) (*ScoringConfig, error) {
	s := cfg.Scoring
	var ops map[string]string
	if cfg.Liquidations.Source == "stream" {
		ops = map[string]string{FactorLiquidationBalance: OpBinanceLiquidations}
	}
	return BuildScoringConfig(s.FactorWeights, ScoringConfig{
		MinCoverage:      s.MinFactorCoverage,
		WarnCoverage:     s.ConfidenceWarnCoverage,
		LongThreshold:    s.LongThreshold,
		ShortThreshold:   s.ShortThreshold,
		HighDispersion:   s.HighDispersion,
		MediumDispersion: s.MediumDispersion,
		ReasonMargin:     s.ReasonMargin,
		Deadline:         s.SignalDeadline,
		Operations:       ops,
	})
}

// BuildScoringConfig attaches weights to base and validates the result.
func BuildScoringConfig(weights map[string]float64, base ScoringConfig) (*ScoringConfig, error) {
	var unknown []string
	for name := range weights {
		if _, ok := lookupFactor(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown factors in factor_weights: %v", unknown)
	}

	sc := base
	sc.Factors = nil
	var sum float64
	for _, f := range catalog {
		w := weights[f.Name]
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("factor %s: weight must be >= 0", f.Name)
		}
		if w == 0 {
			continue
		}
		f.Weight = w
		if op, ok := sc.Operations[f.Name]; ok && op != "" {
			f.Operation = op
		}
		sc.Factors = append(sc.Factors, f)
		sum += w
	}
	if len(sc.Factors) == 0 {
		return nil, fmt.Errorf("no factors configured")
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("factor weights sum to %.6f, want 1.0", sum)
	}
	if sc.MinCoverage <= 0 || sc.MinCoverage > 1 {
		return nil, fmt.Errorf("min_factor_coverage %.3f outside (0,1]", sc.MinCoverage)
	}
	if sc.WarnCoverage <= 0 || sc.WarnCoverage > 1 {
		return nil, fmt.Errorf("confidence_warn_coverage %.3f outside (0,1]", sc.WarnCoverage)
	}
	if sc.ShortThreshold > sc.LongThreshold || sc.ShortThreshold < 0 || sc.LongThreshold > 100 {
		return nil, fmt.Errorf("thresholds out of order: short %.2f long %.2f", sc.ShortThreshold, sc.LongThreshold)
	}
	if sc.HighDispersion <= 0 || sc.MediumDispersion < sc.HighDispersion {
		return nil, fmt.Errorf("dispersion bands invalid: high %.2f medium %.2f", sc.HighDispersion, sc.MediumDispersion)
	}
	return &sc, nil
}

// FactorNames returns the configured factor names in order.
func (c *ScoringConfig) FactorNames() []string {
	out := make([]string, len(c.Factors))
	for i, f := range c.Factors {
		out[i] = f.Name
	}
	return out
}
