package usecase

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/models"
	applogger "CryptoSatX/pkg/logger"
	"CryptoSatX/pkg/util"
)

// Invoker runs a named operation. *dispatcher.Dispatcher satisfies it.
type Invoker interface {
	Dispatch(ctx context.Context, name string, args dispatcher.Args) *models.DispatchResponse
}

// SignalEngine builds composite signals from independently fetched factors.
// It holds no per-call state; concurrent builds share nothing.
type SignalEngine struct {
	inv Invoker
	cfg *ScoringConfig
	log *applogger.Logger
	now func() time.Time
}

func NewSignalEngine(inv Invoker, cfg *ScoringConfig, l *applogger.Logger) *SignalEngine {
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalEngine{inv: inv, cfg: cfg, log: l, now: time.Now}
}

// Config returns the scoring configuration in use.
func (e *SignalEngine) Config() *ScoringConfig { return e.cfg }

// BuildSignal fans out all factor fetches, waits for every one to settle
// and folds the results into a SignalResult. It returns
// *InsufficientDataError when coverage is below the configured minimum.
func (e *SignalEngine) BuildSignal(ctx context.Context, symbol string) (*models.SignalResult, error) {
	sym := util.BaseAsset(symbol)
	if sym == "" {
		return nil, &dispatcher.ArgumentError{Arg: "symbol", Reason: "is required"}
	}
	if e.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	start := e.now()
	factors, price := e.collect(ctx, sym)
	res, err := e.score(sym, factors, price)
	if err != nil {
		var ide *InsufficientDataError
		if errors.As(err, &ide) {
			e.log.Warn("signal rejected",
				applogger.String("symbol", sym),
				applogger.Float64("coverage", ide.Coverage),
				applogger.Strings("failed", ide.Failed),
			)
		}
		return nil, err
	}
	e.log.Debug("signal built",
		applogger.String("symbol", sym),
		applogger.String("signal", string(res.Signal)),
		applogger.Float64("score", res.Score),
		applogger.Duration("elapsed_ms", e.now().Sub(start)),
	)
	return res, nil
}

type factorItem struct {
	idx    int
	factor models.MarketFactor
	price  float64
}

// collect is a join-all barrier: one goroutine per factor, no sibling
// cancellation, results placed by configured index.
func (e *SignalEngine) collect(ctx context.Context, sym string) ([]models.MarketFactor, float64) {
	specs := e.cfg.Factors
	ch := make(chan factorItem, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec FactorSpec) {
			defer wg.Done()
			resp := e.inv.Dispatch(ctx, spec.Operation, dispatcher.Args{"symbol": sym})
			f, price := evaluate(spec, resp)
			ch <- factorItem{idx: i, factor: f, price: price}
		}(i, spec)
	}
	go func() { wg.Wait(); close(ch) }()

	factors := make([]models.MarketFactor, len(specs))
	var price float64
	for it := range ch {
		factors[it.idx] = it.factor
		if specs[it.idx].Name == FactorPriceMomentum && it.factor.Available {
			price = it.price
		}
	}
	return factors, price
}

func evaluate(spec FactorSpec, resp *models.DispatchResponse) (models.MarketFactor, float64) {
	f := models.MarketFactor{Name: spec.Name, Operation: spec.Operation, Weight: spec.Weight}
	if resp == nil {
		f.ErrorType, f.Error = dispatcher.KindHandlerError, "no response"
		return f, 0
	}
	if !resp.OK {
		f.ErrorType, f.Error = resp.Meta.ErrorType, resp.ErrorMessage()
		return f, 0
	}
	r, err := spec.read(resp.Data)
	if err != nil {
		f.ErrorType, f.Error = dispatcher.ErrorType(err), err.Error()
		var ve *ValidationError
		if errors.As(err, &ve) {
			v := ve.Value
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				f.Value = &v
			}
		}
		return f, 0
	}
	v := r.value
	f.Value = &v
	f.Score = round2(spec.Score(v))
	f.Available = true
	return f, r.price
}

// score is a deterministic fold over settled factors.
func (e *SignalEngine) score(sym string, factors []models.MarketFactor, price float64) (*models.SignalResult, error) {
	var (
		avail   []int
		failed  []string
		wsum    float64
		total   = len(factors)
		cfg     = e.cfg
		reasons []reasonItem
	)
	for i, f := range factors {
		if f.Available {
			avail = append(avail, i)
			wsum += f.Weight
		} else {
			failed = append(failed, f.Name)
		}
	}
	sort.Strings(failed)
	coverage := float64(len(avail)) / float64(total)
	if coverage < cfg.MinCoverage || len(avail) == 0 || wsum <= 0 {
		return nil, &InsufficientDataError{Symbol: sym, Coverage: coverage, Required: cfg.MinCoverage, Failed: failed}
	}

	var composite float64
	for _, i := range avail {
		f := &factors[i]
		f.EffectiveWeight = f.Weight / wsum
		composite += f.EffectiveWeight * f.Score
	}
	composite = clamp100(composite)

	var variance float64
	for _, i := range avail {
		d := factors[i].Score - composite
		variance += factors[i].EffectiveWeight * d * d
	}
	dispersion := math.Sqrt(variance)

	for _, i := range avail {
		f := factors[i]
		if math.Abs(f.Score-50) > cfg.ReasonMargin {
			spec, _ := lookupFactor(f.Name)
			reasons = append(reasons, reasonItem{
				name:   f.Name,
				weight: math.Abs(f.EffectiveWeight * (f.Score - 50)),
				text:   spec.describe(*f.Value, f.Score),
			})
		}
	}
	sort.Slice(reasons, func(a, b int) bool {
		if reasons[a].weight != reasons[b].weight {
			return reasons[a].weight > reasons[b].weight
		}
		return reasons[a].name < reasons[b].name
	})
	texts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		texts = append(texts, r.text)
	}

	score := round2(composite)
	if failed == nil {
		failed = []string{}
	}
	return &models.SignalResult{
		Symbol:     sym,
		Signal:     cfg.classify(score),
		Score:      score,
		Confidence: cfg.confidence(dispersion, coverage),
		Price:      price,
		Reasons:    texts,
		Factors:    factors,
		DataQuality: models.DataQuality{
			SuccessRate:   round4(coverage),
			FailedFactors: failed,
		},
		Dispersion: round2(dispersion),
		Timestamp:  e.now().UTC(),
	}, nil
}

type reasonItem struct {
	name   string
	weight float64
	text   string
}

// classify treats both thresholds as part of the NEUTRAL band.
func (c *ScoringConfig) classify(score float64) models.Direction {
	switch {
	case score > c.LongThreshold:
		return models.DirectionLong
	case score < c.ShortThreshold:
		return models.DirectionShort
	default:
		return models.DirectionNeutral
	}
}

func (c *ScoringConfig) confidence(dispersion, coverage float64) models.Confidence {
	conf := models.ConfidenceLow
	switch {
	case dispersion <= c.HighDispersion:
		conf = models.ConfidenceHigh
	case dispersion <= c.MediumDispersion:
		conf = models.ConfidenceMedium
	}
	if coverage < c.WarnCoverage && conf == models.ConfidenceHigh {
		conf = models.ConfidenceMedium
	}
	return conf
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
