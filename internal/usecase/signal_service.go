package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"CryptoSatX/internal/dispatcher"
	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/repository"
	"CryptoSatX/internal/service/cache"
	applogger "CryptoSatX/pkg/logger"
	"CryptoSatX/pkg/util"
)

const EventSignalGenerated = "signal.generated"

// ErrHistoryDisabled is returned by History when no signal store is wired.
var ErrHistoryDisabled = errors.New("signal history unavailable: persistence disabled")

// SignalBuilder produces one signal. *SignalEngine satisfies it.
type SignalBuilder interface {
	BuildSignal(ctx context.Context, symbol string) (*models.SignalResult, error)
}

// SignalServiceConfig tunes the service around the engine.
type SignalServiceConfig struct {
	CacheTTL         time.Duration
	BatchConcurrency int
	HistoryLimit     int
}

// SignalService caches, persists and publishes engine results. Store,
// publisher, cache and metrics are optional.
type SignalService struct {
	engine  SignalBuilder
	cache   cache.BytesCache
	store   repository.SignalStore
	pub     repository.SignalPublisher
	metrics repository.Metrics
	cfg     SignalServiceConfig
	log     *applogger.Logger
}

func NewSignalService(
	engine SignalBuilder,
	c cache.BytesCache,
	store repository.SignalStore,
	pub repository.SignalPublisher,
	m repository.Metrics,
	cfg SignalServiceConfig,
	l *applogger.Logger,
) *SignalService {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 500
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SignalService{engine: engine, cache: c, store: store, pub: pub, metrics: m, cfg: cfg, log: l}
}

func cacheKey(sym string) string { return "signal:" + sym }

// Get returns a cached signal when fresh, otherwise builds a new one.
func (s *SignalService) Get(ctx context.Context, symbol string) (*models.SignalResult, error) {
	sym := util.BaseAsset(symbol)
	if sym == "" {
		return nil, &dispatcher.ArgumentError{Arg: "symbol", Reason: "is required"}
	}
	if res, ok := s.cached(ctx, sym); ok {
		return res, nil
	}

	start := time.Now()
	res, err := s.engine.BuildSignal(ctx, sym)
	s.observeLatency("signals.build", start)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError(dispatcher.ErrorType(err))
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSignal(res.Symbol, string(res.Signal), res.Score)
	}

	s.persist(ctx, res)
	s.publish(ctx, res)
	s.remember(ctx, res)
	return res, nil
}

// Batch builds each symbol independently with bounded concurrency. Items
// keep the input order.
func (s *SignalService) Batch(ctx context.Context, symbols []string) []models.BatchSignalItem {
	out := make([]models.BatchSignalItem, len(symbols))
	sem := make(chan struct{}, s.cfg.BatchConcurrency)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				out[i] = models.BatchSignalItem{Symbol: sym, Error: dispatcher.Summarize(ctx.Err()), ErrorType: dispatcher.ErrorType(ctx.Err())}
				return
			}
			res, err := s.Get(ctx, sym)
			if err != nil {
				out[i] = models.BatchSignalItem{Symbol: sym, Error: dispatcher.Summarize(err), ErrorType: dispatcher.ErrorType(err)}
				return
			}
			out[i] = models.BatchSignalItem{Symbol: sym, OK: true, Signal: res}
		}(i, sym)
	}
	wg.Wait()
	return out
}

// History returns up to limit persisted signals for symbol, newest first.
func (s *SignalService) History(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	sym := util.BaseAsset(symbol)
	if sym == "" {
		return nil, &dispatcher.ArgumentError{Arg: "symbol", Reason: "is required"}
	}
	if s.store == nil {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	start := time.Now()
	rows, err := s.store.Recent(ctx, sym, limit)
	s.observeLatency("signals.history", start)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", sym, err)
	}
	if rows == nil {
		rows = []*models.SignalResult{}
	}
	return rows, nil
}

// Health checks the optional store.
func (s *SignalService) Health(ctx context.Context) map[string]string {
	status := map[string]string{"engine": "ok"}
	if s.store == nil {
		status["store"] = "disabled"
	} else if err := s.store.Health(ctx); err != nil {
		status["store"] = "error: " + err.Error()
	} else {
		status["store"] = "ok"
	}
	if s.cache == nil {
		status["cache"] = "disabled"
	} else {
		status["cache"] = "ok"
	}
	if s.pub == nil {
		status["publisher"] = "disabled"
	} else {
		status["publisher"] = "ok"
	}
	return status
}

func (s *SignalService) cached(ctx context.Context, sym string) (*models.SignalResult, bool) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return nil, false
	}
	b, ok, err := s.cache.GetBytes(ctx, cacheKey(sym))
	if err != nil {
		s.log.Warn("signal cache read failed", applogger.String("symbol", sym), applogger.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res models.SignalResult
	if err := json.Unmarshal(b, &res); err != nil {
		s.log.Warn("signal cache entry corrupt", applogger.String("symbol", sym), applogger.Error(err))
		return nil, false
	}
	return &res, true
}

func (s *SignalService) remember(ctx context.Context, res *models.SignalResult) {
	if s.cache == nil || s.cfg.CacheTTL <= 0 {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.cache.SetBytes(ctx, cacheKey(res.Symbol), b, s.cfg.CacheTTL); err != nil {
		s.log.Warn("signal cache write failed", applogger.String("symbol", res.Symbol), applogger.Error(err))
	}
}

func (s *SignalService) persist(ctx context.Context, res *models.SignalResult) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, res); err != nil {
		s.log.Error("signal persist failed", applogger.String("symbol", res.Symbol), applogger.Error(err))
		if s.metrics != nil {
			s.metrics.RecordError("persist")
		}
	}
}

func (s *SignalService) publish(ctx context.Context, res *models.SignalResult) {
	if s.pub == nil {
		return
	}
	ev := &models.SignalEvent{Type: EventSignalGenerated, Signal: res}
	if err := s.pub.PublishSignal(ctx, ev); err != nil {
		s.log.Error("signal publish failed", applogger.String("symbol", res.Symbol), applogger.Error(err))
		if s.metrics != nil {
			s.metrics.RecordError("publish")
		}
	}
}

func (s *SignalService) observeLatency(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
