package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/service/cache"
)

type fakeBuilder struct {
	calls int32
	fail  map[string]error
}

func (f *fakeBuilder) BuildSignal(_ context.Context, symbol string) (*models.SignalResult, error) {
	atomic.AddInt32(&f.calls, 1)
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return &models.SignalResult{Symbol: symbol, Signal: models.DirectionLong, Score: 61, Timestamp: time.Unix(1700000000, 0).UTC()}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []*models.SignalResult
	saveErr error
}

func (s *fakeStore) Save(_ context.Context, r *models.SignalResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, r)
	return nil
}

func (s *fakeStore) Recent(_ context.Context, symbol string, limit int) ([]*models.SignalResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.SignalResult
	for i := len(s.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if s.saved[i].Symbol == symbol {
			out = append(out, s.saved[i])
		}
	}
	return out, nil
}

func (s *fakeStore) Health(context.Context) error { return nil }

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.SignalEvent
}

func (p *fakePublisher) PublishSignal(_ context.Context, ev *models.SignalEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeMetrics struct {
	mu     sync.Mutex
	errors []string
}

func (m *fakeMetrics) RecordSignal(string, string, float64) {}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors = append(m.errors, kind)
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLatency(string, float64) {}

func TestSignalServiceCachesResults(t *testing.T) {
	b := &fakeBuilder{}
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc := NewSignalService(b, cache.NewTTLCache(), store, pub, nil, SignalServiceConfig{CacheTTL: time.Minute}, nil)

	first, err := svc.Get(context.Background(), "btcusdt")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	second, err := svc.Get(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if atomic.LoadInt32(&b.calls) != 1 {
		t.Fatalf("expected one build, got %d", b.calls)
	}
	if second.Score != first.Score || second.Symbol != "BTC" {
		t.Fatalf("cached result differs: %+v", second)
	}
	if len(store.saved) != 1 || len(pub.events) != 1 || pub.events[0].Type != EventSignalGenerated {
		t.Fatalf("persist/publish once: saved=%d events=%d", len(store.saved), len(pub.events))
	}
}

func TestSignalServicePersistFailureDoesNotFail(t *testing.T) {
	m := &fakeMetrics{}
	svc := NewSignalService(&fakeBuilder{}, nil, &fakeStore{saveErr: errors.New("ch down")}, nil, m, SignalServiceConfig{}, nil)
	if _, err := svc.Get(context.Background(), "ETH"); err != nil {
		t.Fatalf("persist failure leaked: %v", err)
	}
	if len(m.errors) != 1 || m.errors[0] != "persist" {
		t.Fatalf("errors=%v", m.errors)
	}
}

func TestSignalServiceBatchKeepsOrder(t *testing.T) {
	b := &fakeBuilder{fail: map[string]error{"DOGE": &InsufficientDataError{Symbol: "DOGE", Failed: []string{"funding_rate"}}}}
	svc := NewSignalService(b, nil, nil, nil, nil, SignalServiceConfig{BatchConcurrency: 2}, nil)

	items := svc.Batch(context.Background(), []string{"BTC", "DOGE", "ETH", "SOL"})
	if len(items) != 4 {
		t.Fatalf("items=%d", len(items))
	}
	for i, want := range []string{"BTC", "DOGE", "ETH", "SOL"} {
		if items[i].Symbol != want {
			t.Fatalf("item %d symbol %s want %s", i, items[i].Symbol, want)
		}
	}
	if items[1].OK || items[1].ErrorType != KindInsufficientData {
		t.Fatalf("DOGE should fail with insufficient data: %+v", items[1])
	}
	if !items[0].OK || !items[2].OK || !items[3].OK {
		t.Fatalf("siblings must succeed: %+v", items)
	}
}

func TestSignalServiceHistory(t *testing.T) {
	svc := NewSignalService(&fakeBuilder{}, nil, nil, nil, nil, SignalServiceConfig{}, nil)
	if _, err := svc.History(context.Background(), "BTC", 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("expected disabled history, got %v", err)
	}

	store := &fakeStore{}
	svc = NewSignalService(&fakeBuilder{}, nil, store, nil, nil, SignalServiceConfig{HistoryLimit: 2}, nil)
	for i := 0; i < 3; i++ {
		if _, err := svc.Get(context.Background(), "BTC"); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	rows, err := svc.History(context.Background(), "btc", 100)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("limit not clamped, rows=%d", len(rows))
	}
}
