package binance

import (
	"context"
	"errors"
	"sync"
	"time"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/service"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/pkg/util"
)

// Force order sides. A BUY force order closes a short.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

var errStreamDown = errors.New("liquidation stream not connected")

// LiquidationEvent is one forced close in quote currency.
type LiquidationEvent struct {
	Symbol    string
	Side      string
	AmountUSD float64
	Timestamp time.Time
}

// LiquidationMonitor keeps a sliding window of force orders per symbol.
type LiquidationMonitor struct {
	mu        sync.RWMutex
	events    map[string][]LiquidationEvent
	window    time.Duration
	connected bool
	now       func() time.Time
}

var _ service.LiquidationSource = (*LiquidationMonitor)(nil)

func NewLiquidationMonitor(window time.Duration) *LiquidationMonitor {
	if window <= 0 {
		window = time.Hour
	}
	return &LiquidationMonitor{
		events: make(map[string][]LiquidationEvent),
		window: window,
		now:    time.Now,
	}
}

// Add records an event and drops expired ones for the same symbol.
func (m *LiquidationMonitor) Add(ev LiquidationEvent) {
	if ev.AmountUSD <= 0 || (ev.Side != SideBuy && ev.Side != SideSell) {
		return
	}
	sym := util.BaseAsset(ev.Symbol)
	if ev.Timestamp.IsZero() {
		ev.Timestamp = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[sym] = append(m.events[sym], ev)
	m.pruneLocked(sym)
}

// SetConnected marks whether the feed is live. Summaries are refused
// while it is down.
func (m *LiquidationMonitor) SetConnected(ok bool) {
	m.mu.Lock()
	m.connected = ok
	m.mu.Unlock()
}

func (m *LiquidationMonitor) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Liquidations summarizes the window for symbol.
func (m *LiquidationMonitor) Liquidations(_ context.Context, symbol string) (*models.LiquidationSummary, error) {
	sym := util.BaseAsset(symbol)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, upstream.Wrap("binance_ws", "force_order", errStreamDown)
	}

	cutoff := m.now().Add(-m.window)
	var longUSD, shortUSD float64
	for _, ev := range m.events[sym] {
		if !ev.Timestamp.After(cutoff) {
			continue
		}
		if ev.Side == SideBuy {
			shortUSD += ev.AmountUSD
		} else {
			longUSD += ev.AmountUSD
		}
	}
	total := longUSD + shortUSD
	var imbalance float64
	if total > 0 {
		imbalance = (shortUSD - longUSD) / total
	}
	return &models.LiquidationSummary{
		Symbol:      sym,
		Window:      m.window.String(),
		LongLiqUSD:  longUSD,
		ShortLiqUSD: shortUSD,
		TotalUSD:    total,
		Imbalance:   imbalance,
		Source:      "binance_force_orders",
	}, nil
}

func (m *LiquidationMonitor) pruneLocked(sym string) {
	cutoff := m.now().Add(-m.window)
	events := m.events[sym]
	valid := events[:0]
	for _, ev := range events {
		if ev.Timestamp.After(cutoff) {
			valid = append(valid, ev)
		}
	}
	m.events[sym] = valid
}
