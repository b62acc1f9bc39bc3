package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pmetrics "CryptoSatX/internal/service/metrics"
	applogger "CryptoSatX/pkg/logger"
	"CryptoSatX/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// LiquidationStream feeds Binance force orders into a LiquidationMonitor.
type LiquidationStream struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	monitor        *LiquidationMonitor
	log            *applogger.Logger
	dialer         *websocket.Dialer
}

func NewLiquidationStream(url string, reconnectDelay, pingInterval time.Duration, monitor *LiquidationMonitor, l *applogger.Logger) *LiquidationStream {
	if l == nil {
		l = applogger.Nop()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &LiquidationStream{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		monitor:        monitor,
		log:            l,
		dialer:         websocket.DefaultDialer,
	}
}

// Run connects and reads until ctx is done, reconnecting after failures.
func (s *LiquidationStream) Run(ctx context.Context) {
	for {
		err := s.session(ctx)
		s.monitor.SetConnected(false)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn("liquidation stream disconnected",
			applogger.Error(err),
			applogger.Duration("retry_in_ms", s.reconnectDelay),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *LiquidationStream) session(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()
	s.monitor.SetConnected(true)
	s.log.Info("liquidation stream connected", applogger.String("url", s.url))

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		ev, ok := parseForceOrder(b)
		if !ok {
			continue
		}
		pmetrics.LiquidationEvents.WithLabelValues(ev.Side).Inc()
		s.monitor.Add(ev)
	}
}

type forceOrderMsg struct {
	Order struct {
		Symbol   string `json:"s"`
		Side     string `json:"S"`
		Price    string `json:"p"`
		AvgPrice string `json:"ap"`
		Qty      string `json:"q"`
		FilledQ  string `json:"z"`
		Time     int64  `json:"T"`
	} `json:"o"`
}

func parseForceOrder(b []byte) (LiquidationEvent, bool) {
	var m forceOrderMsg
	if err := json.Unmarshal(b, &m); err != nil || m.Order.Symbol == "" {
		return LiquidationEvent{}, false
	}
	o := m.Order
	price, err := decimal.NewFromString(o.AvgPrice)
	if err != nil || price.IsZero() {
		if price, err = decimal.NewFromString(o.Price); err != nil {
			return LiquidationEvent{}, false
		}
	}
	qtyStr := o.FilledQ
	if qtyStr == "" {
		qtyStr = o.Qty
	}
	qty, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return LiquidationEvent{}, false
	}
	ev := LiquidationEvent{
		Symbol:    o.Symbol,
		Side:      o.Side,
		AmountUSD: price.Mul(qty).InexactFloat64(),
	}
	if o.Time > 0 {
		ev.Timestamp = util.FromUnixAuto(o.Time)
	}
	return ev, ev.AmountUSD > 0
}
