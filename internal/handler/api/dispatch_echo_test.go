package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"CryptoSatX/internal/dispatcher"
	models "CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/service/ratelimit"
	"CryptoSatX/internal/service/upstream"
	"CryptoSatX/internal/usecase"
	"CryptoSatX/pkg/http/middleware"

	"github.com/labstack/echo/v4"
)

func newTestServer(t *testing.T, rl *ratelimit.Limiter) *echo.Echo {
	t.Helper()
	d := dispatcher.New(dispatcher.Config{DefaultTimeout: time.Second})
	must := func(err error) {
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	must(d.Register(usecase.OpSignalsGet, func(_ context.Context, a dispatcher.Args) (any, error) {
		sym, _ := a.String("symbol")
		switch sym {
		case "THIN":
			return nil, &usecase.InsufficientDataError{Symbol: sym, Coverage: 0.25, Required: 0.5}
		case "DOWN":
			return nil, &upstream.Error{Provider: "binance", Endpoint: "ticker", Err: context.DeadlineExceeded}
		}
		return &models.SignalResult{Symbol: sym, Signal: models.DirectionLong, Score: 70}, nil
	}))
	must(d.Register(usecase.OpSignalsHistory, func(_ context.Context, a dispatcher.Args) (any, error) {
		limit, err := a.Int("limit", 0)
		return map[string]any{"limit": limit}, err
	}))
	must(d.Register(usecase.OpSignalsBatch, func(_ context.Context, a dispatcher.Args) (any, error) {
		syms, err := a.Strings("symbols")
		return map[string]any{"count": len(syms)}, err
	}))
	must(d.Register(usecase.OpSystemHealth, func(context.Context, dispatcher.Args) (any, error) {
		return map[string]any{"status": "ok"}, nil
	}))

	e := echo.New()
	NewDispatchEchoHandler(nil, d, rl).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestDispatchRouteReturnsEnvelope(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodPost, "/api/dispatch", `{"operation":"signals.get","args":{"symbol":"BTC"}}`,
		map[string]string{middleware.HeaderRequestID: "req-42"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp models.DispatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.OK || resp.Meta.RequestID != "req-42" || resp.Meta.Namespace != "signals" {
		t.Fatalf("unexpected envelope %+v", resp)
	}

	rec = do(e, http.MethodPost, "/api/dispatch", `{"operation":"nope.op"}`, nil)
	resp = models.DispatchResponse{}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if rec.Code != http.StatusOK || resp.OK || resp.Meta.ErrorType != dispatcher.KindNotFound {
		t.Fatalf("unknown op: status=%d %+v", rec.Code, resp)
	}
}

func TestDispatchRouteValidatesBody(t *testing.T) {
	e := newTestServer(t, nil)
	if rec := do(e, http.MethodPost, "/api/dispatch", `{"args":{}}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing operation: status=%d", rec.Code)
	}
}

func TestSignalRouteStatusMapping(t *testing.T) {
	e := newTestServer(t, nil)
	cases := map[string]int{
		"BTC":  http.StatusOK,
		"THIN": http.StatusServiceUnavailable,
		"DOWN": http.StatusBadGateway,
	}
	for sym, want := range cases {
		if rec := do(e, http.MethodGet, "/api/signals/"+sym, "", nil); rec.Code != want {
			t.Fatalf("%s: status=%d want %d body=%s", sym, rec.Code, want, rec.Body.String())
		}
	}
	if rec := do(e, http.MethodGet, "/api/signals/X", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("short symbol: status=%d", rec.Code)
	}
}

func TestHistoryDefaultsLimit(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/api/signals/BTC/history", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"limit":50`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestBatchRoute(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodPost, "/api/signals/batch", `{"symbols":["BTC","ETH"]}`, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":2`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(e, http.MethodPost, "/api/signals/batch", `{"symbols":[]}`, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch: status=%d", rec.Code)
	}
}

func TestRateLimitedDispatch(t *testing.T) {
	e := newTestServer(t, ratelimit.New(1, 0.001))
	body := `{"operation":"system.health"}`
	if rec := do(e, http.MethodPost, "/api/dispatch", body, nil); rec.Code != http.StatusOK {
		t.Fatalf("first call: status=%d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/api/dispatch", body, nil); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second call: status=%d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
