package coinglass

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"CryptoSatX/internal/service/upstream"
)

func TestLiquidations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != liquidationPath {
			t.Errorf("path=%s", r.URL.Path)
		}
		if r.Header.Get("CG-API-KEY") != "secret" {
			t.Errorf("missing api key header")
		}
		if r.URL.Query().Get("symbol") != "BTC" {
			t.Errorf("symbol=%s", r.URL.Query().Get("symbol"))
		}
		_, _ = w.Write([]byte(`{"code":"0","msg":"success","data":[{"time":1700000000000,"aggregated_long_liquidation_usd":1000,"aggregated_short_liquidation_usd":3000}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret", "1h", time.Second, 0)
	got, err := c.Liquidations(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("liquidations: %v", err)
	}
	if got.TotalUSD != 4000 || math.Abs(got.Imbalance-0.5) > 1e-12 || got.Window != "1h" {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestLiquidationsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":"40001","msg":"invalid key","data":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad", "1h", time.Second, 0).Liquidations(context.Background(), "BTC")
	var ue *upstream.Error
	if !errors.As(err, &ue) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}
