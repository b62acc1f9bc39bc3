package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestFearGreedMemoized(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"name":"Fear and Greed Index","data":[{"value":"23","value_classification":"Extreme Fear","timestamp":"1700000000"}],"metadata":{"error":null}}`))
	}))
	defer srv.Close()

	now := time.Unix(1700000100, 0)
	c := New(srv.URL, time.Second, time.Minute)
	c.now = func() time.Time { return now }

	fg, err := c.FearGreed(context.Background())
	if err != nil {
		t.Fatalf("fear greed: %v", err)
	}
	if fg.Value != 23 || fg.Classification != "Extreme Fear" || fg.Timestamp.Unix() != 1700000000 {
		t.Fatalf("unexpected reading %+v", fg)
	}
	if _, err := c.FearGreed(context.Background()); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected cached read, calls=%d", calls)
	}

	now = now.Add(2 * time.Minute)
	_, _ = c.FearGreed(context.Background())
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected refresh after ttl, calls=%d", calls)
	}
}

func TestFearGreedBadValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"value":"n/a"}],"metadata":{"error":null}}`))
	}))
	defer srv.Close()
	if _, err := New(srv.URL, time.Second, time.Minute).FearGreed(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}
