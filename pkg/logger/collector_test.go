package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, value.([]AggregatedLogEntry))
	return nil
}

func TestCollectorAggregatesByShape(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs.errors", Publisher: pub})

	c.AddLog("error", "provider failed", map[string]interface{}{"symbol": "BTC"}, "client.go:10")
	c.AddLog("error", "provider failed", map[string]interface{}{"symbol": "ETH"}, "client.go:10")
	c.AddLog("error", "other failure", nil, "client.go:20")
	if got := c.Pending(); got != 2 {
		t.Fatalf("Pending=%d, want 2", got)
	}

	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "logs.errors" || len(pub.batches) != 1 || len(pub.batches[0]) != 2 {
		t.Fatalf("unexpected publish: topic=%q batches=%v", pub.topic, pub.batches)
	}
	for _, e := range pub.batches[0] {
		if e.Message == "provider failed" && e.Count != 2 {
			t.Fatalf("count=%d, want 2", e.Count)
		}
	}
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &capturePublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "")
	c.AddLog("error", "b", nil, "")
	if got := c.Pending(); got != 0 {
		t.Fatalf("Pending=%d after threshold flush", got)
	}
}
