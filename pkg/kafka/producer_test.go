package kafka

import (
	"encoding/json"
	"testing"
)

func TestProducerConfigValidate(t *testing.T) {
	cfg := defaultProducerConfig()
	if err := cfg.validate(); err == nil {
		t.Fatalf("config without brokers accepted")
	}
	cfg.Brokers = []string{"localhost:9092"}
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}

	WithCompression("brotli")(cfg)
	if err := cfg.validate(); err == nil {
		t.Fatalf("unknown compression accepted")
	}
	WithCompression("zstd")(cfg)
	WithDelivery(2, 0)(cfg)
	if err := cfg.validate(); err == nil {
		t.Fatalf("acks=2 accepted")
	}
	WithDelivery(1, 5)(cfg)
	if err := cfg.validate(); err != nil || cfg.MaxAttempts != 5 {
		t.Fatalf("delivery options: attempts=%d err=%v", cfg.MaxAttempts, err)
	}
}

func TestBatchingKeepsDefaultsForZeroValues(t *testing.T) {
	cfg := defaultProducerConfig()
	WithBatching(0, 2048, 0)(cfg)
	if cfg.BatchSize != 100 || cfg.BatchBytes != 2048 || cfg.BatchTimeout <= 0 {
		t.Fatalf("unexpected batching %+v", cfg)
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("signals", []byte("BTC"), map[string]any{"score": 61.5}, map[string]string{HeaderTraceID: "abc"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var got map[string]float64
	if err := json.Unmarshal(msg.Value, &got); err != nil || got["score"] != 61.5 {
		t.Fatalf("value=%s err=%v", msg.Value, err)
	}
	if ExtractTraceID(msg) != "abc" || string(msg.Key) != "BTC" {
		t.Fatalf("headers=%v key=%s", msg.Headers, msg.Key)
	}

	if _, err := buildMessage("", nil, "x", nil); err == nil {
		t.Fatalf("empty topic accepted")
	}
	if _, err := buildMessage("t", nil, nil, nil); err == nil {
		t.Fatalf("nil value accepted")
	}
	raw, _ := buildMessage("t", nil, []byte("raw"), nil)
	if string(raw.Value) != "raw" {
		t.Fatalf("bytes re-encoded: %s", raw.Value)
	}
}
