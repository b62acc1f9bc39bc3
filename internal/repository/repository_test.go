package repository

import (
	"context"
	"strings"
	"testing"

	"CryptoSatX/internal/domain/models"
)

type captureProducer struct {
	topic string
	key   string
	value interface{}
	calls int
}

func (p *captureProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.calls++
	p.topic, p.key, p.value = topic, string(key), value
	return nil
}

func (p *captureProducer) Close() error { return nil }

func TestPublishSignalKeyedBySymbol(t *testing.T) {
	prod := &captureProducer{}
	pub := NewKafkaSignalPublisher(prod, "signals.generated")

	ev := &models.SignalEvent{Type: "signal.generated", Signal: &models.SignalResult{Symbol: "BTC"}}
	if err := pub.PublishSignal(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if prod.topic != "signals.generated" || prod.key != "BTC" || prod.value != ev {
		t.Fatalf("unexpected publish %+v", prod)
	}

	if err := pub.PublishSignal(context.Background(), &models.SignalEvent{}); err != nil || prod.calls != 1 {
		t.Fatalf("empty event should be skipped, calls=%d err=%v", prod.calls, err)
	}
}

func TestSignalSchemaUsesTable(t *testing.T) {
	stmts := SignalSchema("analytics.signals")
	if len(stmts) != 1 || !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS analytics.signals") {
		t.Fatalf("unexpected schema %v", stmts)
	}
	for _, name := range []string{"signals", "db.signals_v2"} {
		if !tableNamePattern.MatchString(name) {
			t.Fatalf("%q should be accepted", name)
		}
	}
	for _, name := range []string{"", "signals; DROP TABLE x", "a.b.c"} {
		if tableNamePattern.MatchString(name) {
			t.Fatalf("%q should be rejected", name)
		}
	}
}

func TestDecodeSignal(t *testing.T) {
	sig, err := decodeSignal(`{"symbol":"ETH","signal":"LONG","score":71.5,"confidence":"high"}`)
	if err != nil || sig.Symbol != "ETH" || sig.Signal != models.DirectionLong || sig.Score != 71.5 {
		t.Fatalf("decode: %+v %v", sig, err)
	}
	if _, err := decodeSignal(`{"score":1}`); err == nil {
		t.Fatalf("payload without symbol accepted")
	}
	if _, err := decodeSignal(`not json`); err == nil {
		t.Fatalf("invalid json accepted")
	}
}
