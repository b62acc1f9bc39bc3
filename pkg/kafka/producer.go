package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	applogger "CryptoSatX/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

var compressions = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// Producer wraps a Kafka writer shared by every publisher in the process.
type Producer struct {
	writer *kafka.Writer
	comp   string
	log    *applogger.Logger
}

// NewProducer creates a new Kafka producer.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	l := cfg.Logger
	if l == nil {
		l = applogger.Nop()
	}

	bal := kafka.Balancer(&kafka.LeastBytes{})
	if cfg.HashByKey {
		bal = &kafka.Hash{}
	}
	p := &Producer{comp: cfg.Compression, log: l}
	p.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     bal,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compressions[cfg.Compression],
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}
	if cfg.Async {
		p.writer.Completion = p.completed
	}

	RegisterProducerMetrics(prometheus.DefaultRegisterer)
	return p, nil
}

// Publish sends one JSON (or raw bytes/string) value to topic.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	return p.PublishWithHeaders(ctx, topic, key, value, nil)
}

// PublishWithHeaders sends a message carrying headers such as trace_id.
func (p *Producer) PublishWithHeaders(ctx context.Context, topic string, key []byte, value interface{}, headers map[string]string) error {
	msg, err := buildMessage(topic, key, value, headers)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	observeProducer(topic, p.comp, len(msg.Value), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", topic, err)
	}
	return nil
}

// completed reports async delivery outcomes.
func (p *Producer) completed(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		producerErrors.WithLabelValues(m.Topic).Inc()
	}
	p.log.Error("kafka async delivery failed",
		applogger.Int("messages", len(messages)),
		applogger.Error(err),
	)
}

// Close flushes pending messages and closes the writer.
func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func buildMessage(topic string, key []byte, value interface{}, headers map[string]string) (kafka.Message, error) {
	if topic == "" {
		return kafka.Message{}, fmt.Errorf("kafka publish: topic is required")
	}
	v, err := encodeValue(value)
	if err != nil {
		return kafka.Message{}, err
	}
	msg := kafka.Message{Topic: topic, Key: key, Value: v, Time: time.Now()}
	for k, hv := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(hv)})
	}
	return msg, nil
}

func encodeValue(value interface{}) ([]byte, error) {
	switch val := value.(type) {
	case nil:
		return nil, fmt.Errorf("kafka publish: nil value")
	case []byte:
		return val, nil
	case string:
		return []byte(val), nil
	case json.RawMessage:
		return val, nil
	default:
		b, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal value: %w", err)
		}
		return b, nil
	}
}

var (
	producerMetricsOnce sync.Once

	producerMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "kafka_producer",
			Name:      "messages_total",
			Help:      "Messages handed to the Kafka writer",
		},
		[]string{"topic", "compression", "result"},
	)
	producerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "kafka_producer",
			Name:      "errors_total",
			Help:      "Failed Kafka writes, sync and async",
		},
		[]string{"topic"},
	)
	producerBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "kafka_producer",
			Name:      "bytes_total",
			Help:      "Payload bytes published",
		},
		[]string{"topic", "compression"},
	)
	producerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptosatx",
			Subsystem: "kafka_producer",
			Name:      "publish_seconds",
			Help:      "Publish latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)
)

// RegisterProducerMetrics registers producer collectors with reg once.
func RegisterProducerMetrics(reg prometheus.Registerer) {
	producerMetricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(producerMessages, producerErrors, producerBytes, producerLatency)
	})
}

func observeProducer(topic, comp string, bytes int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		producerErrors.WithLabelValues(topic).Inc()
	}
	producerMessages.WithLabelValues(topic, comp, result).Inc()
	producerBytes.WithLabelValues(topic, comp).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
