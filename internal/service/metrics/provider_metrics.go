package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptosatx",
			Subsystem: "provider",
			Name:      "latency_seconds",
			Help:      "Latency of upstream market data calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	ProviderErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Failed upstream calls by provider and endpoint",
		},
		[]string{"provider", "endpoint"},
	)

	LiquidationEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "liquidations",
			Name:      "events_total",
			Help:      "Force orders received from the stream by side",
		},
		[]string{"side"},
	)
)

// Register adds provider collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(ProviderLatency, ProviderErrors, LiquidationEvents)
	})
}

// ObserveCall records one upstream call.
func ObserveCall(provider, endpoint string, seconds float64, err error) {
	ProviderLatency.WithLabelValues(provider, endpoint).Observe(seconds)
	if err != nil {
		ProviderErrors.WithLabelValues(provider, endpoint).Inc()
	}
}
