package dispatcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cryptosatx",
			Subsystem: "dispatch",
			Name:      "requests_total",
			Help:      "Dispatched operations by outcome",
		},
		[]string{"operation", "result"},
	)

	dispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cryptosatx",
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "End-to-end dispatch latency",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	dispatchInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cryptosatx",
			Subsystem: "dispatch",
			Name:      "in_flight",
			Help:      "Handlers currently executing, including abandoned ones",
		},
		[]string{"operation"},
	)
)

// RegisterMetrics registers dispatcher collectors with reg once per process.
func RegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(dispatchTotal, dispatchDuration, dispatchInFlight)
	})
}

func observe(operation, result string, seconds float64) {
	dispatchTotal.WithLabelValues(operation, result).Inc()
	dispatchDuration.WithLabelValues(operation).Observe(seconds)
}
