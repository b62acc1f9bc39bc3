package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal *prometheus.CounterVec
	lastScore    *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder and registers it with reg (the default registerer when nil).
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		signalsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosatx_signals_total",
				Help: "Signals generated by symbol and direction",
			},
			[]string{"symbol", "direction"},
		),
		lastScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cryptosatx_signal_score",
				Help: "Last composite score per symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cryptosatx_errors_total",
				Help: "Errors by kind",
			},
			[]string{"kind"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cryptosatx_operation_duration_seconds",
				Help:    "Duration of service operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{r.signalsTotal, r.lastScore, r.errorsTotal, r.latency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) RecordSignal(symbol, direction string, score float64) {
	r.signalsTotal.WithLabelValues(symbol, direction).Inc()
	r.lastScore.WithLabelValues(symbol).Set(score)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
