package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements the domain Metrics interface using Prometheus.
type Recorder struct {
	signalsIngested *prometheus.CounterVec
	duplicates      *prometheus.CounterVec
	cacheOps        *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	brokerChecks    *prometheus.CounterVec
	postbacks       *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_signals_ingested_total",
				Help: "Total signals accepted from the webhook",
			},
			[]string{"symbol", "tf"},
		),
		duplicates: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_signals_duplicate_total",
				Help: "Webhook deliveries rejected as duplicates",
			},
			[]string{"source"},
		),
		cacheOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_signal_cache_ops_total",
				Help: "Signal cache lookups by result",
			},
			[]string{"result"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_errors_total",
				Help: "Total errors by kind",
			},
			[]string{"kind"},
		),
		brokerChecks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_broker_balance_checks_total",
				Help: "Balance checks against the broker API by result",
			},
			[]string{"result"},
		),
		postbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_broker_postbacks_total",
				Help: "Broker postbacks processed by action",
			},
			[]string{"action", "status"},
		),
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradevision_verdicts_settled_total",
				Help: "Signal verdicts recorded by result",
			},
			[]string{"result"},
		),
	}
}

func (r *Recorder) RecordSignalIngested(symbol, tf string) {
	r.signalsIngested.WithLabelValues(symbol, tf).Inc()
}

func (r *Recorder) RecordDuplicate(source string) {
	r.duplicates.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordCacheOp(result string) {
	r.cacheOps.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordBrokerCheck(result string) {
	r.brokerChecks.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordPostback(action, status string) {
	r.postbacks.WithLabelValues(action, status).Inc()
}

func (r *Recorder) RecordVerdict(result string) {
	r.verdicts.WithLabelValues(result).Inc()
}
